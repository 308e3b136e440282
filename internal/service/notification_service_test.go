package service_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type flakySender struct {
	failures int
	sent     []notify.Message
}

func (f *flakySender) Send(_ context.Context, msg notify.Message) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

// recordingPoster records posts. When release is set, Post blocks until it is closed.
type recordingPoster struct {
	mu      sync.Mutex
	posted  []any
	release chan struct{}
	fail    bool
}

func (p *recordingPoster) Enabled() bool { return true }

func (p *recordingPoster) Post(_ context.Context, payload any) error {
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("webhook unavailable")
	}
	p.posted = append(p.posted, payload)
	return nil
}

func (p *recordingPoster) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posted)
}

var _ = Describe("NotificationService", func() {
	var (
		ctx      context.Context
		sender   *flakySender
		poster   *recordingPoster
		manager  *cache.Manager
		notifier *service.NotificationService
		dispatch events.Dispatcher
		msg      notify.Message
	)

	BeforeEach(func() {
		ctx = context.Background()
		sender = &flakySender{}
		poster = &recordingPoster{}
		manager = newCache()
		dispatch = events.NewInMemoryDispatcher(zap.NewNop())
		notifier = service.NewNotificationService(service.NotificationDependencies{
			Mailer:         sender,
			Webhook:        poster,
			Cache:          manager,
			Dispatcher:     dispatch,
			Logger:         zap.NewNop(),
			Config:         config.NotificationConfig{MaxAttempts: 3},
			SupportContact: "IT",
		})
		notifier.RegisterHandlers()
		msg = notify.Message{To: []string{"luis@example.com"}, Subject: "ST-1", HTML: "<p>hi</p>"}
	})

	It("reports a sent mail", func() {
		Expect(notifier.Deliver(ctx, msg)).To(Equal(service.NotificationResult{Sent: true}))
		Expect(sender.sent).To(HaveLen(1))
	})

	It("queues a failed mail and resends it later", func() {
		sender.failures = 1
		res := notifier.Deliver(ctx, msg)
		Expect(res.Sent).To(BeFalse())
		Expect(res.Error).To(Equal("smtp unavailable"))

		keys, err := manager.Store().Keys(ctx, "notify:pending:*")
		Expect(err).NotTo(HaveOccurred())
		Expect(keys).To(HaveLen(1))

		sent, pending := notifier.RetryPending(ctx)
		Expect(sent).To(Equal(1))
		Expect(pending).To(BeZero())
		Expect(sender.sent).To(ConsistOf(msg))
	})

	It("drops a mail after the configured attempts", func() {
		sender.failures = 10
		notifier.Deliver(ctx, msg)

		_, pending := notifier.RetryPending(ctx)
		Expect(pending).To(Equal(1))
		_, pending = notifier.RetryPending(ctx)
		Expect(pending).To(BeZero())

		keys, err := manager.Store().Keys(ctx, "notify:pending:*")
		Expect(err).NotTo(HaveOccurred())
		Expect(keys).To(BeEmpty())
	})

	It("forwards ticket events to the webhook", func() {
		dispatch.Publish(ctx, events.New(events.EventTicketCreated, "t1", "u1", events.TicketPayload{Code: "ST-1"}))
		notifier.Wait()
		Expect(poster.count()).To(Equal(1))
	})

	It("does not hold up the publisher while the webhook is slow", func() {
		poster.release = make(chan struct{})
		published := make(chan struct{})
		go func() {
			defer close(published)
			dispatch.Publish(ctx, events.New(events.EventTicketStateChanged, "t1", "u1", events.TicketPayload{Code: "ST-1"}))
		}()
		Eventually(published).Should(BeClosed())
		Expect(poster.count()).To(BeZero())

		close(poster.release)
		notifier.Wait()
		Expect(poster.count()).To(Equal(1))
	})

	It("swallows webhook failures", func() {
		poster.fail = true
		dispatch.Publish(ctx, events.New(events.EventTicketDetailAdded, "t1", "u1", events.TicketPayload{Code: "ST-1"}))
		notifier.Wait()
		Expect(poster.count()).To(BeZero())
	})
})
