package notify_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/notify"
)

type fakeTransport struct {
	sent       []notify.Message
	calls      int
	shouldFail bool
}

func (f *fakeTransport) Send(_ context.Context, _ string, msg notify.Message) error {
	f.calls++
	if f.shouldFail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

var _ = Describe("Render", func() {
	It("substitutes known keys and blanks unknown ones", func() {
		out := notify.Render("{{prefix}}-{{ticketNumber}} {{missing}}!", map[string]string{"prefix": "ST", "ticketNumber": "7"})
		Expect(out).To(Equal("ST-7 !"))
	})

	It("escapes HTML in values", func() {
		Expect(notify.Render("{{name}}", map[string]string{"name": "<b>x</b>"})).To(Equal("&lt;b&gt;x&lt;/b&gt;"))
	})
})

var _ = Describe("Mailer", func() {
	var (
		transport *fakeTransport
		mailer    *notify.Mailer
		msg       notify.Message
	)

	BeforeEach(func() {
		transport = &fakeTransport{}
		mailer = notify.NewMailer(transport, config.MailConfig{From: "helpdesk@example.com", TimeoutSeconds: 1}, zap.NewNop())
		msg = notify.Message{To: []string{"ana@example.com"}, Subject: "ST-1", HTML: "<p>hi</p>"}
	})

	It("delivers through the transport", func() {
		Expect(mailer.Send(context.Background(), msg)).To(Succeed())
		Expect(transport.sent).To(HaveLen(1))
	})

	It("refuses messages without recipients", func() {
		Expect(mailer.Send(context.Background(), notify.Message{})).To(MatchError(notify.ErrNoRecipient))
		Expect(transport.calls).To(BeZero())
	})

	It("opens the breaker after repeated failures", func() {
		transport.shouldFail = true
		for i := 0; i < 5; i++ {
			Expect(mailer.Send(context.Background(), msg)).To(HaveOccurred())
		}
		err := mailer.Send(context.Background(), msg)
		Expect(errors.Is(err, gobreaker.ErrOpenState)).To(BeTrue())
		Expect(transport.calls).To(Equal(5))
	})
})

var _ = Describe("Webhook", func() {
	It("is a no-op without URL", func() {
		Expect(notify.NewWebhook("", time.Second).Post(context.Background(), map[string]string{"a": "b"})).To(Succeed())
	})

	It("posts JSON and reports error statuses", func() {
		var hits atomic.Int32
		var body atomic.Value
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			raw, _ := io.ReadAll(r.Body)
			body.Store(string(raw))
			if r.URL.Path == "/fail" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		DeferCleanup(server.Close)

		Expect(notify.NewWebhook(server.URL+"/ok", time.Second).Post(context.Background(), map[string]string{"code": "ST-1"})).To(Succeed())
		Expect(body.Load()).To(MatchJSON(`{"code":"ST-1"}`))

		err := notify.NewWebhook(server.URL+"/fail", time.Second).Post(context.Background(), map[string]string{})
		Expect(err).To(MatchError(ContainSubstring("400")))
		Expect(hits.Load()).To(BeNumerically(">=", 2))
	})
})
