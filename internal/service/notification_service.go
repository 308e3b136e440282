package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

const (
	pendingMailPrefix = "notify:pending:"
	pendingMailTTL    = 24 * time.Hour
	forwardTimeout    = 45 * time.Second
)

// MailSender delivers one mail. *notify.Mailer satisfies it.
type MailSender interface {
	Send(ctx context.Context, msg notify.Message) error
}

// EventPoster forwards events to an external system. *notify.Webhook satisfies it.
type EventPoster interface {
	Enabled() bool
	Post(ctx context.Context, payload any) error
}

// NotificationResult reports the outcome of a best-effort notification.
type NotificationResult struct {
	Sent  bool   `json:"sent"`
	Error string `json:"error,omitempty"`
}

type pendingMail struct {
	ID        string         `json:"id"`
	Message   notify.Message `json:"message"`
	Attempts  int            `json:"attempts"`
	LastError string         `json:"lastError"`
	QueuedAt  time.Time      `json:"queuedAt"`
}

// NotificationService sends ticket mail after commits and queues what failed.
type NotificationService struct {
	mailer     MailSender
	webhook    EventPoster
	cache      *cache.Manager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
	support    string
	forwards   sync.WaitGroup
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Mailer         MailSender
	Webhook        EventPoster
	Cache          *cache.Manager
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Config         config.NotificationConfig
	SupportContact string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	if deps.Config.MaxAttempts <= 0 {
		deps.Config.MaxAttempts = 5
	}
	return &NotificationService{
		mailer:     deps.Mailer,
		webhook:    deps.Webhook,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        deps.Config,
		support:    deps.SupportContact,
	}
}

// SupportContact names who users should reach when mail fails.
func (n *NotificationService) SupportContact() string {
	return n.support
}

// RegisterHandlers forwards ticket events to the webhook.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.webhook == nil || !n.webhook.Enabled() {
		return
	}
	for _, t := range []events.EventType{events.EventTicketCreated, events.EventTicketStateChanged, events.EventTicketDetailAdded} {
		n.dispatcher.Subscribe(t, n.forward)
	}
}

// forward posts the event in the background. Failures are logged and counted.
func (n *NotificationService) forward(_ context.Context, event events.Event) error {
	n.forwards.Add(1)
	go func() {
		defer n.forwards.Done()
		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()
		err := n.webhook.Post(ctx, event)
		n.metrics.RecordNotification("webhook", outcome(err))
		if err != nil {
			n.logger.Warn("webhook forward failed",
				zap.String("event_type", string(event.Type)),
				zap.String("entity_id", event.EntityID),
				zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until every pending webhook forward has finished.
func (n *NotificationService) Wait() {
	n.forwards.Wait()
}

// Deliver attempts msg once. A failed send is queued for the retry worker and
// reported in the result, never as an error.
func (n *NotificationService) Deliver(ctx context.Context, msg notify.Message) NotificationResult {
	err := n.mailer.Send(ctx, msg)
	n.metrics.RecordNotification("mail", outcome(err))
	if err == nil {
		return NotificationResult{Sent: true}
	}
	n.logger.Warn("notification deferred", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
	if len(msg.To) > 0 {
		n.enqueue(ctx, pendingMail{
			ID:        uuid.NewString(),
			Message:   msg,
			Attempts:  1,
			LastError: err.Error(),
			QueuedAt:  time.Now().UTC(),
		})
	}
	return NotificationResult{Sent: false, Error: err.Error()}
}

// RetryPending resends queued mail. Messages that exhaust MaxAttempts are dropped.
func (n *NotificationService) RetryPending(ctx context.Context) (sent, pending int) {
	keys, err := n.cache.Store().Keys(ctx, pendingMailPrefix+"*")
	if err != nil {
		n.logger.Warn("list pending notifications failed", zap.Error(err))
		return 0, 0
	}
	for _, key := range keys {
		if ctx.Err() != nil {
			return sent, pending + 1
		}
		var item pendingMail
		if !n.cache.Get(ctx, key, &item) {
			continue
		}
		err := n.mailer.Send(ctx, item.Message)
		n.metrics.RecordNotification("mail_retry", outcome(err))
		if err == nil {
			n.cache.Del(ctx, key)
			sent++
			continue
		}
		item.Attempts++
		item.LastError = err.Error()
		if item.Attempts >= n.cfg.MaxAttempts {
			n.logger.Error("notification dropped",
				zap.String("id", item.ID),
				zap.Strings("to", item.Message.To),
				zap.Int("attempts", item.Attempts),
				zap.Error(err))
			n.cache.Del(ctx, key)
			continue
		}
		n.enqueue(ctx, item)
		pending++
	}
	return sent, pending
}

func (n *NotificationService) enqueue(ctx context.Context, item pendingMail) {
	n.cache.Set(ctx, pendingMailPrefix+item.ID, item, pendingMailTTL)
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "sent"
}
