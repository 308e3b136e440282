package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Retrier re-attempts queued notifications and reports how many were sent and how many remain.
type Retrier interface {
	RetryPending(ctx context.Context) (sent, pending int)
}

// RetryWorker drains the notification retry queue on a cron schedule.
type RetryWorker struct {
	cron    *cron.Cron
	spec    string
	retrier Retrier
	timeout time.Duration
	logger  *zap.Logger
}

// NewRetryWorker builds a worker; spec accepts cron expressions and descriptors such as "@every 1m".
func NewRetryWorker(spec string, retrier Retrier, logger *zap.Logger) *RetryWorker {
	cronLogger := cronLog{logger: logger.Sugar()}
	return &RetryWorker{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		spec:    spec,
		retrier: retrier,
		timeout: time.Minute,
		logger:  logger,
	}
}

// Start schedules the job; it returns an error for an invalid spec.
func (w *RetryWorker) Start() error {
	if _, err := w.cron.AddFunc(w.spec, w.RunOnce); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("notification retry worker started", zap.String("spec", w.spec))
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (w *RetryWorker) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		w.logger.Warn("notification retry worker stop timed out")
	}
}

// RunOnce performs a single drain pass.
func (w *RetryWorker) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	sent, pending := w.retrier.RetryPending(ctx)
	if sent > 0 || pending > 0 {
		w.logger.Info("notification retry pass", zap.Int("sent", sent), zap.Int("pending", pending))
	}
}

// cronLog adapts zap to cron.Logger.
type cronLog struct {
	logger *zap.SugaredLogger
}

func (l cronLog) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
