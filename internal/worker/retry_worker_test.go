package worker_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/worker"
)

type countingRetrier struct {
	runs atomic.Int32
}

func (r *countingRetrier) RetryPending(context.Context) (int, int) {
	r.runs.Add(1)
	return 1, 0
}

var _ = Describe("RetryWorker", func() {
	It("rejects invalid schedules", func() {
		w := worker.NewRetryWorker("not a schedule", &countingRetrier{}, zap.NewNop())
		Expect(w.Start()).To(HaveOccurred())
	})

	It("drains on its schedule until stopped", func() {
		retrier := &countingRetrier{}
		w := worker.NewRetryWorker("@every 1s", retrier, zap.NewNop())
		Expect(w.Start()).To(Succeed())

		Eventually(retrier.runs.Load, 3*time.Second, 100*time.Millisecond).Should(BeNumerically(">=", 1))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		w.Stop(ctx)
	})

	It("runs a single pass on demand", func() {
		retrier := &countingRetrier{}
		worker.NewRetryWorker("@every 1m", retrier, zap.NewNop()).RunOnce()
		Expect(retrier.runs.Load()).To(Equal(int32(1)))
	})
})
