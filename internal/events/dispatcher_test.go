package events_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

var _ = Describe("Dispatcher", func() {
	It("delivers to every subscriber even when one fails", func() {
		dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
		var seen []string

		dispatcher.Subscribe(events.EventRoleChanged, func(_ context.Context, e events.Event) error {
			seen = append(seen, "first:"+e.EntityID)
			return errors.New("boom")
		})
		dispatcher.Subscribe(events.EventRoleChanged, func(_ context.Context, e events.Event) error {
			seen = append(seen, "second:"+e.EntityID)
			return nil
		})
		dispatcher.Subscribe(events.EventUserChanged, func(context.Context, events.Event) error {
			seen = append(seen, "user")
			return nil
		})

		dispatcher.Publish(context.Background(), events.New(events.EventRoleChanged, "r1", "", nil))

		Expect(seen).To(Equal([]string{"first:r1", "second:r1"}))
	})

	It("stamps new events", func() {
		e := events.New(events.EventTicketCreated, "t1", "u1", events.TicketPayload{Code: "ST-1"})
		Expect(e.ID).NotTo(BeEmpty())
		Expect(e.Timestamp).NotTo(BeZero())
		Expect(e.Payload).To(Equal(events.TicketPayload{Code: "ST-1"}))
	})
})
