package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketDetailCreateInput appends a comment to a ticket.
type TicketDetailCreateInput struct {
	TicketID    string `json:"ticketId" validate:"required,uuid"`
	Description string `json:"description" validate:"required,max=5000"`
}

// TicketDetailUpdateInput carries the fields a PATCH may change.
type TicketDetailUpdateInput struct {
	Description *string `json:"description" validate:"omitempty,min=1,max=5000"`
	State       *bool   `json:"state"`
}

// TicketDetailResult is returned by Create; see TicketResult.
type TicketDetailResult struct {
	Data         *domain.TicketDetail `json:"data"`
	Message      string               `json:"message"`
	Notification NotificationResult   `json:"notification"`
}

// TicketDetailService manages the comment trail of tickets.
type TicketDetailService struct {
	*entityCache[domain.TicketDetail]
	notifier   Notifier
	dispatcher events.Dispatcher
}

// NewTicketDetailService constructs the service.
func NewTicketDetailService(deps TicketDependencies) *TicketDetailService {
	return &TicketDetailService{
		entityCache: newEntityCache(deps.Dependencies, "Ticket detail", "ticketDetail", "ticketDetails",
			func(s repository.Store) crudRepository[domain.TicketDetail] { return s.TicketDetails() }),
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
	}
}

// Create appends a detail. The first detail of a ticket moves it to the
// in-progress state inside the same transaction. The ticket creator is
// mailed afterwards; a failed mail only changes the result message.
func (s *TicketDetailService) Create(ctx context.Context, session *domain.Session, input TicketDetailCreateInput) (*TicketDetailResult, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("User not authenticated")
	}
	detail := &domain.TicketDetail{
		Description: input.Description,
		TicketID:    input.TicketID,
		UserID:      &session.ID,
		State:       true,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if ok, err := found(tx.Tickets().GetByID(ctx, input.TicketID)); err != nil {
			return err
		} else if !ok {
			return apperrors.NewNotFound(fmt.Sprintf("Ticket with id %s not found", input.TicketID))
		}
		exists, err := tx.TicketDetails().ExistsForTicket(ctx, input.TicketID)
		if err != nil {
			return err
		}
		if !exists {
			state, err := tx.TicketStates().FindByOrder(ctx, domain.OrderInProgress)
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound(fmt.Sprintf("Ticket state with order %d not found", domain.OrderInProgress))
			}
			if err != nil {
				return err
			}
			if err := tx.Tickets().UpdateState(ctx, input.TicketID, state.ID); err != nil {
				return err
			}
		}
		return tx.TicketDetails().Create(ctx, detail)
	})
	if err != nil {
		return nil, s.fail("create ticket detail", err)
	}
	s.invalidateTicket(ctx, "", input.TicketID)

	note := NotificationResult{Error: "ticket not loaded"}
	ticket, err := s.store.Tickets().GetByID(ctx, input.TicketID)
	if err == nil {
		to := ""
		if ticket.User != nil {
			to = ticket.User.Email
		}
		note = s.notifier.Deliver(ctx, notify.Message{
			To:      nonEmpty(to),
			Subject: "Update " + ticket.Code(),
			HTML:    notify.Render(notify.TicketTemplate, ticketMailData(ticket)),
		})
		payload := events.TicketPayload{TicketNumber: ticket.TicketNumber, Code: ticket.Code()}
		if ticket.TicketState != nil {
			payload.State = ticket.TicketState.Title
		}
		s.dispatcher.Publish(ctx, events.New(events.EventTicketDetailAdded, ticket.ID, session.ID, payload))
	} else {
		s.logger.Warn("ticket reload failed", zap.String("ticket_id", input.TicketID), zap.Error(err))
	}

	message := "Ticket detail created successfully"
	if !note.Sent {
		message = fmt.Sprintf("Ticket detail was created successfully, but the email notification could not be sent. Please contact %s support.", s.notifier.SupportContact())
	}
	return &TicketDetailResult{Data: detail, Message: message, Notification: note}, nil
}

// FindByTicket returns the ticket with its details in creation order.
func (s *TicketDetailService) FindByTicket(ctx context.Context, ticketID string) (*domain.TicketThread, error) {
	return cacheAside(ctx, s.cache, threadKey(ticketID), 0, func() (*domain.TicketThread, error) {
		ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("Ticket with id %s not found", ticketID))
		}
		if err != nil {
			return nil, s.fail("load ticket", err)
		}
		details, err := s.store.TicketDetails().ListByTicket(ctx, ticketID)
		if err != nil {
			return nil, s.fail("list ticket details", err)
		}
		return &domain.TicketThread{Ticket: ticket, Details: details}, nil
	})
}

func (s *TicketDetailService) Update(ctx context.Context, id string, input TicketDetailUpdateInput) (*domain.TicketDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	setIf(&detail.Description, input.Description)
	setIf(&detail.State, input.State)
	if err := s.store.TicketDetails().Update(ctx, detail); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidateTicket(ctx, id, detail.TicketID)
	return detail, nil
}

func (s *TicketDetailService) Remove(ctx context.Context, id string) error {
	detail, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.TicketDetails().SoftDelete(ctx, id); err != nil {
		return s.lookupErr(id, err)
	}
	s.invalidateTicket(ctx, id, detail.TicketID)
	return nil
}

// invalidateTicket drops the detail keys plus the owning ticket and its thread.
func (s *TicketDetailService) invalidateTicket(ctx context.Context, id, ticketID string) {
	s.invalidate(ctx, id)
	s.cache.Invalidate(ctx, "ticket", "tickets", ticketID)
	s.cache.Del(ctx, threadKey(ticketID))
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
