package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const mailDateLayout = "2006-01-02 15:04"

// Notifier delivers best-effort mail. *NotificationService satisfies it.
type Notifier interface {
	Deliver(ctx context.Context, msg notify.Message) NotificationResult
	SupportContact() string
}

// TicketCreateInput opens a ticket; the creator comes from the session.
type TicketCreateInput struct {
	TicketTitleID string `json:"ticketTitleId" validate:"omitempty,uuid"`
	Description   string `json:"description" validate:"max=5000"`
}

// TicketUpdateInput carries the fields a PATCH may change.
type TicketUpdateInput struct {
	Description   *string `json:"description" validate:"omitempty,max=5000"`
	TicketTitleID *string `json:"ticketTitleId" validate:"omitempty,uuid"`
	State         *bool   `json:"state"`
}

// TicketResult is returned by operations that notify the ticket creator.
// The operation succeeded even when Notification.Sent is false.
type TicketResult struct {
	Data         *domain.Ticket     `json:"data"`
	Message      string             `json:"message"`
	Notification NotificationResult `json:"notification"`
}

// TicketService drives the ticket workflow.
type TicketService struct {
	*entityCache[domain.Ticket]
	states     *TicketStateService
	notifier   Notifier
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Dependencies
	States   *TicketStateService
	Notifier Notifier
}

// ticketCrud adapts the filtered ticket repository to the entity cache.
type ticketCrud struct {
	repository.TicketRepository
}

func (t ticketCrud) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Ticket], error) {
	return t.TicketRepository.List(ctx, repository.TicketFilter{Query: q})
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		entityCache: newEntityCache(deps.Dependencies, "Ticket", "ticket", "tickets",
			func(s repository.Store) crudRepository[domain.Ticket] { return ticketCrud{s.Tickets()} }).
			cascading("assignedUserTickets:*"),
		states:     deps.States,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
	}
}

// Create opens a ticket in the first workflow state and assigns the default
// agent of the creator's branch, all in one transaction. The creator is then
// mailed; a failed mail only changes the result message.
func (s *TicketService) Create(ctx context.Context, session *domain.Session, input TicketCreateInput) (*TicketResult, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("User not authenticated")
	}
	titleID := strings.TrimSpace(input.TicketTitleID)
	if titleID == "" {
		return nil, apperrors.NewBadRequest("Ticket title is required")
	}

	ticket := &domain.Ticket{
		Description:   input.Description,
		TicketTitleID: &titleID,
		UserID:        &session.ID,
		State:         true,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		state, err := tx.TicketStates().FindByOrder(ctx, domain.OrderOpen)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("Initial ticket state not found")
		}
		if err != nil {
			return err
		}
		if ok, err := found(tx.TicketTitles().GetByID(ctx, titleID)); err != nil {
			return err
		} else if !ok {
			return apperrors.NewNotFound(fmt.Sprintf("Ticket title with id %s not found", titleID))
		}
		agent, err := s.defaultAgent(ctx, tx, session.BranchID)
		if err != nil {
			return err
		}

		ticket.TicketStateID = &state.ID
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return tx.AssignedUserTickets().Create(ctx, &domain.AssignedUserTicket{TicketID: ticket.ID, UserID: agent.ID})
	})
	if err != nil {
		return nil, s.fail("create ticket", err)
	}
	s.invalidate(ctx, "")

	full := s.reload(ctx, ticket)
	to := session.Email
	if full.User != nil && full.User.Email != "" {
		to = full.User.Email
	}
	note := s.mail(ctx, full, to, full.Code(), notify.TicketTemplate)
	message := "Ticket created successfully"
	if !note.Sent {
		message = fmt.Sprintf("Ticket was created successfully, but the email notification could not be sent. Please contact %s support.", s.notifier.SupportContact())
	}
	s.publish(ctx, events.EventTicketCreated, full, message)
	return &TicketResult{Data: full, Message: message, Notification: note}, nil
}

// FindAll lists the tickets the caller may see: configurators all of them,
// agents those assigned to them and everyone else their own.
func (s *TicketService) FindAll(ctx context.Context, session *domain.Session, q domain.ListQuery) (domain.Page[domain.Ticket], error) {
	if session == nil {
		return domain.Page[domain.Ticket]{}, apperrors.NewUnauthorized("User not authenticated")
	}
	q = q.Normalize()
	filter := repository.TicketFilter{Query: q}
	switch auth.TicketScopeFor(session) {
	case auth.ScopeAssigned:
		filter.AssigneeID = &session.ID
	case auth.ScopeCreated:
		filter.CreatorID = &session.ID
	}
	key := cache.ListKey("tickets:userId:"+session.ID, q)
	return cacheAside(ctx, s.cache, key, 0, func() (domain.Page[domain.Ticket], error) {
		page, err := s.store.Tickets().List(ctx, filter)
		if err != nil {
			return page, s.fail("list tickets", err)
		}
		return page, nil
	})
}

// Assist moves the ticket to the assisted state.
func (s *TicketService) Assist(ctx context.Context, id string) (*TicketResult, error) {
	state, err := s.states.FindByOrder(ctx, domain.OrderAssisted)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, state, notify.TicketTemplate,
		"Ticket pass to Assisted successfully",
		"Ticket was pass to Assisted successfully, but the email notification could not be sent. Please contact %s support")
}

// Close moves the ticket to whichever active state has the highest order.
func (s *TicketService) Close(ctx context.Context, id string) (*TicketResult, error) {
	state, err := s.states.FindLast(ctx)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, id, state, notify.TicketClosedTemplate,
		"Ticket Closeted successfully",
		"Ticket was pass to Closeted successfully, but the email notification could not be sent. Please contact %s support")
}

func (s *TicketService) Update(ctx context.Context, id string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.TicketTitleID != nil {
		if ok, err := found(s.store.TicketTitles().GetByID(ctx, *input.TicketTitleID)); err != nil {
			return nil, s.fail("load ticket title", err)
		} else if !ok {
			return nil, apperrors.NewNotFound(fmt.Sprintf("Ticket title with id %s not found", *input.TicketTitleID))
		}
		ticket.TicketTitleID = input.TicketTitleID
	}
	setIf(&ticket.Description, input.Description)
	setIf(&ticket.State, input.State)
	if err := s.store.Tickets().Update(ctx, ticket); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	s.cache.Del(ctx, threadKey(id))
	return s.reload(ctx, ticket), nil
}

func (s *TicketService) Remove(ctx context.Context, id string) error {
	if err := s.entityCache.Remove(ctx, id); err != nil {
		return err
	}
	s.cache.Del(ctx, threadKey(id))
	return nil
}

// transition is a plain single-row update; the current state is not checked.
func (s *TicketService) transition(ctx context.Context, id string, state *domain.TicketState, tmpl, okMsg, degradedMsg string) (*TicketResult, error) {
	if err := s.store.Tickets().UpdateState(ctx, id, state.ID); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	s.cache.Del(ctx, threadKey(id))

	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	to := ""
	if ticket.User != nil {
		to = ticket.User.Email
	}
	note := s.mail(ctx, ticket, to, "Update "+ticket.Code(), tmpl)
	message := okMsg
	if !note.Sent {
		message = fmt.Sprintf(degradedMsg, s.notifier.SupportContact())
	}
	s.publish(ctx, events.EventTicketStateChanged, ticket, message)
	return &TicketResult{Data: ticket, Message: message, Notification: note}, nil
}

func (s *TicketService) defaultAgent(ctx context.Context, tx repository.Store, branchID *string) (*domain.User, error) {
	if branchID == nil || *branchID == "" {
		return nil, apperrors.NewNotFound("No available agent found for assignment")
	}
	agent, err := tx.Users().FindDefaultAgent(ctx, *branchID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("No available agent found for assignment")
	}
	return agent, err
}

// reload fetches the ticket with its relations, falling back to what we have.
func (s *TicketService) reload(ctx context.Context, ticket *domain.Ticket) *domain.Ticket {
	full, err := s.store.Tickets().GetByID(ctx, ticket.ID)
	if err != nil {
		s.logger.Warn("ticket reload failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return ticket
	}
	return full
}

func (s *TicketService) mail(ctx context.Context, ticket *domain.Ticket, to, subject, tmpl string) NotificationResult {
	return s.notifier.Deliver(ctx, notify.Message{
		To:      nonEmpty(to),
		Subject: subject,
		HTML:    notify.Render(tmpl, ticketMailData(ticket)),
	})
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, message string) {
	payload := events.TicketPayload{TicketNumber: ticket.TicketNumber, Code: ticket.Code(), Message: message}
	if ticket.TicketState != nil {
		payload.State = ticket.TicketState.Title
	}
	s.dispatcher.Publish(ctx, events.New(eventType, ticket.ID, actorID(ctx), payload))
}

func ticketMailData(t *domain.Ticket) map[string]string {
	data := map[string]string{
		"ticketId":        t.ID,
		"ticketNumber":    strconv.FormatInt(t.TicketNumber, 10),
		"ticketCreatedAt": t.CreatedAt.Format(mailDateLayout),
	}
	if t.User != nil {
		data["fullname"] = t.User.FullName()
	}
	if t.TicketState != nil {
		data["ticketState"] = t.TicketState.Title
	}
	if t.TicketTitle != nil {
		data["ticketTitle"] = t.TicketTitle.Description
		if t.TicketTitle.TicketCategory != nil {
			data["prefix"] = t.TicketTitle.TicketCategory.Prefix
		}
		if t.TicketTitle.TicketPriority != nil {
			data["ticketPriority"] = t.TicketTitle.TicketPriority.Title
		}
	}
	return data
}

func threadKey(ticketID string) string {
	return "ticketThread:" + ticketID
}
