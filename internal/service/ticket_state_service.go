package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Cached under the plural prefix so every state mutation drops them.
const (
	lastStateKey       = "ticketStates:last"
	stateByOrderPrefix = "ticketStates:order:"
)

// TicketStateCreateInput is the payload for a new workflow state.
type TicketStateCreateInput struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	OrderTicket int    `json:"orderTicket" validate:"gte=1"`
	State       *bool  `json:"state"`
}

// TicketStateUpdateInput carries the fields a PATCH may change.
type TicketStateUpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	OrderTicket *int    `json:"orderTicket" validate:"omitempty,gte=1"`
	State       *bool   `json:"state"`
}

// TicketStateService manages the workflow states tickets move through.
type TicketStateService struct {
	*entityCache[domain.TicketState]
}

// NewTicketStateService constructs the service.
func NewTicketStateService(deps Dependencies) *TicketStateService {
	return &TicketStateService{
		entityCache: newEntityCache(deps, "Ticket state", "ticketState", "ticketStates",
			func(s repository.Store) crudRepository[domain.TicketState] { return s.TicketStates() }).
			cascading("ticket:*", "tickets:*", "ticketThread:*"),
	}
}

func (s *TicketStateService) Create(ctx context.Context, input TicketStateCreateInput) (*domain.TicketState, error) {
	title := strings.TrimSpace(input.Title)
	if err := s.ensureTitleFree(ctx, title); err != nil {
		return nil, err
	}
	state := &domain.TicketState{
		Title:       title,
		Description: input.Description,
		OrderTicket: input.OrderTicket,
		State:       boolOr(input.State, true),
	}
	if err := s.store.TicketStates().Create(ctx, state); err != nil {
		return nil, s.fail("create ticket state", err)
	}
	s.invalidate(ctx, "")
	return state, nil
}

func (s *TicketStateService) Update(ctx context.Context, id string, input TicketStateUpdateInput) (*domain.TicketState, error) {
	state, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title != state.Title {
			if err := s.ensureTitleFree(ctx, title); err != nil {
				return nil, err
			}
		}
		state.Title = title
	}
	setIf(&state.Description, input.Description)
	setIf(&state.OrderTicket, input.OrderTicket)
	setIf(&state.State, input.State)
	if err := s.store.TicketStates().Update(ctx, state); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return state, nil
}

// FindByOrder returns the active state holding order.
func (s *TicketStateService) FindByOrder(ctx context.Context, order int) (*domain.TicketState, error) {
	return cacheAside(ctx, s.cache, stateByOrderPrefix+strconv.Itoa(order), 0, func() (*domain.TicketState, error) {
		state, err := s.store.TicketStates().FindByOrder(ctx, order)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("Ticket state with order %d not found", order))
		}
		if err != nil {
			return nil, s.fail("load ticket state by order", err)
		}
		return state, nil
	})
}

// FindLast returns the active state with the highest order, which is what
// closing a ticket moves it to.
func (s *TicketStateService) FindLast(ctx context.Context) (*domain.TicketState, error) {
	return cacheAside(ctx, s.cache, lastStateKey, 0, func() (*domain.TicketState, error) {
		state, err := s.store.TicketStates().FindLast(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("No active ticket state found")
		}
		if err != nil {
			return nil, s.fail("load last ticket state", err)
		}
		return state, nil
	})
}

func (s *TicketStateService) ensureTitleFree(ctx context.Context, title string) error {
	taken, err := found(s.store.TicketStates().GetByTitle(ctx, title))
	if err != nil {
		return s.fail("check ticket state title", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("Ticket state with title %s already exists", title))
	}
	return nil
}
