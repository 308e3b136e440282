package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketCategoryCreateInput is the payload for a new category.
type TicketCategoryCreateInput struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	Prefix      string `json:"prefix" validate:"required,alphanum,max=10"`
	State       *bool  `json:"state"`
}

// TicketCategoryUpdateInput carries the fields a PATCH may change.
type TicketCategoryUpdateInput struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Prefix      *string `json:"prefix" validate:"omitempty,alphanum,max=10"`
	State       *bool   `json:"state"`
}

// TicketCategoryService manages categories; prefixes are unique.
type TicketCategoryService struct {
	*entityCache[domain.TicketCategory]
}

// NewTicketCategoryService constructs the service.
func NewTicketCategoryService(deps Dependencies) *TicketCategoryService {
	return &TicketCategoryService{
		entityCache: newEntityCache(deps, "Ticket category", "ticketCategory", "ticketCategories",
			func(s repository.Store) crudRepository[domain.TicketCategory] { return s.TicketCategories() }).
			cascading("ticketTitle:*", "ticketTitles:*", "ticket:*", "tickets:*", "ticketThread:*"),
	}
}

func (s *TicketCategoryService) Create(ctx context.Context, input TicketCategoryCreateInput) (*domain.TicketCategory, error) {
	prefix := strings.ToUpper(strings.TrimSpace(input.Prefix))
	if err := s.ensurePrefixFree(ctx, prefix); err != nil {
		return nil, err
	}
	category := &domain.TicketCategory{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Prefix:      prefix,
		State:       boolOr(input.State, true),
	}
	if err := s.store.TicketCategories().Create(ctx, category); err != nil {
		return nil, s.fail("create ticket category", err)
	}
	s.invalidate(ctx, "")
	return category, nil
}

func (s *TicketCategoryService) Update(ctx context.Context, id string, input TicketCategoryUpdateInput) (*domain.TicketCategory, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Prefix != nil {
		prefix := strings.ToUpper(strings.TrimSpace(*input.Prefix))
		if prefix != category.Prefix {
			if err := s.ensurePrefixFree(ctx, prefix); err != nil {
				return nil, err
			}
		}
		category.Prefix = prefix
	}
	setIf(&category.Title, input.Title)
	setIf(&category.Description, input.Description)
	setIf(&category.State, input.State)
	if err := s.store.TicketCategories().Update(ctx, category); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return category, nil
}

func (s *TicketCategoryService) ensurePrefixFree(ctx context.Context, prefix string) error {
	taken, err := found(s.store.TicketCategories().GetByPrefix(ctx, prefix))
	if err != nil {
		return s.fail("check category prefix", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("Ticket category with prefix %s already exists", prefix))
	}
	return nil
}

// TicketPriorityCreateInput is the payload for a new priority.
type TicketPriorityCreateInput struct {
	Title           string `json:"title" validate:"required,max=120"`
	Description     string `json:"description" validate:"max=500"`
	HoursResponse   int    `json:"hoursResponse" validate:"gte=0"`
	HoursResolution int    `json:"hoursResolution" validate:"gte=0"`
	State           *bool  `json:"state"`
}

// TicketPriorityUpdateInput carries the fields a PATCH may change.
type TicketPriorityUpdateInput struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=120"`
	Description     *string `json:"description" validate:"omitempty,max=500"`
	HoursResponse   *int    `json:"hoursResponse" validate:"omitempty,gte=0"`
	HoursResolution *int    `json:"hoursResolution" validate:"omitempty,gte=0"`
	State           *bool   `json:"state"`
}

// TicketPriorityService manages priorities; titles are unique.
type TicketPriorityService struct {
	*entityCache[domain.TicketPriority]
}

// NewTicketPriorityService constructs the service.
func NewTicketPriorityService(deps Dependencies) *TicketPriorityService {
	return &TicketPriorityService{
		entityCache: newEntityCache(deps, "Ticket priority", "ticketPriority", "ticketPriorities",
			func(s repository.Store) crudRepository[domain.TicketPriority] { return s.TicketPriorities() }).
			cascading("ticketTitle:*", "ticketTitles:*", "ticket:*", "tickets:*", "ticketThread:*"),
	}
}

func (s *TicketPriorityService) Create(ctx context.Context, input TicketPriorityCreateInput) (*domain.TicketPriority, error) {
	title := strings.TrimSpace(input.Title)
	if err := s.ensureTitleFree(ctx, title); err != nil {
		return nil, err
	}
	priority := &domain.TicketPriority{
		Title:           title,
		Description:     input.Description,
		HoursResponse:   input.HoursResponse,
		HoursResolution: input.HoursResolution,
		State:           boolOr(input.State, true),
	}
	if err := s.store.TicketPriorities().Create(ctx, priority); err != nil {
		return nil, s.fail("create ticket priority", err)
	}
	s.invalidate(ctx, "")
	return priority, nil
}

func (s *TicketPriorityService) Update(ctx context.Context, id string, input TicketPriorityUpdateInput) (*domain.TicketPriority, error) {
	priority, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title != priority.Title {
			if err := s.ensureTitleFree(ctx, title); err != nil {
				return nil, err
			}
		}
		priority.Title = title
	}
	setIf(&priority.Description, input.Description)
	setIf(&priority.HoursResponse, input.HoursResponse)
	setIf(&priority.HoursResolution, input.HoursResolution)
	setIf(&priority.State, input.State)
	if err := s.store.TicketPriorities().Update(ctx, priority); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return priority, nil
}

func (s *TicketPriorityService) ensureTitleFree(ctx context.Context, title string) error {
	taken, err := found(s.store.TicketPriorities().GetByTitle(ctx, title))
	if err != nil {
		return s.fail("check priority title", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("Ticket priority with title %s already exists", title))
	}
	return nil
}

// TicketTitleCreateInput is the payload for a new predefined title.
type TicketTitleCreateInput struct {
	Description      string  `json:"description" validate:"required,max=255"`
	TicketCategoryID *string `json:"ticketCategoryId" validate:"omitempty,uuid"`
	TicketPriorityID *string `json:"ticketPriorityId" validate:"omitempty,uuid"`
	State            *bool   `json:"state"`
}

// TicketTitleUpdateInput carries the fields a PATCH may change.
type TicketTitleUpdateInput struct {
	Description      *string `json:"description" validate:"omitempty,min=1,max=255"`
	TicketCategoryID *string `json:"ticketCategoryId" validate:"omitempty,uuid"`
	TicketPriorityID *string `json:"ticketPriorityId" validate:"omitempty,uuid"`
	State            *bool   `json:"state"`
}

// TicketTitleService manages predefined titles; descriptions are unique.
type TicketTitleService struct {
	*entityCache[domain.TicketTitle]
}

// NewTicketTitleService constructs the service.
func NewTicketTitleService(deps Dependencies) *TicketTitleService {
	return &TicketTitleService{
		entityCache: newEntityCache(deps, "Ticket title", "ticketTitle", "ticketTitles",
			func(s repository.Store) crudRepository[domain.TicketTitle] { return s.TicketTitles() }).
			cascading("ticket:*", "tickets:*", "ticketThread:*"),
	}
}

func (s *TicketTitleService) Create(ctx context.Context, input TicketTitleCreateInput) (*domain.TicketTitle, error) {
	description := strings.TrimSpace(input.Description)
	if err := s.ensureDescriptionFree(ctx, description); err != nil {
		return nil, err
	}
	if err := s.ensureRefs(ctx, input.TicketCategoryID, input.TicketPriorityID); err != nil {
		return nil, err
	}
	title := &domain.TicketTitle{
		Description:      description,
		TicketCategoryID: input.TicketCategoryID,
		TicketPriorityID: input.TicketPriorityID,
		State:            boolOr(input.State, true),
	}
	if err := s.store.TicketTitles().Create(ctx, title); err != nil {
		return nil, s.fail("create ticket title", err)
	}
	s.invalidate(ctx, "")
	return title, nil
}

func (s *TicketTitleService) Update(ctx context.Context, id string, input TicketTitleUpdateInput) (*domain.TicketTitle, error) {
	title, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description != title.Description {
			if err := s.ensureDescriptionFree(ctx, description); err != nil {
				return nil, err
			}
		}
		title.Description = description
	}
	if err := s.ensureRefs(ctx, input.TicketCategoryID, input.TicketPriorityID); err != nil {
		return nil, err
	}
	if input.TicketCategoryID != nil {
		title.TicketCategoryID = input.TicketCategoryID
	}
	if input.TicketPriorityID != nil {
		title.TicketPriorityID = input.TicketPriorityID
	}
	setIf(&title.State, input.State)
	if err := s.store.TicketTitles().Update(ctx, title); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return title, nil
}

func (s *TicketTitleService) ensureRefs(ctx context.Context, categoryID, priorityID *string) error {
	if categoryID != nil {
		if ok, err := found(s.store.TicketCategories().GetByID(ctx, *categoryID)); err != nil {
			return s.fail("load ticket category", err)
		} else if !ok {
			return apperrors.NewNotFound(fmt.Sprintf("Ticket category with id %s not found", *categoryID))
		}
	}
	if priorityID != nil {
		if ok, err := found(s.store.TicketPriorities().GetByID(ctx, *priorityID)); err != nil {
			return s.fail("load ticket priority", err)
		} else if !ok {
			return apperrors.NewNotFound(fmt.Sprintf("Ticket priority with id %s not found", *priorityID))
		}
	}
	return nil
}

func (s *TicketTitleService) ensureDescriptionFree(ctx context.Context, description string) error {
	taken, err := found(s.store.TicketTitles().GetByDescription(ctx, description))
	if err != nil {
		return s.fail("check ticket title", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("Ticket title %s already exists", description))
	}
	return nil
}
