package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RoleCreateInput is the payload for a new role.
type RoleCreateInput struct {
	Name           string `json:"name" validate:"required,max=80"`
	IsAgent        bool   `json:"isAgent"`
	IsAdmin        bool   `json:"isAdmin"`
	IsConfigurator bool   `json:"isConfigurator"`
	State          *bool  `json:"state"`
}

// RoleUpdateInput carries the fields a PATCH may change.
type RoleUpdateInput struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=80"`
	IsAgent        *bool   `json:"isAgent"`
	IsAdmin        *bool   `json:"isAdmin"`
	IsConfigurator *bool   `json:"isConfigurator"`
	State          *bool   `json:"state"`
}

// RoleService manages roles. Changes to an existing role publish
// EventRoleChanged so cached sessions of its users are dropped.
type RoleService struct {
	*entityCache[domain.Role]
	dispatcher events.Dispatcher
}

// NewRoleService constructs the service.
func NewRoleService(deps Dependencies) *RoleService {
	return &RoleService{
		entityCache: newEntityCache(deps, "Role", "role", "roles",
			func(s repository.Store) crudRepository[domain.Role] { return s.Roles() }).
			cascading("user:*", "users:*"),
		dispatcher: deps.Dispatcher,
	}
}

func (s *RoleService) Create(ctx context.Context, input RoleCreateInput) (*domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}
	role := &domain.Role{
		Name:           name,
		IsAgent:        input.IsAgent,
		IsAdmin:        input.IsAdmin,
		IsConfigurator: input.IsConfigurator,
		State:          boolOr(input.State, true),
	}
	if err := s.store.Roles().Create(ctx, role); err != nil {
		return nil, s.fail("create role", err)
	}
	s.invalidate(ctx, "")
	return role, nil
}

// ListActive returns the active roles offered at sign-up and login screens.
func (s *RoleService) ListActive(ctx context.Context) ([]domain.Role, error) {
	return cacheAside(ctx, s.cache, "roles:active", 0, func() ([]domain.Role, error) {
		roles, err := s.store.Roles().ListActive(ctx)
		if err != nil {
			return nil, s.fail("list active roles", err)
		}
		return roles, nil
	})
}

func (s *RoleService) Update(ctx context.Context, id string, input RoleUpdateInput) (*domain.Role, error) {
	role, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != role.Name {
			if err := s.ensureNameFree(ctx, name); err != nil {
				return nil, err
			}
		}
		role.Name = name
	}
	setIf(&role.IsAgent, input.IsAgent)
	setIf(&role.IsAdmin, input.IsAdmin)
	setIf(&role.IsConfigurator, input.IsConfigurator)
	setIf(&role.State, input.State)
	if err := s.store.Roles().Update(ctx, role); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	s.changed(ctx, id, events.ActionUpdated)
	return role, nil
}

func (s *RoleService) Remove(ctx context.Context, id string) error {
	if err := s.entityCache.Remove(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, id, events.ActionRemoved)
	return nil
}

func (s *RoleService) invalidate(ctx context.Context, id string) {
	s.entityCache.invalidate(ctx, id)
}

func (s *RoleService) changed(ctx context.Context, id, action string) {
	s.dispatcher.Publish(ctx, events.New(events.EventRoleChanged, id, actorID(ctx),
		events.RoleChangedPayload{Action: action, RoleIDs: []string{id}}))
}

func (s *RoleService) ensureNameFree(ctx context.Context, name string) error {
	taken, err := found(s.store.Roles().GetByName(ctx, name))
	if err != nil {
		return s.fail("check role name", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("Role with name %s already exists", name))
	}
	return nil
}
