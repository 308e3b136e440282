package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// PermissionCreateInput grants methods on an endpoint pattern to a role.
type PermissionCreateInput struct {
	Endpoint string   `json:"endpoint" validate:"required,endpoint"`
	Methods  []string `json:"methods" validate:"required,min=1,dive,oneof=GET POST PUT PATCH DELETE get post put patch delete"`
	RoleID   *string  `json:"roleId" validate:"omitempty,uuid"`
}

// PermissionUpdateInput carries the fields a PATCH may change.
type PermissionUpdateInput struct {
	Endpoint *string  `json:"endpoint" validate:"omitempty,endpoint"`
	Methods  []string `json:"methods" validate:"omitempty,min=1,dive,oneof=GET POST PUT PATCH DELETE get post put patch delete"`
	RoleID   *string  `json:"roleId" validate:"omitempty,uuid"`
}

// PermissionService manages permissions. Every mutation publishes
// EventPermissionChanged for the roles it touched.
type PermissionService struct {
	*entityCache[domain.Permission]
	dispatcher events.Dispatcher
}

// NewPermissionService constructs the service.
func NewPermissionService(deps Dependencies) *PermissionService {
	return &PermissionService{
		entityCache: newEntityCache(deps, "Permission", "permission", "permissions",
			func(s repository.Store) crudRepository[domain.Permission] { return s.Permissions() }).
			cascading("role:*", "roles:*"),
		dispatcher: deps.Dispatcher,
	}
}

func (s *PermissionService) Create(ctx context.Context, input PermissionCreateInput) (*domain.Permission, error) {
	if err := s.ensureRole(ctx, input.RoleID); err != nil {
		return nil, err
	}
	perm := &domain.Permission{
		Endpoint: strings.TrimSpace(input.Endpoint),
		Methods:  normalizeMethods(input.Methods),
		RoleID:   input.RoleID,
	}
	if err := s.store.Permissions().Create(ctx, perm); err != nil {
		return nil, s.fail("create permission", err)
	}
	s.invalidate(ctx, "")
	s.changed(ctx, perm.ID, events.ActionCreated, perm.RoleID)
	return perm, nil
}

func (s *PermissionService) Update(ctx context.Context, id string, input PermissionUpdateInput) (*domain.Permission, error) {
	perm, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previousRole := perm.RoleID
	if input.RoleID != nil {
		if err := s.ensureRole(ctx, input.RoleID); err != nil {
			return nil, err
		}
		perm.RoleID = input.RoleID
	}
	if input.Endpoint != nil {
		perm.Endpoint = strings.TrimSpace(*input.Endpoint)
	}
	if len(input.Methods) > 0 {
		perm.Methods = normalizeMethods(input.Methods)
	}
	if err := s.store.Permissions().Update(ctx, perm); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	s.changed(ctx, id, events.ActionUpdated, previousRole, perm.RoleID)
	return perm, nil
}

func (s *PermissionService) Remove(ctx context.Context, id string) error {
	perm, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.entityCache.Remove(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, id, events.ActionRemoved, perm.RoleID)
	return nil
}

func (s *PermissionService) ensureRole(ctx context.Context, roleID *string) error {
	if roleID == nil {
		return nil
	}
	_, err := s.store.Roles().GetByID(ctx, *roleID)
	if err != nil {
		return roleLookupErr(s.logger, *roleID, err)
	}
	return nil
}

func (s *PermissionService) changed(ctx context.Context, id, action string, roles ...*string) {
	ids := make([]string, 0, len(roles))
	seen := map[string]bool{}
	for _, r := range roles {
		if r != nil && !seen[*r] {
			seen[*r] = true
			ids = append(ids, *r)
		}
	}
	if len(ids) == 0 {
		return
	}
	s.dispatcher.Publish(ctx, events.New(events.EventPermissionChanged, id, actorID(ctx),
		events.RoleChangedPayload{Action: action, RoleIDs: ids}))
}

func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods))
	seen := map[string]bool{}
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
