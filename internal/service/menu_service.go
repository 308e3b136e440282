package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// MenuCreateInput is the payload for a new navigation entry.
type MenuCreateInput struct {
	Description string  `json:"description" validate:"required,max=120"`
	Father      *string `json:"father" validate:"omitempty,uuid"`
	NameView    *string `json:"nameView" validate:"omitempty,max=120"`
	ClassIcon   string  `json:"classIcon" validate:"max=120"`
	OrderItem   int     `json:"orderItem" validate:"gte=0"`
	State       *bool   `json:"state"`
}

// MenuUpdateInput carries the fields a PATCH may change.
type MenuUpdateInput struct {
	Description *string `json:"description" validate:"omitempty,min=1,max=120"`
	Father      *string `json:"father" validate:"omitempty,uuid"`
	NameView    *string `json:"nameView" validate:"omitempty,max=120"`
	ClassIcon   *string `json:"classIcon" validate:"omitempty,max=120"`
	OrderItem   *int    `json:"orderItem" validate:"omitempty,gte=0"`
	State       *bool   `json:"state"`
}

// MenuService manages the navigation tree and what each role can see of it.
type MenuService struct {
	*entityCache[domain.Menu]
}

// NewMenuService constructs the service.
func NewMenuService(deps Dependencies) *MenuService {
	return &MenuService{
		entityCache: newEntityCache(deps, "Menu", "menu", "menus",
			func(s repository.Store) crudRepository[domain.Menu] { return s.Menus() }).
			cascading("assignedMenuRole:*", "assignedMenuRoles:*"),
	}
}

func (s *MenuService) Create(ctx context.Context, input MenuCreateInput) (*domain.Menu, error) {
	nameView := trimmed(input.NameView)
	if err := s.ensureNameViewFree(ctx, nameView); err != nil {
		return nil, err
	}
	if err := s.ensureFather(ctx, "", input.Father); err != nil {
		return nil, err
	}
	menu := &domain.Menu{
		Description: strings.TrimSpace(input.Description),
		Father:      input.Father,
		NameView:    nameView,
		ClassIcon:   input.ClassIcon,
		OrderItem:   input.OrderItem,
		State:       boolOr(input.State, true),
	}
	if err := s.store.Menus().Create(ctx, menu); err != nil {
		return nil, s.fail("create menu", err)
	}
	s.invalidate(ctx, "")
	return menu, nil
}

func (s *MenuService) Update(ctx context.Context, id string, input MenuUpdateInput) (*domain.Menu, error) {
	menu, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.NameView != nil {
		nameView := trimmed(input.NameView)
		if nameView != nil && (menu.NameView == nil || *nameView != *menu.NameView) {
			if err := s.ensureNameViewFree(ctx, nameView); err != nil {
				return nil, err
			}
		}
		menu.NameView = nameView
	}
	if input.Father != nil {
		if err := s.ensureFather(ctx, id, input.Father); err != nil {
			return nil, err
		}
		menu.Father = input.Father
	}
	setIf(&menu.Description, input.Description)
	setIf(&menu.ClassIcon, input.ClassIcon)
	setIf(&menu.OrderItem, input.OrderItem)
	setIf(&menu.State, input.State)
	if err := s.store.Menus().Update(ctx, menu); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return menu, nil
}

// Fathers returns the active top-level menus.
func (s *MenuService) Fathers(ctx context.Context) ([]domain.Menu, error) {
	return cacheAside(ctx, s.cache, "menus:fathers", 0, func() ([]domain.Menu, error) {
		menus, err := s.store.Menus().ListFathers(ctx)
		if err != nil {
			return nil, s.fail("list father menus", err)
		}
		return menus, nil
	})
}

// ByRole returns the active menus assigned to a role, ordered by orderItem.
func (s *MenuService) ByRole(ctx context.Context, roleID string) ([]domain.Menu, error) {
	return cacheAside(ctx, s.cache, "menus:role:"+roleID, 0, func() ([]domain.Menu, error) {
		menus, err := s.store.Menus().ListByRole(ctx, roleID)
		if err != nil {
			return nil, s.fail("list role menus", err)
		}
		return menus, nil
	})
}

// PermissionsByRole lists every active menu and marks those the role can see.
func (s *MenuService) PermissionsByRole(ctx context.Context, roleID string) ([]domain.MenuAccess, error) {
	return cacheAside(ctx, s.cache, "menus:permission:"+roleID, 0, func() ([]domain.MenuAccess, error) {
		all, err := s.store.Menus().ListActive(ctx)
		if err != nil {
			return nil, s.fail("list menus", err)
		}
		assigned, err := s.store.Menus().ListByRole(ctx, roleID)
		if err != nil {
			return nil, s.fail("list role menus", err)
		}
		selected := make(map[string]bool, len(assigned))
		for _, m := range assigned {
			selected[m.ID] = true
		}
		out := make([]domain.MenuAccess, 0, len(all))
		for _, m := range all {
			out = append(out, domain.MenuAccess{Menu: m, Selected: selected[m.ID]})
		}
		return out, nil
	})
}

func (s *MenuService) ensureNameViewFree(ctx context.Context, nameView *string) error {
	if nameView == nil {
		return nil
	}
	taken, err := found(s.store.Menus().GetByNameView(ctx, *nameView))
	if err != nil {
		return s.fail("check menu name view", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("Menu with nameView %s already exists", *nameView))
	}
	return nil
}

func (s *MenuService) ensureFather(ctx context.Context, id string, father *string) error {
	if father == nil {
		return nil
	}
	if *father == id {
		return apperrors.NewBadRequest("A menu cannot be its own father")
	}
	ok, err := found(s.store.Menus().GetByID(ctx, *father))
	if err != nil {
		return s.fail("load father menu", err)
	}
	if !ok {
		return apperrors.NewNotFound(fmt.Sprintf("Menu with ID '%s' not found.", *father))
	}
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
