package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AssignedUserBranchInput links an agent to an extra branch.
type AssignedUserBranchInput struct {
	UserID   string `json:"userId" validate:"required,uuid"`
	BranchID string `json:"branchId" validate:"required,uuid"`
}

// AssignedUserBranchUpdateInput carries the fields a PATCH may change.
type AssignedUserBranchUpdateInput struct {
	UserID   *string `json:"userId" validate:"omitempty,uuid"`
	BranchID *string `json:"branchId" validate:"omitempty,uuid"`
}

// AssignedUserBranchService manages user to branch links.
type AssignedUserBranchService struct {
	*entityCache[domain.AssignedUserBranch]
}

// NewAssignedUserBranchService constructs the service.
func NewAssignedUserBranchService(deps Dependencies) *AssignedUserBranchService {
	return &AssignedUserBranchService{
		entityCache: newEntityCache(deps, "Assigned user branch", "assignedUserBranch", "assignedUserBranches",
			func(s repository.Store) crudRepository[domain.AssignedUserBranch] { return s.AssignedUserBranches() }).
			cascading("users:*"),
	}
}

func (s *AssignedUserBranchService) Create(ctx context.Context, input AssignedUserBranchInput) (*domain.AssignedUserBranch, error) {
	link := &domain.AssignedUserBranch{UserID: input.UserID, BranchID: input.BranchID}
	if err := assignBranch(ctx, s.store, link, true); err != nil {
		return nil, internal(s.logger, "assign user branch", err)
	}
	s.invalidate(ctx, "")
	return link, nil
}

func (s *AssignedUserBranchService) Update(ctx context.Context, id string, input AssignedUserBranchUpdateInput) (*domain.AssignedUserBranch, error) {
	link, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	userChanged := input.UserID != nil && *input.UserID != link.UserID
	branchChanged := input.BranchID != nil && *input.BranchID != link.BranchID
	if !userChanged && !branchChanged {
		return link, nil
	}
	setIf(&link.UserID, input.UserID)
	setIf(&link.BranchID, input.BranchID)
	link.User, link.Branch = nil, nil
	if err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := checkBranchLink(ctx, tx, link, userChanged); err != nil {
			return err
		}
		return tx.AssignedUserBranches().Update(ctx, link)
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.lookupErr(id, err)
		}
		return nil, internal(s.logger, "update user branch", err)
	}
	s.invalidate(ctx, id)
	return link, nil
}

// assignBranch validates and inserts one user to branch link on store.
func assignBranch(ctx context.Context, store repository.Store, link *domain.AssignedUserBranch, checkRole bool) error {
	if err := checkBranchLink(ctx, store, link, checkRole); err != nil {
		return err
	}
	return store.AssignedUserBranches().Create(ctx, link)
}

func checkBranchLink(ctx context.Context, store repository.Store, link *domain.AssignedUserBranch, checkRole bool) error {
	user, err := store.Users().GetByID(ctx, link.UserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(fmt.Sprintf("User with id %s not found", link.UserID))
	}
	if err != nil {
		return err
	}
	if checkRole {
		if err := auth.ValidateBranchRole(user.Role); err != nil {
			return err
		}
	}
	if ok, err := found(store.Branches().GetByID(ctx, link.BranchID)); err != nil {
		return err
	} else if !ok {
		return apperrors.NewNotFound(fmt.Sprintf("Branch with id %s not found", link.BranchID))
	}
	existing, err := store.AssignedUserBranches().FindByPair(ctx, link.UserID, link.BranchID)
	if err == nil && existing.ID != link.ID {
		return apperrors.NewBadRequest(fmt.Sprintf("User with id %s is already assigned to branch with id %s", link.UserID, link.BranchID))
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

// AssignedUserTicketInput links an agent to a ticket.
type AssignedUserTicketInput struct {
	TicketID string `json:"ticketId" validate:"required,uuid"`
	UserID   string `json:"userId" validate:"required,uuid"`
}

// AssignedUserTicketUpdateInput carries the fields a PATCH may change.
type AssignedUserTicketUpdateInput struct {
	TicketID *string `json:"ticketId" validate:"omitempty,uuid"`
	UserID   *string `json:"userId" validate:"omitempty,uuid"`
}

// AssignedUserTicketService manages ticket assignments.
type AssignedUserTicketService struct {
	*entityCache[domain.AssignedUserTicket]
}

// NewAssignedUserTicketService constructs the service.
func NewAssignedUserTicketService(deps Dependencies) *AssignedUserTicketService {
	return &AssignedUserTicketService{
		entityCache: newEntityCache(deps, "Assigned user ticket", "assignedUserTicket", "assignedUserTickets",
			func(s repository.Store) crudRepository[domain.AssignedUserTicket] { return s.AssignedUserTickets() }).
			cascading("ticket:*", "tickets:*", "ticketThread:*"),
	}
}

func (s *AssignedUserTicketService) Create(ctx context.Context, input AssignedUserTicketInput) (*domain.AssignedUserTicket, error) {
	link := &domain.AssignedUserTicket{TicketID: input.TicketID, UserID: input.UserID}
	if err := s.check(ctx, link); err != nil {
		return nil, err
	}
	if err := s.store.AssignedUserTickets().Create(ctx, link); err != nil {
		return nil, s.fail("assign user ticket", err)
	}
	s.invalidate(ctx, "")
	return link, nil
}

func (s *AssignedUserTicketService) Update(ctx context.Context, id string, input AssignedUserTicketUpdateInput) (*domain.AssignedUserTicket, error) {
	link, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if (input.TicketID == nil || *input.TicketID == link.TicketID) && (input.UserID == nil || *input.UserID == link.UserID) {
		return link, nil
	}
	setIf(&link.TicketID, input.TicketID)
	setIf(&link.UserID, input.UserID)
	link.User = nil
	if err := s.check(ctx, link); err != nil {
		return nil, err
	}
	if err := s.store.AssignedUserTickets().Update(ctx, link); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return link, nil
}

func (s *AssignedUserTicketService) check(ctx context.Context, link *domain.AssignedUserTicket) error {
	if ok, err := found(s.store.Tickets().GetByID(ctx, link.TicketID)); err != nil {
		return s.fail("load ticket", err)
	} else if !ok {
		return apperrors.NewNotFound(fmt.Sprintf("Ticket with id %s not found", link.TicketID))
	}
	if ok, err := found(s.store.Users().GetByID(ctx, link.UserID)); err != nil {
		return s.fail("load user", err)
	} else if !ok {
		return apperrors.NewNotFound(fmt.Sprintf("User with id %s not found", link.UserID))
	}
	existing, err := s.store.AssignedUserTickets().FindByPair(ctx, link.TicketID, link.UserID)
	if err == nil && existing.ID != link.ID {
		return apperrors.NewBadRequest(fmt.Sprintf("User with id %s is already assigned to ticket with id %s", link.UserID, link.TicketID))
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return s.fail("check user ticket", err)
	}
	return nil
}

// AssignedMenuRoleInput links a menu to a role.
type AssignedMenuRoleInput struct {
	MenuID string `json:"menuId" validate:"required,uuid"`
	RoleID string `json:"roleId" validate:"required,uuid"`
}

// AssignedMenuRoleUpdateInput carries the fields a PATCH may change.
type AssignedMenuRoleUpdateInput struct {
	MenuID *string `json:"menuId" validate:"omitempty,uuid"`
	RoleID *string `json:"roleId" validate:"omitempty,uuid"`
}

// AccessLevelInput replaces the full menu set of a role.
type AccessLevelInput struct {
	RoleID   string   `json:"roleId" validate:"required,uuid"`
	DataMenu []string `json:"dataMenu" validate:"dive,uuid"`
}

// AccessLevelResult reports the links created by AssignAccessLevel.
type AccessLevelResult struct {
	Success bool                      `json:"success"`
	Data    []domain.AssignedMenuRole `json:"data"`
	Message string                    `json:"message"`
}

// AssignedMenuRoleService manages which menus each role can open.
type AssignedMenuRoleService struct {
	*entityCache[domain.AssignedMenuRole]
}

// NewAssignedMenuRoleService constructs the service.
func NewAssignedMenuRoleService(deps Dependencies) *AssignedMenuRoleService {
	return &AssignedMenuRoleService{
		entityCache: newEntityCache(deps, "Assigned menu role", "assignedMenuRole", "assignedMenuRoles",
			func(s repository.Store) crudRepository[domain.AssignedMenuRole] { return s.AssignedMenuRoles() }).
			cascading("menus:*"),
	}
}

func (s *AssignedMenuRoleService) Create(ctx context.Context, input AssignedMenuRoleInput) (*domain.AssignedMenuRole, error) {
	link := &domain.AssignedMenuRole{MenuID: input.MenuID, RoleID: input.RoleID}
	if err := s.check(ctx, s.store, link); err != nil {
		return nil, err
	}
	if err := s.store.AssignedMenuRoles().Create(ctx, link); err != nil {
		return nil, s.fail("assign menu role", err)
	}
	s.invalidate(ctx, "")
	return link, nil
}

func (s *AssignedMenuRoleService) Update(ctx context.Context, id string, input AssignedMenuRoleUpdateInput) (*domain.AssignedMenuRole, error) {
	link, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if (input.MenuID == nil || *input.MenuID == link.MenuID) && (input.RoleID == nil || *input.RoleID == link.RoleID) {
		return link, nil
	}
	setIf(&link.MenuID, input.MenuID)
	setIf(&link.RoleID, input.RoleID)
	link.Menu = nil
	if err := s.check(ctx, s.store, link); err != nil {
		return nil, err
	}
	if err := s.store.AssignedMenuRoles().Update(ctx, link); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return link, nil
}

// AssignAccessLevel replaces the menus of a role in one transaction.
func (s *AssignedMenuRoleService) AssignAccessLevel(ctx context.Context, input AccessLevelInput) (*AccessLevelResult, error) {
	if input.RoleID == "" || len(input.DataMenu) == 0 {
		return nil, apperrors.NewBadRequest("roleId and dataMenu are required.")
	}
	created := make([]domain.AssignedMenuRole, 0, len(input.DataMenu))
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Roles().GetByID(ctx, input.RoleID); err != nil {
			return roleLookupErr(s.logger, input.RoleID, err)
		}
		if _, err := tx.AssignedMenuRoles().SoftDeleteByRole(ctx, input.RoleID); err != nil {
			return err
		}
		seen := make(map[string]bool, len(input.DataMenu))
		for _, menuID := range input.DataMenu {
			if seen[menuID] {
				continue
			}
			seen[menuID] = true
			if ok, err := found(tx.Menus().GetByID(ctx, menuID)); err != nil {
				return err
			} else if !ok {
				return apperrors.NewNotFound(fmt.Sprintf("Menu with ID '%s' not found.", menuID))
			}
			link := domain.AssignedMenuRole{MenuID: menuID, RoleID: input.RoleID}
			if err := tx.AssignedMenuRoles().Create(ctx, &link); err != nil {
				return err
			}
			created = append(created, link)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("assign access level", err)
	}
	s.invalidate(ctx, "")
	return &AccessLevelResult{Success: true, Data: created, Message: "Assignment successful."}, nil
}

func (s *AssignedMenuRoleService) check(ctx context.Context, store repository.Store, link *domain.AssignedMenuRole) error {
	if ok, err := found(store.Menus().GetByID(ctx, link.MenuID)); err != nil {
		return s.fail("load menu", err)
	} else if !ok {
		return apperrors.NewNotFound(fmt.Sprintf("Menu with ID '%s' not found.", link.MenuID))
	}
	if _, err := store.Roles().GetByID(ctx, link.RoleID); err != nil {
		return roleLookupErr(s.logger, link.RoleID, err)
	}
	existing, err := store.AssignedMenuRoles().FindByPair(ctx, link.MenuID, link.RoleID)
	if err == nil && existing.ID != link.ID {
		return apperrors.NewConflict(fmt.Sprintf("Menu with id %s is already assigned to role with id %s", link.MenuID, link.RoleID))
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return s.fail("check menu role", err)
	}
	return nil
}
