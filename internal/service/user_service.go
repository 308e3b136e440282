package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// UserCreateInput registers a user, an agent or a company record.
type UserCreateInput struct {
	Name                 string   `json:"name" validate:"required,max=120"`
	Lastname             string   `json:"lastname" validate:"max=120"`
	Email                string   `json:"email" validate:"required,email"`
	Username             string   `json:"username" validate:"required,min=6,max=60"`
	Password             string   `json:"password" validate:"required,min=6,max=72"`
	Address              string   `json:"address" validate:"max=255"`
	Phone                *string  `json:"phone" validate:"omitempty,max=30"`
	NumberIdentification *string  `json:"numberIdentification" validate:"omitempty,max=30"`
	CompanyName          *string  `json:"companyname" validate:"omitempty,max=120"`
	CompanyID            *string  `json:"companyId" validate:"omitempty,uuid"`
	RoleID               *string  `json:"roleId" validate:"omitempty,uuid"`
	BranchID             *string  `json:"branchId" validate:"omitempty,uuid"`
	Branches             []string `json:"branches" validate:"omitempty,dive,uuid"`
	IsAgentDefault       bool     `json:"isAgentDefault"`
	State                *bool    `json:"state"`
}

// UserUpdateInput carries the fields a PATCH may change.
type UserUpdateInput struct {
	Name                 *string `json:"name" validate:"omitempty,min=1,max=120"`
	Lastname             *string `json:"lastname" validate:"omitempty,max=120"`
	Email                *string `json:"email" validate:"omitempty,email"`
	Username             *string `json:"username" validate:"omitempty,min=6,max=60"`
	Password             *string `json:"password" validate:"omitempty,min=6,max=72"`
	Address              *string `json:"address" validate:"omitempty,max=255"`
	Phone                *string `json:"phone" validate:"omitempty,max=30"`
	NumberIdentification *string `json:"numberIdentification" validate:"omitempty,max=30"`
	CompanyName          *string `json:"companyname" validate:"omitempty,max=120"`
	CompanyID            *string `json:"companyId" validate:"omitempty,uuid"`
	RoleID               *string `json:"roleId" validate:"omitempty,uuid"`
	BranchID             *string `json:"branchId" validate:"omitempty,uuid"`
	IsAgentDefault       *bool   `json:"isAgentDefault"`
	State                *bool   `json:"state"`
}

// UserService manages accounts. Updates and removals publish EventUserChanged
// so the user's cached session is dropped.
type UserService struct {
	*entityCache[domain.User]
	hasher     *auth.PasswordHasher
	dispatcher events.Dispatcher
}

// NewUserService constructs the service.
func NewUserService(deps Dependencies, hasher *auth.PasswordHasher) *UserService {
	return &UserService{
		entityCache: newEntityCache(deps, "User", "user", "users",
			func(s repository.Store) crudRepository[domain.User] { return s.Users() }).
			cascading("assignedUserBranch:*", "assignedUserBranches:*", "assignedUserTicket:*", "assignedUserTickets:*",
				"ticket:*", "tickets:*", "ticketThread:*"),
		hasher:     hasher,
		dispatcher: deps.Dispatcher,
	}
}

// Create stores the user and, when branches is given, links it to each of
// them in the same transaction.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	if input.BranchID != nil && len(input.Branches) > 0 {
		return nil, apperrors.NewBadRequest("Cannot specify both branchId and branches")
	}
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}
	if err := s.ensureRefs(ctx, input.RoleID, input.BranchID, input.CompanyID); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, s.fail("hash password", err)
	}
	user := &domain.User{
		Name:                 strings.TrimSpace(input.Name),
		Lastname:             strings.TrimSpace(input.Lastname),
		Email:                email,
		Username:             username,
		PasswordHash:         hash,
		Address:              input.Address,
		Phone:                input.Phone,
		NumberIdentification: input.NumberIdentification,
		CompanyName:          input.CompanyName,
		CompanyID:            input.CompanyID,
		RoleID:               input.RoleID,
		BranchID:             input.BranchID,
		IsAgentDefault:       input.IsAgentDefault,
		State:                boolOr(input.State, true),
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		for _, branchID := range uniqueStrings(input.Branches) {
			link := &domain.AssignedUserBranch{UserID: user.ID, BranchID: branchID}
			if err := assignBranch(ctx, tx, link, true); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("create user", err)
	}
	s.invalidate(ctx, "")
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username != user.Username {
			if err := s.ensureUsernameFree(ctx, username); err != nil {
				return nil, err
			}
		}
		user.Username = username
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email); err != nil {
				return nil, err
			}
		}
		user.Email = email
	}
	if err := s.ensureRefs(ctx, input.RoleID, input.BranchID, input.CompanyID); err != nil {
		return nil, err
	}
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, s.fail("hash password", err)
		}
		user.PasswordHash = hash
	}
	setIf(&user.Name, input.Name)
	setIf(&user.Lastname, input.Lastname)
	setIf(&user.Address, input.Address)
	setIf(&user.IsAgentDefault, input.IsAgentDefault)
	setIf(&user.State, input.State)
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.NumberIdentification != nil {
		user.NumberIdentification = input.NumberIdentification
	}
	if input.CompanyName != nil {
		user.CompanyName = input.CompanyName
	}
	if input.CompanyID != nil {
		user.CompanyID = input.CompanyID
	}
	if input.RoleID != nil {
		user.RoleID = input.RoleID
		user.Role = nil
	}
	if input.BranchID != nil {
		user.BranchID = input.BranchID
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	s.changed(ctx, id, events.ActionUpdated)
	return user, nil
}

func (s *UserService) Remove(ctx context.Context, id string) error {
	if err := s.entityCache.Remove(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, id, events.ActionRemoved)
	return nil
}

// Profile returns the caller's own user record.
func (s *UserService) Profile(ctx context.Context, session *domain.Session) (*domain.User, error) {
	if session == nil {
		return nil, apperrors.NewUnauthorized("User not authenticated")
	}
	return s.FindOne(ctx, session.ID)
}

// Companies lists the users acting as company records.
func (s *UserService) Companies(ctx context.Context, q domain.ListQuery) (domain.Page[domain.User], error) {
	q = q.Normalize()
	return cacheAside(ctx, s.cache, cache.ListKey("users:companies", q), 0, func() (domain.Page[domain.User], error) {
		page, err := s.store.Users().ListCompanies(ctx, q)
		if err != nil {
			return page, s.fail("list companies", err)
		}
		return page, nil
	})
}

// AgentsByBranch lists the active agents of a branch.
func (s *UserService) AgentsByBranch(ctx context.Context, branchID string) ([]domain.User, error) {
	return cacheAside(ctx, s.cache, "users:agents:"+branchID, 0, func() ([]domain.User, error) {
		agents, err := s.store.Users().ListAgentsByBranch(ctx, branchID)
		if err != nil {
			return nil, s.fail("list branch agents", err)
		}
		return agents, nil
	})
}

func (s *UserService) changed(ctx context.Context, id, action string) {
	s.dispatcher.Publish(ctx, events.New(events.EventUserChanged, id, actorID(ctx), events.UserChangedPayload{Action: action}))
}

func (s *UserService) ensureRefs(ctx context.Context, roleID, branchID, companyID *string) error {
	if roleID != nil {
		if _, err := s.store.Roles().GetByID(ctx, *roleID); err != nil {
			return roleLookupErr(s.logger, *roleID, err)
		}
	}
	if branchID != nil {
		if ok, err := found(s.store.Branches().GetByID(ctx, *branchID)); err != nil {
			return s.fail("load branch", err)
		} else if !ok {
			return apperrors.NewNotFound(fmt.Sprintf("Branch with id %s not found", *branchID))
		}
	}
	if companyID != nil {
		if ok, err := found(s.store.Users().GetByID(ctx, *companyID)); err != nil {
			return s.fail("load company", err)
		} else if !ok {
			return apperrors.NewNotFound(fmt.Sprintf("Company with id %s not found", *companyID))
		}
	}
	return nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	taken, err := found(s.store.Users().GetByUsername(ctx, username))
	if err != nil {
		return s.fail("check username", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("User with username %s already exists", username))
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := found(s.store.Users().GetByEmail(ctx, email))
	if err != nil {
		return s.fail("check email", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("User with email %s already exists", email))
	}
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
