package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// BranchCreateInput is the payload for a new branch.
type BranchCreateInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	State       *bool  `json:"state"`
}

// BranchUpdateInput carries the fields a PATCH may change.
type BranchUpdateInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	State       *bool   `json:"state"`
}

// BranchService manages branches.
type BranchService struct {
	*entityCache[domain.Branch]
}

// NewBranchService constructs the service.
func NewBranchService(deps Dependencies) *BranchService {
	return &BranchService{
		entityCache: newEntityCache(deps, "Branch", "branch", "branches",
			func(s repository.Store) crudRepository[domain.Branch] { return s.Branches() }).
			cascading("assignedUserBranch:*", "assignedUserBranches:*"),
	}
}

func (s *BranchService) Create(ctx context.Context, input BranchCreateInput) (*domain.Branch, error) {
	name := strings.TrimSpace(input.Name)
	if err := s.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}
	branch := &domain.Branch{Name: name, Description: input.Description, State: boolOr(input.State, true)}
	if err := s.store.Branches().Create(ctx, branch); err != nil {
		return nil, s.fail("create branch", err)
	}
	s.invalidate(ctx, "")
	return branch, nil
}

func (s *BranchService) Update(ctx context.Context, id string, input BranchUpdateInput) (*domain.Branch, error) {
	branch, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name != branch.Name {
			if err := s.ensureNameFree(ctx, name); err != nil {
				return nil, err
			}
		}
		branch.Name = name
	}
	setIf(&branch.Description, input.Description)
	setIf(&branch.State, input.State)
	if err := s.store.Branches().Update(ctx, branch); err != nil {
		return nil, s.lookupErr(id, err)
	}
	s.invalidate(ctx, id)
	return branch, nil
}

func (s *BranchService) ensureNameFree(ctx context.Context, name string) error {
	taken, err := found(s.store.Branches().GetByName(ctx, name))
	if err != nil {
		return s.fail("check branch name", err)
	}
	if taken {
		return apperrors.NewConflict(fmt.Sprintf("Branch with name %s already exists", name))
	}
	return nil
}
