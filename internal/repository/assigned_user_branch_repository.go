package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const assignedUserBranchColumns = `a.id, COALESCE(a.user_id::text, ''), COALESCE(a.branch_id::text, ''), a.created_at, a.updated_at, a.deleted_at,
        COALESCE(u.name, ''), COALESCE(u.lastname, ''), COALESCE(b.name, '')`

const assignedUserBranchFrom = `assigned_user_branches a
        LEFT JOIN users u ON u.id = a.user_id
        LEFT JOIN branches b ON b.id = a.branch_id`

// AssignedUserBranchRepository links agents to branches.
type AssignedUserBranchRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.AssignedUserBranch], error)
	GetByID(ctx context.Context, id string) (*domain.AssignedUserBranch, error)
	FindByPair(ctx context.Context, userID, branchID string) (*domain.AssignedUserBranch, error)
	Create(ctx context.Context, link *domain.AssignedUserBranch) error
	Update(ctx context.Context, link *domain.AssignedUserBranch) error
	SoftDelete(ctx context.Context, id string) error
}

type assignedUserBranchRepository struct {
	db DBTX
}

// NewAssignedUserBranchRepository instantiates repository.
func NewAssignedUserBranchRepository(db DBTX) AssignedUserBranchRepository {
	return &assignedUserBranchRepository{db: db}
}

func (r *assignedUserBranchRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.AssignedUserBranch], error) {
	where := newListWhere("a", q, "u.name", "u.lastname", "b.name")
	return fetchPage(ctx, r.db, assignedUserBranchColumns, assignedUserBranchFrom, where, "a.created_at DESC", q, scanAssignedUserBranch)
}

func (r *assignedUserBranchRepository) GetByID(ctx context.Context, id string) (*domain.AssignedUserBranch, error) {
	const query = `SELECT ` + assignedUserBranchColumns + ` FROM ` + assignedUserBranchFrom + ` WHERE a.id=$1 AND a.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanAssignedUserBranch, id)
}

func (r *assignedUserBranchRepository) FindByPair(ctx context.Context, userID, branchID string) (*domain.AssignedUserBranch, error) {
	const query = `SELECT ` + assignedUserBranchColumns + ` FROM ` + assignedUserBranchFrom + `
        WHERE a.user_id=$1 AND a.branch_id=$2 AND a.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanAssignedUserBranch, userID, branchID)
}

func (r *assignedUserBranchRepository) Create(ctx context.Context, link *domain.AssignedUserBranch) error {
	const query = `
        INSERT INTO assigned_user_branches (user_id, branch_id) VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, link.UserID, link.BranchID).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
}

func (r *assignedUserBranchRepository) Update(ctx context.Context, link *domain.AssignedUserBranch) error {
	const query = `
        UPDATE assigned_user_branches SET user_id=$1, branch_id=$2, updated_at=NOW()
        WHERE id=$3 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, link.UserID, link.BranchID, link.ID)
}

func (r *assignedUserBranchRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "assigned_user_branches", id)
}

func scanAssignedUserBranch(row pgx.Row) (domain.AssignedUserBranch, error) {
	var (
		a                          domain.AssignedUserBranch
		userName, userLast, branch string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.BranchID, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
		&userName, &userLast, &branch)
	if err != nil {
		return a, err
	}
	a.User = &domain.User{ID: a.UserID, Name: userName, Lastname: userLast}
	a.Branch = &domain.Branch{ID: a.BranchID, Name: branch}
	return a, nil
}
