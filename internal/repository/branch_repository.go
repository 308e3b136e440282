package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const branchColumns = `b.id, b.name, b.description, b.state, b.created_at, b.updated_at, b.deleted_at`

// BranchRepository encapsulates branch persistence.
type BranchRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Branch], error)
	GetByID(ctx context.Context, id string) (*domain.Branch, error)
	GetByName(ctx context.Context, name string) (*domain.Branch, error)
	Create(ctx context.Context, branch *domain.Branch) error
	Update(ctx context.Context, branch *domain.Branch) error
	SoftDelete(ctx context.Context, id string) error
}

type branchRepository struct {
	db DBTX
}

// NewBranchRepository instantiates repository.
func NewBranchRepository(db DBTX) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Branch], error) {
	where := newListWhere("b", q, "b.name", "b.description")
	return fetchPage(ctx, r.db, branchColumns, "branches b", where, "b.name ASC", q, scanBranch)
}

func (r *branchRepository) GetByID(ctx context.Context, id string) (*domain.Branch, error) {
	const query = `SELECT ` + branchColumns + ` FROM branches b WHERE b.id=$1 AND b.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanBranch, id)
}

func (r *branchRepository) GetByName(ctx context.Context, name string) (*domain.Branch, error) {
	const query = `SELECT ` + branchColumns + ` FROM branches b WHERE b.name=$1 AND b.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanBranch, name)
}

func (r *branchRepository) Create(ctx context.Context, branch *domain.Branch) error {
	const query = `
        INSERT INTO branches (name, description, state)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, branch.Name, branch.Description, branch.State).
		Scan(&branch.ID, &branch.CreatedAt, &branch.UpdatedAt)
}

func (r *branchRepository) Update(ctx context.Context, branch *domain.Branch) error {
	const query = `
        UPDATE branches SET name=$1, description=$2, state=$3, updated_at=NOW()
        WHERE id=$4 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, branch.Name, branch.Description, branch.State, branch.ID)
}

func (r *branchRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "branches", id)
}

func scanBranch(row pgx.Row) (domain.Branch, error) {
	var b domain.Branch
	err := row.Scan(&b.ID, &b.Name, &b.Description, &b.State, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	return b, err
}
