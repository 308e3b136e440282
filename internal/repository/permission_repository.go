package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const permissionColumns = `p.id, p.endpoint, p.methods, p.role_id, p.created_at, p.updated_at, p.deleted_at`

// PermissionRepository manages endpoint grants attached to roles.
type PermissionRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Permission], error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error)
	GetByID(ctx context.Context, id string) (*domain.Permission, error)
	Create(ctx context.Context, perm *domain.Permission) error
	Update(ctx context.Context, perm *domain.Permission) error
	SoftDelete(ctx context.Context, id string) error
}

type permissionRepository struct {
	db DBTX
}

// NewPermissionRepository instantiates repository.
func NewPermissionRepository(db DBTX) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Permission], error) {
	where := newListWhere("p", q, "p.endpoint")
	return fetchPage(ctx, r.db, permissionColumns, "permissions p", where, "p.endpoint ASC", q, scanPermission)
}

func (r *permissionRepository) ListByRole(ctx context.Context, roleID string) ([]domain.Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions p
        WHERE p.role_id=$1 AND p.deleted_at IS NULL ORDER BY p.endpoint`
	return fetchAll(ctx, r.db, query, scanPermission, roleID)
}

func (r *permissionRepository) GetByID(ctx context.Context, id string) (*domain.Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions p WHERE p.id=$1 AND p.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanPermission, id)
}

func (r *permissionRepository) Create(ctx context.Context, perm *domain.Permission) error {
	const query = `
        INSERT INTO permissions (endpoint, methods, role_id)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, perm.Endpoint, perm.Methods, nullable(perm.RoleID)).
		Scan(&perm.ID, &perm.CreatedAt, &perm.UpdatedAt)
}

func (r *permissionRepository) Update(ctx context.Context, perm *domain.Permission) error {
	const query = `
        UPDATE permissions SET endpoint=$1, methods=$2, role_id=$3, updated_at=NOW()
        WHERE id=$4 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, perm.Endpoint, perm.Methods, nullable(perm.RoleID), perm.ID)
}

func (r *permissionRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "permissions", id)
}

func scanPermission(row pgx.Row) (domain.Permission, error) {
	var perm domain.Permission
	err := row.Scan(
		&perm.ID,
		&perm.Endpoint,
		&perm.Methods,
		&perm.RoleID,
		&perm.CreatedAt,
		&perm.UpdatedAt,
		&perm.DeletedAt,
	)
	return perm, err
}
