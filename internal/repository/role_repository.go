package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const roleColumns = `r.id, r.name, r.is_agent, r.is_admin, r.is_configurator, r.state, r.created_at, r.updated_at, r.deleted_at`

// RoleRepository encapsulates role persistence.
type RoleRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Role], error)
	ListActive(ctx context.Context) ([]domain.Role, error)
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	SoftDelete(ctx context.Context, id string) error
}

type roleRepository struct {
	db DBTX
}

// NewRoleRepository instantiates repository.
func NewRoleRepository(db DBTX) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Role], error) {
	where := newListWhere("r", q, "r.name")
	return fetchPage(ctx, r.db, roleColumns, "roles r", where, "r.created_at DESC", q, scanRole)
}

func (r *roleRepository) ListActive(ctx context.Context) ([]domain.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles r WHERE r.deleted_at IS NULL AND r.state ORDER BY r.name`
	return fetchAll(ctx, r.db, query, scanRole)
}

func (r *roleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles r WHERE r.id=$1 AND r.deleted_at IS NULL`
	role, err := fetchOne(ctx, r.db, query, scanRole, id)
	if err != nil {
		return nil, err
	}
	perms, err := NewPermissionRepository(r.db).ListByRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return role, nil
}

func (r *roleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles r WHERE r.name=$1 AND r.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanRole, name)
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name, is_agent, is_admin, is_configurator, state)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		role.Name,
		role.IsAgent,
		role.IsAdmin,
		role.IsConfigurator,
		role.State,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	const query = `
        UPDATE roles SET name=$1, is_agent=$2, is_admin=$3, is_configurator=$4, state=$5, updated_at=NOW()
        WHERE id=$6 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query,
		role.Name,
		role.IsAgent,
		role.IsAdmin,
		role.IsConfigurator,
		role.State,
		role.ID,
	)
}

func (r *roleRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "roles", id)
}

func scanRole(row pgx.Row) (domain.Role, error) {
	var role domain.Role
	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.IsAgent,
		&role.IsAdmin,
		&role.IsConfigurator,
		&role.State,
		&role.CreatedAt,
		&role.UpdatedAt,
		&role.DeletedAt,
	)
	return role, err
}
