package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const assignedMenuRoleColumns = `a.id, COALESCE(a.menu_id::text, ''), COALESCE(a.role_id::text, ''), a.created_at, a.updated_at, a.deleted_at`

// AssignedMenuRoleRepository links menus to roles.
type AssignedMenuRoleRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.AssignedMenuRole], error)
	GetByID(ctx context.Context, id string) (*domain.AssignedMenuRole, error)
	FindByPair(ctx context.Context, menuID, roleID string) (*domain.AssignedMenuRole, error)
	Create(ctx context.Context, link *domain.AssignedMenuRole) error
	Update(ctx context.Context, link *domain.AssignedMenuRole) error
	SoftDelete(ctx context.Context, id string) error
	// SoftDeleteByRole removes every live link of a role and returns how many rows changed.
	SoftDeleteByRole(ctx context.Context, roleID string) (int64, error)
}

type assignedMenuRoleRepository struct {
	db DBTX
}

// NewAssignedMenuRoleRepository instantiates repository.
func NewAssignedMenuRoleRepository(db DBTX) AssignedMenuRoleRepository {
	return &assignedMenuRoleRepository{db: db}
}

func (r *assignedMenuRoleRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.AssignedMenuRole], error) {
	where := newListWhere("a", q)
	if q.Filter != "" {
		where.raw("(a.role_id::text = $? OR a.menu_id::text = $?)", q.Filter)
	}
	return fetchPage(ctx, r.db, assignedMenuRoleColumns, "assigned_menu_roles a", where, "a.created_at DESC", q, scanAssignedMenuRole)
}

func (r *assignedMenuRoleRepository) GetByID(ctx context.Context, id string) (*domain.AssignedMenuRole, error) {
	const query = `SELECT ` + assignedMenuRoleColumns + ` FROM assigned_menu_roles a WHERE a.id=$1 AND a.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanAssignedMenuRole, id)
}

func (r *assignedMenuRoleRepository) FindByPair(ctx context.Context, menuID, roleID string) (*domain.AssignedMenuRole, error) {
	const query = `SELECT ` + assignedMenuRoleColumns + ` FROM assigned_menu_roles a
        WHERE a.menu_id=$1 AND a.role_id=$2 AND a.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanAssignedMenuRole, menuID, roleID)
}

func (r *assignedMenuRoleRepository) Create(ctx context.Context, link *domain.AssignedMenuRole) error {
	const query = `
        INSERT INTO assigned_menu_roles (menu_id, role_id) VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, link.MenuID, link.RoleID).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
}

func (r *assignedMenuRoleRepository) Update(ctx context.Context, link *domain.AssignedMenuRole) error {
	const query = `
        UPDATE assigned_menu_roles SET menu_id=$1, role_id=$2, updated_at=NOW()
        WHERE id=$3 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, link.MenuID, link.RoleID, link.ID)
}

func (r *assignedMenuRoleRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "assigned_menu_roles", id)
}

func (r *assignedMenuRoleRepository) SoftDeleteByRole(ctx context.Context, roleID string) (int64, error) {
	const query = `UPDATE assigned_menu_roles SET deleted_at=NOW(), updated_at=NOW() WHERE role_id=$1 AND deleted_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, roleID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanAssignedMenuRole(row pgx.Row) (domain.AssignedMenuRole, error) {
	var a domain.AssignedMenuRole
	err := row.Scan(&a.ID, &a.MenuID, &a.RoleID, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	return a, err
}
