package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const menuColumns = `m.id, m.description, m.father, m.name_view, m.class_icon, m.order_item, m.state, m.created_at, m.updated_at, m.deleted_at`

// MenuRepository manages navigation items.
type MenuRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Menu], error)
	ListActive(ctx context.Context) ([]domain.Menu, error)
	ListFathers(ctx context.Context) ([]domain.Menu, error)
	ListByRole(ctx context.Context, roleID string) ([]domain.Menu, error)
	GetByID(ctx context.Context, id string) (*domain.Menu, error)
	GetByNameView(ctx context.Context, nameView string) (*domain.Menu, error)
	Create(ctx context.Context, menu *domain.Menu) error
	Update(ctx context.Context, menu *domain.Menu) error
	SoftDelete(ctx context.Context, id string) error
}

type menuRepository struct {
	db DBTX
}

// NewMenuRepository instantiates repository.
func NewMenuRepository(db DBTX) MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Menu], error) {
	where := newListWhere("m", q, "m.description", "m.name_view")
	return fetchPage(ctx, r.db, menuColumns, "menus m", where, "m.order_item ASC", q, scanMenu)
}

func (r *menuRepository) ListActive(ctx context.Context) ([]domain.Menu, error) {
	const query = `SELECT ` + menuColumns + ` FROM menus m WHERE m.deleted_at IS NULL AND m.state ORDER BY m.order_item`
	return fetchAll(ctx, r.db, query, scanMenu)
}

func (r *menuRepository) ListFathers(ctx context.Context) ([]domain.Menu, error) {
	const query = `SELECT ` + menuColumns + ` FROM menus m
        WHERE m.father IS NULL AND m.deleted_at IS NULL AND m.state ORDER BY m.order_item`
	return fetchAll(ctx, r.db, query, scanMenu)
}

func (r *menuRepository) ListByRole(ctx context.Context, roleID string) ([]domain.Menu, error) {
	const query = `SELECT ` + menuColumns + ` FROM menus m
        JOIN assigned_menu_roles amr ON amr.menu_id = m.id AND amr.deleted_at IS NULL
        WHERE amr.role_id=$1 AND m.deleted_at IS NULL AND m.state
        ORDER BY m.order_item`
	return fetchAll(ctx, r.db, query, scanMenu, roleID)
}

func (r *menuRepository) GetByID(ctx context.Context, id string) (*domain.Menu, error) {
	const query = `SELECT ` + menuColumns + ` FROM menus m WHERE m.id=$1 AND m.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanMenu, id)
}

func (r *menuRepository) GetByNameView(ctx context.Context, nameView string) (*domain.Menu, error) {
	const query = `SELECT ` + menuColumns + ` FROM menus m WHERE m.name_view=$1 AND m.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanMenu, nameView)
}

func (r *menuRepository) Create(ctx context.Context, menu *domain.Menu) error {
	const query = `
        INSERT INTO menus (description, father, name_view, class_icon, order_item, state)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		menu.Description,
		nullable(menu.Father),
		menu.NameView,
		menu.ClassIcon,
		menu.OrderItem,
		menu.State,
	).Scan(&menu.ID, &menu.CreatedAt, &menu.UpdatedAt)
}

func (r *menuRepository) Update(ctx context.Context, menu *domain.Menu) error {
	const query = `
        UPDATE menus SET description=$1, father=$2, name_view=$3, class_icon=$4, order_item=$5, state=$6, updated_at=NOW()
        WHERE id=$7 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query,
		menu.Description,
		nullable(menu.Father),
		menu.NameView,
		menu.ClassIcon,
		menu.OrderItem,
		menu.State,
		menu.ID,
	)
}

func (r *menuRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "menus", id)
}

func scanMenu(row pgx.Row) (domain.Menu, error) {
	var m domain.Menu
	err := row.Scan(&m.ID, &m.Description, &m.Father, &m.NameView, &m.ClassIcon, &m.OrderItem,
		&m.State, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	return m, err
}
