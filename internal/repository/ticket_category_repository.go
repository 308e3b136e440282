package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketCategoryColumns = `c.id, c.title, c.description, c.prefix, c.state, c.created_at, c.updated_at, c.deleted_at`

// TicketCategoryRepository manages ticket categories.
type TicketCategoryRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketCategory], error)
	GetByID(ctx context.Context, id string) (*domain.TicketCategory, error)
	GetByPrefix(ctx context.Context, prefix string) (*domain.TicketCategory, error)
	Create(ctx context.Context, category *domain.TicketCategory) error
	Update(ctx context.Context, category *domain.TicketCategory) error
	SoftDelete(ctx context.Context, id string) error
}

type ticketCategoryRepository struct {
	db DBTX
}

// NewTicketCategoryRepository instantiates repository.
func NewTicketCategoryRepository(db DBTX) TicketCategoryRepository {
	return &ticketCategoryRepository{db: db}
}

func (r *ticketCategoryRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketCategory], error) {
	where := newListWhere("c", q, "c.title", "c.description", "c.prefix")
	return fetchPage(ctx, r.db, ticketCategoryColumns, "ticket_categories c", where, "c.title ASC", q, scanTicketCategory)
}

func (r *ticketCategoryRepository) GetByID(ctx context.Context, id string) (*domain.TicketCategory, error) {
	const query = `SELECT ` + ticketCategoryColumns + ` FROM ticket_categories c WHERE c.id=$1 AND c.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketCategory, id)
}

func (r *ticketCategoryRepository) GetByPrefix(ctx context.Context, prefix string) (*domain.TicketCategory, error) {
	const query = `SELECT ` + ticketCategoryColumns + ` FROM ticket_categories c WHERE c.prefix=$1 AND c.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketCategory, prefix)
}

func (r *ticketCategoryRepository) Create(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        INSERT INTO ticket_categories (title, description, prefix, state)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, category.Title, category.Description, category.Prefix, category.State).
		Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt)
}

func (r *ticketCategoryRepository) Update(ctx context.Context, category *domain.TicketCategory) error {
	const query = `
        UPDATE ticket_categories SET title=$1, description=$2, prefix=$3, state=$4, updated_at=NOW()
        WHERE id=$5 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, category.Title, category.Description, category.Prefix, category.State, category.ID)
}

func (r *ticketCategoryRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "ticket_categories", id)
}

func scanTicketCategory(row pgx.Row) (domain.TicketCategory, error) {
	var c domain.TicketCategory
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Prefix, &c.State, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	return c, err
}
