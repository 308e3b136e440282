package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketTitleColumns = `t.id, t.description, t.ticket_category_id, t.ticket_priority_id, t.state,
        t.created_at, t.updated_at, t.deleted_at,
        c.id, COALESCE(c.title, ''), COALESCE(c.prefix, ''),
        p.id, COALESCE(p.title, ''), COALESCE(p.hours_response, 0), COALESCE(p.hours_resolution, 0)`

const ticketTitleFrom = `ticket_titles t
        LEFT JOIN ticket_categories c ON c.id = t.ticket_category_id
        LEFT JOIN ticket_priorities p ON p.id = t.ticket_priority_id`

// TicketTitleRepository manages predefined ticket subjects.
type TicketTitleRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketTitle], error)
	GetByID(ctx context.Context, id string) (*domain.TicketTitle, error)
	GetByDescription(ctx context.Context, description string) (*domain.TicketTitle, error)
	Create(ctx context.Context, title *domain.TicketTitle) error
	Update(ctx context.Context, title *domain.TicketTitle) error
	SoftDelete(ctx context.Context, id string) error
}

type ticketTitleRepository struct {
	db DBTX
}

// NewTicketTitleRepository instantiates repository.
func NewTicketTitleRepository(db DBTX) TicketTitleRepository {
	return &ticketTitleRepository{db: db}
}

func (r *ticketTitleRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketTitle], error) {
	where := newListWhere("t", q, "t.description")
	return fetchPage(ctx, r.db, ticketTitleColumns, ticketTitleFrom, where, "t.description ASC", q, scanTicketTitle)
}

func (r *ticketTitleRepository) GetByID(ctx context.Context, id string) (*domain.TicketTitle, error) {
	const query = `SELECT ` + ticketTitleColumns + ` FROM ` + ticketTitleFrom + ` WHERE t.id=$1 AND t.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketTitle, id)
}

func (r *ticketTitleRepository) GetByDescription(ctx context.Context, description string) (*domain.TicketTitle, error) {
	const query = `SELECT ` + ticketTitleColumns + ` FROM ` + ticketTitleFrom + ` WHERE t.description=$1 AND t.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketTitle, description)
}

func (r *ticketTitleRepository) Create(ctx context.Context, title *domain.TicketTitle) error {
	const query = `
        INSERT INTO ticket_titles (description, ticket_category_id, ticket_priority_id, state)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		title.Description,
		nullable(title.TicketCategoryID),
		nullable(title.TicketPriorityID),
		title.State,
	).Scan(&title.ID, &title.CreatedAt, &title.UpdatedAt)
}

func (r *ticketTitleRepository) Update(ctx context.Context, title *domain.TicketTitle) error {
	const query = `
        UPDATE ticket_titles SET description=$1, ticket_category_id=$2, ticket_priority_id=$3, state=$4, updated_at=NOW()
        WHERE id=$5 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query,
		title.Description,
		nullable(title.TicketCategoryID),
		nullable(title.TicketPriorityID),
		title.State,
		title.ID,
	)
}

func (r *ticketTitleRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "ticket_titles", id)
}

func scanTicketTitle(row pgx.Row) (domain.TicketTitle, error) {
	var (
		t          domain.TicketTitle
		categoryID *string
		priorityID *string
		category   domain.TicketCategory
		priority   domain.TicketPriority
	)
	err := row.Scan(
		&t.ID,
		&t.Description,
		&t.TicketCategoryID,
		&t.TicketPriorityID,
		&t.State,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.DeletedAt,
		&categoryID,
		&category.Title,
		&category.Prefix,
		&priorityID,
		&priority.Title,
		&priority.HoursResponse,
		&priority.HoursResolution,
	)
	if err != nil {
		return t, err
	}
	if categoryID != nil {
		category.ID = *categoryID
		t.TicketCategory = &category
	}
	if priorityID != nil {
		priority.ID = *priorityID
		t.TicketPriority = &priority
	}
	return t, nil
}
