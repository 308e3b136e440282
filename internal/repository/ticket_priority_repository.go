package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketPriorityColumns = `p.id, p.title, p.description, p.hours_response, p.hours_resolution, p.state, p.created_at, p.updated_at, p.deleted_at`

// TicketPriorityRepository manages SLA priorities.
type TicketPriorityRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketPriority], error)
	GetByID(ctx context.Context, id string) (*domain.TicketPriority, error)
	GetByTitle(ctx context.Context, title string) (*domain.TicketPriority, error)
	Create(ctx context.Context, priority *domain.TicketPriority) error
	Update(ctx context.Context, priority *domain.TicketPriority) error
	SoftDelete(ctx context.Context, id string) error
}

type ticketPriorityRepository struct {
	db DBTX
}

// NewTicketPriorityRepository instantiates repository.
func NewTicketPriorityRepository(db DBTX) TicketPriorityRepository {
	return &ticketPriorityRepository{db: db}
}

func (r *ticketPriorityRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketPriority], error) {
	where := newListWhere("p", q, "p.title", "p.description")
	return fetchPage(ctx, r.db, ticketPriorityColumns, "ticket_priorities p", where, "p.hours_response ASC", q, scanTicketPriority)
}

func (r *ticketPriorityRepository) GetByID(ctx context.Context, id string) (*domain.TicketPriority, error) {
	const query = `SELECT ` + ticketPriorityColumns + ` FROM ticket_priorities p WHERE p.id=$1 AND p.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketPriority, id)
}

func (r *ticketPriorityRepository) GetByTitle(ctx context.Context, title string) (*domain.TicketPriority, error) {
	const query = `SELECT ` + ticketPriorityColumns + ` FROM ticket_priorities p WHERE p.title=$1 AND p.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketPriority, title)
}

func (r *ticketPriorityRepository) Create(ctx context.Context, priority *domain.TicketPriority) error {
	const query = `
        INSERT INTO ticket_priorities (title, description, hours_response, hours_resolution, state)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		priority.Title,
		priority.Description,
		priority.HoursResponse,
		priority.HoursResolution,
		priority.State,
	).Scan(&priority.ID, &priority.CreatedAt, &priority.UpdatedAt)
}

func (r *ticketPriorityRepository) Update(ctx context.Context, priority *domain.TicketPriority) error {
	const query = `
        UPDATE ticket_priorities SET title=$1, description=$2, hours_response=$3, hours_resolution=$4, state=$5, updated_at=NOW()
        WHERE id=$6 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query,
		priority.Title,
		priority.Description,
		priority.HoursResponse,
		priority.HoursResolution,
		priority.State,
		priority.ID,
	)
}

func (r *ticketPriorityRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "ticket_priorities", id)
}

func scanTicketPriority(row pgx.Row) (domain.TicketPriority, error) {
	var p domain.TicketPriority
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.HoursResponse, &p.HoursResolution,
		&p.State, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	return p, err
}
