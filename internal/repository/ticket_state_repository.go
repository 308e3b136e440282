package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketStateColumns = `s.id, s.title, s.description, s.order_ticket, s.state, s.created_at, s.updated_at, s.deleted_at`

// TicketStateRepository manages the ordered workflow states.
type TicketStateRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketState], error)
	GetByID(ctx context.Context, id string) (*domain.TicketState, error)
	GetByTitle(ctx context.Context, title string) (*domain.TicketState, error)
	// FindByOrder returns the active state holding the given order.
	FindByOrder(ctx context.Context, order int) (*domain.TicketState, error)
	// FindLast returns the active state with the highest order.
	FindLast(ctx context.Context) (*domain.TicketState, error)
	Create(ctx context.Context, state *domain.TicketState) error
	Update(ctx context.Context, state *domain.TicketState) error
	SoftDelete(ctx context.Context, id string) error
}

type ticketStateRepository struct {
	db DBTX
}

// NewTicketStateRepository instantiates repository.
func NewTicketStateRepository(db DBTX) TicketStateRepository {
	return &ticketStateRepository{db: db}
}

func (r *ticketStateRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketState], error) {
	where := newListWhere("s", q, "s.title", "s.description")
	return fetchPage(ctx, r.db, ticketStateColumns, "ticket_states s", where, "s.order_ticket ASC", q, scanTicketState)
}

func (r *ticketStateRepository) GetByID(ctx context.Context, id string) (*domain.TicketState, error) {
	const query = `SELECT ` + ticketStateColumns + ` FROM ticket_states s WHERE s.id=$1 AND s.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketState, id)
}

func (r *ticketStateRepository) GetByTitle(ctx context.Context, title string) (*domain.TicketState, error) {
	const query = `SELECT ` + ticketStateColumns + ` FROM ticket_states s WHERE s.title=$1 AND s.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketState, title)
}

func (r *ticketStateRepository) FindByOrder(ctx context.Context, order int) (*domain.TicketState, error) {
	const query = `SELECT ` + ticketStateColumns + ` FROM ticket_states s
        WHERE s.order_ticket=$1 AND s.state AND s.deleted_at IS NULL
        ORDER BY s.created_at ASC LIMIT 1`
	return fetchOne(ctx, r.db, query, scanTicketState, order)
}

func (r *ticketStateRepository) FindLast(ctx context.Context) (*domain.TicketState, error) {
	const query = `SELECT ` + ticketStateColumns + ` FROM ticket_states s
        WHERE s.state AND s.deleted_at IS NULL
        ORDER BY s.order_ticket DESC, s.created_at ASC LIMIT 1`
	return fetchOne(ctx, r.db, query, scanTicketState)
}

func (r *ticketStateRepository) Create(ctx context.Context, state *domain.TicketState) error {
	const query = `
        INSERT INTO ticket_states (title, description, order_ticket, state)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, state.Title, state.Description, state.OrderTicket, state.State).
		Scan(&state.ID, &state.CreatedAt, &state.UpdatedAt)
}

func (r *ticketStateRepository) Update(ctx context.Context, state *domain.TicketState) error {
	const query = `
        UPDATE ticket_states SET title=$1, description=$2, order_ticket=$3, state=$4, updated_at=NOW()
        WHERE id=$5 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, state.Title, state.Description, state.OrderTicket, state.State, state.ID)
}

func (r *ticketStateRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "ticket_states", id)
}

func scanTicketState(row pgx.Row) (domain.TicketState, error) {
	var s domain.TicketState
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.OrderTicket, &s.State, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt)
	return s, err
}
