package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const assignedUserTicketColumns = `a.id, COALESCE(a.ticket_id::text, ''), COALESCE(a.user_id::text, ''), a.created_at, a.updated_at, a.deleted_at,
        COALESCE(u.name, ''), COALESCE(u.lastname, ''), COALESCE(u.email, '')`

const assignedUserTicketFrom = `assigned_user_tickets a LEFT JOIN users u ON u.id = a.user_id`

// AssignedUserTicketRepository links agents to tickets.
type AssignedUserTicketRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.AssignedUserTicket], error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignedUserTicket, error)
	GetByID(ctx context.Context, id string) (*domain.AssignedUserTicket, error)
	FindByPair(ctx context.Context, ticketID, userID string) (*domain.AssignedUserTicket, error)
	Create(ctx context.Context, link *domain.AssignedUserTicket) error
	Update(ctx context.Context, link *domain.AssignedUserTicket) error
	SoftDelete(ctx context.Context, id string) error
}

type assignedUserTicketRepository struct {
	db DBTX
}

// NewAssignedUserTicketRepository instantiates repository.
func NewAssignedUserTicketRepository(db DBTX) AssignedUserTicketRepository {
	return &assignedUserTicketRepository{db: db}
}

func (r *assignedUserTicketRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.AssignedUserTicket], error) {
	where := newListWhere("a", q, "u.name", "u.lastname", "u.email")
	return fetchPage(ctx, r.db, assignedUserTicketColumns, assignedUserTicketFrom, where, "a.created_at DESC", q, scanAssignedUserTicket)
}

func (r *assignedUserTicketRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.AssignedUserTicket, error) {
	const query = `SELECT ` + assignedUserTicketColumns + ` FROM ` + assignedUserTicketFrom + `
        WHERE a.ticket_id=$1 AND a.deleted_at IS NULL ORDER BY a.created_at`
	return fetchAll(ctx, r.db, query, scanAssignedUserTicket, ticketID)
}

func (r *assignedUserTicketRepository) GetByID(ctx context.Context, id string) (*domain.AssignedUserTicket, error) {
	const query = `SELECT ` + assignedUserTicketColumns + ` FROM ` + assignedUserTicketFrom + ` WHERE a.id=$1 AND a.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanAssignedUserTicket, id)
}

func (r *assignedUserTicketRepository) FindByPair(ctx context.Context, ticketID, userID string) (*domain.AssignedUserTicket, error) {
	const query = `SELECT ` + assignedUserTicketColumns + ` FROM ` + assignedUserTicketFrom + `
        WHERE a.ticket_id=$1 AND a.user_id=$2 AND a.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanAssignedUserTicket, ticketID, userID)
}

func (r *assignedUserTicketRepository) Create(ctx context.Context, link *domain.AssignedUserTicket) error {
	const query = `
        INSERT INTO assigned_user_tickets (ticket_id, user_id) VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query, link.TicketID, link.UserID).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
}

func (r *assignedUserTicketRepository) Update(ctx context.Context, link *domain.AssignedUserTicket) error {
	const query = `
        UPDATE assigned_user_tickets SET ticket_id=$1, user_id=$2, updated_at=NOW()
        WHERE id=$3 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, link.TicketID, link.UserID, link.ID)
}

func (r *assignedUserTicketRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "assigned_user_tickets", id)
}

func scanAssignedUserTicket(row pgx.Row) (domain.AssignedUserTicket, error) {
	var (
		a                     domain.AssignedUserTicket
		name, lastname, email string
	)
	err := row.Scan(&a.ID, &a.TicketID, &a.UserID, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
		&name, &lastname, &email)
	if err != nil {
		return a, err
	}
	a.User = &domain.User{ID: a.UserID, Name: name, Lastname: lastname, Email: email}
	return a, nil
}
