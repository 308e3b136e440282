package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketDetailColumns = `d.id, COALESCE(d.description, ''), COALESCE(d.ticket_id::text, ''), d.user_id, d.state, d.created_at, d.updated_at, d.deleted_at,
        u.id, COALESCE(u.name, ''), COALESCE(u.lastname, ''), COALESCE(u.email, '')`

const ticketDetailFrom = `ticket_details d LEFT JOIN users u ON u.id = d.user_id`

// TicketDetailRepository manages the comment trail of tickets.
type TicketDetailRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketDetail], error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketDetail, error)
	ExistsForTicket(ctx context.Context, ticketID string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.TicketDetail, error)
	Create(ctx context.Context, detail *domain.TicketDetail) error
	Update(ctx context.Context, detail *domain.TicketDetail) error
	SoftDelete(ctx context.Context, id string) error
}

type ticketDetailRepository struct {
	db DBTX
}

// NewTicketDetailRepository builds repository.
func NewTicketDetailRepository(db DBTX) TicketDetailRepository {
	return &ticketDetailRepository{db: db}
}

func (r *ticketDetailRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.TicketDetail], error) {
	where := newListWhere("d", q, "d.description")
	return fetchPage(ctx, r.db, ticketDetailColumns, ticketDetailFrom, where, "d.created_at DESC", q, scanTicketDetail)
}

func (r *ticketDetailRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketDetail, error) {
	const query = `SELECT ` + ticketDetailColumns + ` FROM ` + ticketDetailFrom + `
        WHERE d.ticket_id=$1 AND d.deleted_at IS NULL ORDER BY d.created_at ASC`
	return fetchAll(ctx, r.db, query, scanTicketDetail, ticketID)
}

func (r *ticketDetailRepository) ExistsForTicket(ctx context.Context, ticketID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM ticket_details WHERE ticket_id=$1 AND deleted_at IS NULL)`
	var exists bool
	err := r.db.QueryRow(ctx, query, ticketID).Scan(&exists)
	return exists, err
}

func (r *ticketDetailRepository) GetByID(ctx context.Context, id string) (*domain.TicketDetail, error) {
	const query = `SELECT ` + ticketDetailColumns + ` FROM ` + ticketDetailFrom + ` WHERE d.id=$1 AND d.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanTicketDetail, id)
}

func (r *ticketDetailRepository) Create(ctx context.Context, detail *domain.TicketDetail) error {
	const query = `
        INSERT INTO ticket_details (description, ticket_id, user_id, state)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		detail.Description,
		detail.TicketID,
		nullable(detail.UserID),
		detail.State,
	).Scan(&detail.ID, &detail.CreatedAt, &detail.UpdatedAt)
}

func (r *ticketDetailRepository) Update(ctx context.Context, detail *domain.TicketDetail) error {
	const query = `
        UPDATE ticket_details SET description=$1, state=$2, updated_at=NOW()
        WHERE id=$3 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, detail.Description, detail.State, detail.ID)
}

func (r *ticketDetailRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "ticket_details", id)
}

func scanTicketDetail(row pgx.Row) (domain.TicketDetail, error) {
	var (
		d      domain.TicketDetail
		userID *string
		author domain.User
	)
	err := row.Scan(&d.ID, &d.Description, &d.TicketID, &d.UserID, &d.State, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
		&userID, &author.Name, &author.Lastname, &author.Email)
	if err != nil {
		return d, err
	}
	if userID != nil {
		author.ID = *userID
		d.User = &author
	}
	return d, nil
}
