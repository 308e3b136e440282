package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const auditColumns = `a.id, a.user_id, a.endpoint, a.method, a.status, a.message, a.created_at`

// AuditRepository appends and reads request audit rows. Rows are never updated.
type AuditRepository interface {
	Create(ctx context.Context, audit *domain.Audit) error
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Audit], error)
	ListByUser(ctx context.Context, userID string, q domain.ListQuery) (domain.Page[domain.Audit], error)
	GetByID(ctx context.Context, id string) (*domain.Audit, error)
}

type auditRepository struct {
	db DBTX
}

// NewAuditRepository builds repository.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, audit *domain.Audit) error {
	const query = `
        INSERT INTO audits (user_id, endpoint, method, status, message)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		audit.UserID,
		audit.Endpoint,
		audit.Method,
		audit.Status,
		audit.Message,
	).Scan(&audit.ID, &audit.CreatedAt)
}

func (r *auditRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Audit], error) {
	// audits have no deleted_at column
	q.WithDeleted = true
	where := newListWhere("a", q, "a.endpoint", "a.message", "a.status")
	return fetchPage(ctx, r.db, auditColumns, "audits a", where, "a.created_at DESC", q, scanAudit)
}

func (r *auditRepository) ListByUser(ctx context.Context, userID string, q domain.ListQuery) (domain.Page[domain.Audit], error) {
	q.WithDeleted = true
	where := newListWhere("a", q, "a.endpoint", "a.message", "a.status").eq("a.user_id", userID)
	return fetchPage(ctx, r.db, auditColumns, "audits a", where, "a.created_at DESC", q, scanAudit)
}

func (r *auditRepository) GetByID(ctx context.Context, id string) (*domain.Audit, error) {
	const query = `SELECT ` + auditColumns + ` FROM audits a WHERE a.id=$1`
	return fetchOne(ctx, r.db, query, scanAudit, id)
}

func scanAudit(row pgx.Row) (domain.Audit, error) {
	var a domain.Audit
	err := row.Scan(&a.ID, &a.UserID, &a.Endpoint, &a.Method, &a.Status, &a.Message, &a.CreatedAt)
	return a, err
}
