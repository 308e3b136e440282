package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketColumns = `t.id, t.ticket_number, COALESCE(t.description, ''), t.ticket_state_id, t.ticket_title_id, t.user_id,
        t.state, t.created_at, t.updated_at, t.deleted_at,
        s.id, COALESCE(s.title, ''), COALESCE(s.order_ticket, 0),
        tt.id, COALESCE(tt.description, ''),
        c.id, COALESCE(c.title, ''), COALESCE(c.prefix, ''),
        p.id, COALESCE(p.title, ''), COALESCE(p.hours_response, 0), COALESCE(p.hours_resolution, 0),
        u.id, COALESCE(u.name, ''), COALESCE(u.lastname, ''), COALESCE(u.email, ''), u.branch_id`

const ticketFrom = `tickets t
        LEFT JOIN ticket_states s ON s.id = t.ticket_state_id
        LEFT JOIN ticket_titles tt ON tt.id = t.ticket_title_id
        LEFT JOIN ticket_categories c ON c.id = tt.ticket_category_id
        LEFT JOIN ticket_priorities p ON p.id = tt.ticket_priority_id
        LEFT JOIN users u ON u.id = t.user_id`

// TicketFilter scopes a ticket listing.
type TicketFilter struct {
	Query      domain.ListQuery
	CreatorID  *string
	AssigneeID *string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	List(ctx context.Context, filter TicketFilter) (domain.Page[domain.Ticket], error)
	// GetByID loads the ticket with state, title, category, priority, creator and assigned agents.
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	UpdateState(ctx context.Context, id, stateID string) error
	SoftDelete(ctx context.Context, id string) error
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) (domain.Page[domain.Ticket], error) {
	where := newListWhere("t", filter.Query, "tt.description", "t.description")
	if filter.CreatorID != nil {
		where.eq("t.user_id", *filter.CreatorID)
	}
	if filter.AssigneeID != nil {
		where.raw(`EXISTS (SELECT 1 FROM assigned_user_tickets a
            WHERE a.ticket_id = t.id AND a.user_id = $? AND a.deleted_at IS NULL)`, *filter.AssigneeID)
	}
	return fetchPage(ctx, r.db, ticketColumns, ticketFrom, where, "t.created_at DESC", filter.Query, scanTicket)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM ` + ticketFrom + ` WHERE t.id=$1 AND t.deleted_at IS NULL`
	ticket, err := fetchOne(ctx, r.db, query, scanTicket, id)
	if err != nil {
		return nil, err
	}
	assigned, err := NewAssignedUserTicketRepository(r.db).ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.AssignedUsers = assigned
	return ticket, nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (description, ticket_state_id, ticket_title_id, user_id, state)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, ticket_number, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Description,
		nullable(ticket.TicketStateID),
		nullable(ticket.TicketTitleID),
		nullable(ticket.UserID),
		ticket.State,
	).Scan(&ticket.ID, &ticket.TicketNumber, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET description=$1, ticket_state_id=$2, ticket_title_id=$3, state=$4, updated_at=NOW()
        WHERE id=$5 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query,
		ticket.Description,
		nullable(ticket.TicketStateID),
		nullable(ticket.TicketTitleID),
		ticket.State,
		ticket.ID,
	)
}

func (r *ticketRepository) UpdateState(ctx context.Context, id, stateID string) error {
	const query = `UPDATE tickets SET ticket_state_id=$1, updated_at=NOW() WHERE id=$2 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query, stateID, id)
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "tickets", id)
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		t                                      domain.Ticket
		stateID, titleID, categoryID, priority *string
		creatorID                              *string
		state                                  domain.TicketState
		title                                  domain.TicketTitle
		category                               domain.TicketCategory
		prio                                   domain.TicketPriority
		creator                                domain.User
	)
	err := row.Scan(
		&t.ID,
		&t.TicketNumber,
		&t.Description,
		&t.TicketStateID,
		&t.TicketTitleID,
		&t.UserID,
		&t.State,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.DeletedAt,
		&stateID,
		&state.Title,
		&state.OrderTicket,
		&titleID,
		&title.Description,
		&categoryID,
		&category.Title,
		&category.Prefix,
		&priority,
		&prio.Title,
		&prio.HoursResponse,
		&prio.HoursResolution,
		&creatorID,
		&creator.Name,
		&creator.Lastname,
		&creator.Email,
		&creator.BranchID,
	)
	if err != nil {
		return t, err
	}
	if stateID != nil {
		state.ID = *stateID
		t.TicketState = &state
	}
	if titleID != nil {
		title.ID = *titleID
		if categoryID != nil {
			category.ID = *categoryID
			title.TicketCategoryID = categoryID
			title.TicketCategory = &category
		}
		if priority != nil {
			prio.ID = *priority
			title.TicketPriorityID = priority
			title.TicketPriority = &prio
		}
		t.TicketTitle = &title
	}
	if creatorID != nil {
		creator.ID = *creatorID
		t.User = &creator
	}
	return t, nil
}
