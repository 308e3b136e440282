package domain

import (
	"fmt"
	"time"
)

// Fixed workflow positions of TicketState.OrderTicket. Closed is whichever
// active state has the highest order.
const (
	OrderOpen       = 1
	OrderInProgress = 2
	OrderAssisted   = 3
)

// Ticket is a support request opened by a user.
type Ticket struct {
	ID            string               `json:"id"`
	TicketNumber  int64                `json:"ticketNumber"`
	Description   string               `json:"description"`
	TicketStateID *string              `json:"ticketStateId,omitempty"`
	TicketTitleID *string              `json:"ticketTitleId,omitempty"`
	UserID        *string              `json:"userId,omitempty"`
	State         bool                 `json:"state"`
	TicketState   *TicketState         `json:"ticketState,omitempty"`
	TicketTitle   *TicketTitle         `json:"ticketTitle,omitempty"`
	User          *User                `json:"user,omitempty"`
	AssignedUsers []AssignedUserTicket `json:"assignedUsers,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
	DeletedAt     *time.Time           `json:"deletedAt,omitempty"`
}

// Code renders the human-facing identifier, e.g. "ST-123".
func (t *Ticket) Code() string {
	prefix := ""
	if t.TicketTitle != nil && t.TicketTitle.TicketCategory != nil {
		prefix = t.TicketTitle.TicketCategory.Prefix
	}
	return fmt.Sprintf("%s-%d", prefix, t.TicketNumber)
}

// TicketDetail is one entry of a ticket's append-only comment trail.
type TicketDetail struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	TicketID    string     `json:"ticketId"`
	UserID      *string    `json:"userId,omitempty"`
	State       bool       `json:"state"`
	User        *User      `json:"user,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// TicketThread is a ticket together with its ordered details.
type TicketThread struct {
	Ticket  *Ticket        `json:"ticket"`
	Details []TicketDetail `json:"details"`
}

// TicketState is a workflow step ordered by OrderTicket.
type TicketState struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	OrderTicket int        `json:"orderTicket"`
	State       bool       `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// TicketCategory groups titles; Prefix is used in ticket codes.
type TicketCategory struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Prefix      string     `json:"prefix"`
	State       bool       `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// TicketPriority carries SLA hours.
type TicketPriority struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	HoursResponse   int        `json:"hoursResponse"`
	HoursResolution int        `json:"hoursResolution"`
	State           bool       `json:"state"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`
}

// TicketTitle is a predefined ticket subject bound to a category and priority.
type TicketTitle struct {
	ID               string          `json:"id"`
	Description      string          `json:"description"`
	TicketCategoryID *string         `json:"ticketCategoryId,omitempty"`
	TicketPriorityID *string         `json:"ticketPriorityId,omitempty"`
	State            bool            `json:"state"`
	TicketCategory   *TicketCategory `json:"ticketCategory,omitempty"`
	TicketPriority   *TicketPriority `json:"ticketPriority,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	DeletedAt        *time.Time      `json:"deletedAt,omitempty"`
}

// AssignedUserTicket links an agent to a ticket.
type AssignedUserTicket struct {
	ID        string     `json:"id"`
	TicketID  string     `json:"ticketId"`
	UserID    string     `json:"userId"`
	User      *User      `json:"user,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
