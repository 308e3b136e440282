package domain

import "time"

// Branch is a physical or logical office users and agents belong to.
type Branch struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	State       bool       `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// AssignedUserBranch links an agent-capable user to an extra branch.
type AssignedUserBranch struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	BranchID  string     `json:"branchId"`
	User      *User      `json:"user,omitempty"`
	Branch    *Branch    `json:"branch,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
