package domain

import "time"

// User is an account that can open tickets, act as an agent or administer the system.
// A user with CompanyName set and no CompanyID acts as a company record for other users.
type User struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Lastname             string     `json:"lastname"`
	Email                string     `json:"email"`
	Username             string     `json:"username"`
	PasswordHash         string     `json:"-"`
	Address              string     `json:"address"`
	Phone                *string    `json:"phone,omitempty"`
	NumberIdentification *string    `json:"numberIdentification,omitempty"`
	CompanyName          *string    `json:"companyname,omitempty"`
	CompanyID            *string    `json:"companyId,omitempty"`
	RoleID               *string    `json:"roleId,omitempty"`
	BranchID             *string    `json:"branchId,omitempty"`
	IsAgentDefault       bool       `json:"isAgentDefault"`
	State                bool       `json:"state"`
	Role                 *Role      `json:"role,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	DeletedAt            *time.Time `json:"deletedAt,omitempty"`
}

// FullName joins name and lastname.
func (u *User) FullName() string {
	if u.Lastname == "" {
		return u.Name
	}
	return u.Name + " " + u.Lastname
}
