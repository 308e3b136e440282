package domain

import "time"

// Role groups permissions and capability flags.
type Role struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	IsAgent        bool         `json:"isAgent"`
	IsAdmin        bool         `json:"isAdmin"`
	IsConfigurator bool         `json:"isConfigurator"`
	State          bool         `json:"state"`
	Permissions    []Permission `json:"permissions,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	DeletedAt      *time.Time   `json:"deletedAt,omitempty"`
}

// Permission grants a set of HTTP methods on an endpoint pattern such as "/branch/:id".
type Permission struct {
	ID        string     `json:"id"`
	Endpoint  string     `json:"endpoint"`
	Methods   []string   `json:"methods"`
	RoleID    *string    `json:"roleId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
