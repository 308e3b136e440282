package domain

import "time"

// Menu is a navigation item; Father points at its parent menu.
type Menu struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Father      *string    `json:"father"`
	NameView    *string    `json:"nameView"`
	ClassIcon   string     `json:"classIcon"`
	OrderItem   int        `json:"orderItem"`
	State       bool       `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// MenuAccess is a menu annotated with whether a role can see it.
type MenuAccess struct {
	Menu
	Selected bool `json:"selected"`
}

// AssignedMenuRole links a menu to a role.
type AssignedMenuRole struct {
	ID        string     `json:"id"`
	MenuID    string     `json:"menuId"`
	RoleID    string     `json:"roleId"`
	Menu      *Menu      `json:"menu,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
