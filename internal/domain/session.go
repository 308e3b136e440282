package domain

// Session is the denormalized view of an authenticated user kept in the cache.
type Session struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Lastname string      `json:"lastname"`
	Email    string      `json:"email"`
	BranchID *string     `json:"branchId,omitempty"`
	Role     SessionRole `json:"role"`
}

// SessionRole carries the role flags and permissions used by authorization.
type SessionRole struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	IsAgent        bool                `json:"isAgent"`
	IsAdmin        bool                `json:"isAdmin"`
	IsConfigurator bool                `json:"isConfigurator"`
	State          bool                `json:"state"`
	Permissions    []SessionPermission `json:"permissions"`
}

// SessionPermission is the (endpoint, methods) pair checked on each request.
type SessionPermission struct {
	Endpoint string   `json:"endpoint"`
	Methods  []string `json:"methods"`
}

// NewSession flattens a user loaded with its role and permissions.
func NewSession(u *User) *Session {
	s := &Session{
		ID:       u.ID,
		Name:     u.Name,
		Lastname: u.Lastname,
		Email:    u.Email,
		BranchID: u.BranchID,
	}
	if u.Role == nil {
		s.Role.Permissions = []SessionPermission{}
		return s
	}
	s.Role = SessionRole{
		ID:             u.Role.ID,
		Name:           u.Role.Name,
		IsAgent:        u.Role.IsAgent,
		IsAdmin:        u.Role.IsAdmin,
		IsConfigurator: u.Role.IsConfigurator,
		State:          u.Role.State,
		Permissions:    make([]SessionPermission, 0, len(u.Role.Permissions)),
	}
	for _, p := range u.Role.Permissions {
		s.Role.Permissions = append(s.Role.Permissions, SessionPermission{Endpoint: p.Endpoint, Methods: p.Methods})
	}
	return s
}
