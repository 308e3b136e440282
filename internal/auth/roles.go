package auth

import (
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketScope decides which tickets a caller may list.
type TicketScope int

const (
	ScopeCreated TicketScope = iota
	ScopeAssigned
	ScopeAll
)

// TicketScopeFor maps the caller's role onto a ticket scope: configurators
// see everything, agents their assignments, anyone else what they opened.
func TicketScopeFor(session *domain.Session) TicketScope {
	switch {
	case session == nil:
		return ScopeCreated
	case session.Role.IsConfigurator:
		return ScopeAll
	case session.Role.IsAgent:
		return ScopeAssigned
	default:
		return ScopeCreated
	}
}

// ValidateBranchRole rejects roles that may not be assigned to a branch.
// Only agents qualify; admin and configurator roles never do.
func ValidateBranchRole(role *domain.Role) error {
	if role == nil || (!role.IsAgent && !role.IsAdmin && !role.IsConfigurator) {
		return apperrors.NewBadRequest("The regular user does not have a valid role for this operation.")
	}
	if role.IsConfigurator {
		return apperrors.NewBadRequest("Configurator users cannot be assigned to branches.")
	}
	if role.IsAdmin {
		return apperrors.NewBadRequest("Admin users cannot be assigned to branches.")
	}
	return nil
}
