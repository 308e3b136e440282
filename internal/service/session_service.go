package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// SessionInvalidator drops cached sessions when the user, role or permission
// rows behind them change.
type SessionInvalidator struct {
	store    repository.Store
	sessions *cache.SessionCache
	logger   *zap.Logger
}

// NewSessionInvalidator creates the invalidator.
func NewSessionInvalidator(store repository.Store, sessions *cache.SessionCache, logger *zap.Logger) *SessionInvalidator {
	return &SessionInvalidator{store: store, sessions: sessions, logger: logger}
}

// RegisterHandlers subscribes to the change events.
func (s *SessionInvalidator) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventRoleChanged, s.rolesChanged)
	dispatcher.Subscribe(events.EventPermissionChanged, s.rolesChanged)
	dispatcher.Subscribe(events.EventUserChanged, s.userChanged)
}

func (s *SessionInvalidator) rolesChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RoleChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	for _, roleID := range payload.RoleIDs {
		ids, err := s.store.Users().ListIDsByRole(ctx, roleID)
		if err != nil {
			return fmt.Errorf("list users of role %s: %w", roleID, err)
		}
		if len(ids) == 0 {
			continue
		}
		s.sessions.Delete(ctx, ids...)
		s.logger.Debug("sessions invalidated", zap.String("role_id", roleID), zap.Int("users", len(ids)))
	}
	return nil
}

func (s *SessionInvalidator) userChanged(ctx context.Context, event events.Event) error {
	s.sessions.Delete(ctx, event.EntityID)
	return nil
}
