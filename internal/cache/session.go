package cache

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const sessionPrefix = "session:"

// SessionCache holds denormalized user sessions keyed by user id.
type SessionCache struct {
	manager *Manager
	ttl     time.Duration
}

// NewSessionCache builds a session cache; ttl is the default lifetime.
func NewSessionCache(manager *Manager, ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionCache{manager: manager, ttl: ttl}
}

// TTL returns the default session lifetime.
func (c *SessionCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached session; absence is not an error.
func (c *SessionCache) Get(ctx context.Context, userID string) (*domain.Session, bool) {
	var session domain.Session
	if !c.manager.Get(ctx, sessionPrefix+userID, &session) {
		return nil, false
	}
	return &session, true
}

// Set caches session for ttl, or the default when ttl <= 0.
func (c *SessionCache) Set(ctx context.Context, userID string, session *domain.Session, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.manager.Set(ctx, sessionPrefix+userID, session, ttl)
}

// Delete drops the sessions of the given users.
func (c *SessionCache) Delete(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = sessionPrefix + id
	}
	c.manager.Del(ctx, keys...)
}
