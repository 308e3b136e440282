package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Manager stores JSON values in a Store. Store failures are logged and
// reported as misses so a cache outage never fails a request.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewManager builds a manager with a default TTL.
func NewManager(store Store, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{store: store, ttl: ttl, logger: logger}
}

// Store exposes the underlying store for health checks and scanning.
func (m *Manager) Store() Store {
	return m.store
}

// TTL returns the default entry lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get decodes key into dest and reports whether it was found.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		m.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		_ = m.store.Del(ctx, key)
		return false
	}
	return true
}

// Set encodes value under key; ttl <= 0 uses the default.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.ttl
	}
	raw, err := json.Marshal(value)
	if err != nil {
		m.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := m.store.Set(ctx, key, raw, ttl); err != nil {
		m.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Del removes exact keys.
func (m *Manager) Del(ctx context.Context, keys ...string) {
	if err := m.store.Del(ctx, keys...); err != nil {
		m.logger.Warn("cache del failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// DelPattern removes every key under each "prefix:*" pattern.
func (m *Manager) DelPattern(ctx context.Context, patterns ...string) {
	for _, pattern := range patterns {
		if err := m.store.DelPattern(ctx, pattern); err != nil {
			m.logger.Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

// Invalidate drops a single entity key and the list keys of its collection.
func (m *Manager) Invalidate(ctx context.Context, singular, plural, id string) {
	if id != "" {
		m.Del(ctx, EntityKey(singular, id))
	}
	m.DelPattern(ctx, plural+":*")
}

// ListKey builds "<prefix>:skip:<n>:take:<n>:filter:<f>".
func ListKey(prefix string, q domain.ListQuery) string {
	key := fmt.Sprintf("%s:skip:%d:take:%d:filter:%s", prefix, q.Skip, q.Take, q.Filter)
	if q.WithDeleted {
		key += ":deleted:true"
	}
	return key
}

// EntityKey builds "<singular>:<id>".
func EntityKey(singular, id string) string {
	return singular + ":" + id
}
