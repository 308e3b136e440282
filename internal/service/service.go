// Package service holds the business rules of the helpdesk: cache-aside
// entity services, the ticket workflow, authentication and auditing.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Dependencies bundles the collaborators shared by the entity services.
type Dependencies struct {
	Store      repository.Store
	Cache      *cache.Manager
	Logger     *zap.Logger
	Dispatcher events.Dispatcher
}

// crudRepository is the read and remove surface every entity repository offers.
type crudRepository[T any] interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[T], error)
	GetByID(ctx context.Context, id string) (*T, error)
	SoftDelete(ctx context.Context, id string) error
}

// entityCache implements cache-aside FindAll, FindOne and Remove for one entity.
// Lists live under "<plural>:..." and rows under "<singular>:<id>".
type entityCache[T any] struct {
	store    repository.Store
	cache    *cache.Manager
	logger   *zap.Logger
	label    string
	singular string
	plural   string
	repo     func(repository.Store) crudRepository[T]
	// cascade lists key patterns of other entities that embed this one.
	cascade []string
}

func newEntityCache[T any](deps Dependencies, label, singular, plural string, repo func(repository.Store) crudRepository[T]) *entityCache[T] {
	return &entityCache[T]{
		store:    deps.Store,
		cache:    deps.Cache,
		logger:   deps.Logger,
		label:    label,
		singular: singular,
		plural:   plural,
		repo:     repo,
	}
}

// FindAll returns a page of live rows, or of all rows when q.WithDeleted is set.
func (e *entityCache[T]) FindAll(ctx context.Context, q domain.ListQuery) (domain.Page[T], error) {
	q = q.Normalize()
	return cacheAside(ctx, e.cache, cache.ListKey(e.plural, q), 0, func() (domain.Page[T], error) {
		page, err := e.repo(e.store).List(ctx, q)
		if err != nil {
			return page, e.fail("list "+e.plural, err)
		}
		return page, nil
	})
}

func (e *entityCache[T]) FindOne(ctx context.Context, id string) (*T, error) {
	return cacheAside(ctx, e.cache, cache.EntityKey(e.singular, id), 0, func() (*T, error) {
		item, err := e.repo(e.store).GetByID(ctx, id)
		if err != nil {
			return nil, e.lookupErr(id, err)
		}
		return item, nil
	})
}

// Remove soft-deletes the row and drops its cache entries.
func (e *entityCache[T]) Remove(ctx context.Context, id string) error {
	if err := e.repo(e.store).SoftDelete(ctx, id); err != nil {
		return e.lookupErr(id, err)
	}
	e.invalidate(ctx, id)
	return nil
}

// load reads a live row straight from the database for read-modify-write.
func (e *entityCache[T]) load(ctx context.Context, id string) (*T, error) {
	item, err := e.repo(e.store).GetByID(ctx, id)
	if err != nil {
		return nil, e.lookupErr(id, err)
	}
	return item, nil
}

func (e *entityCache[T]) invalidate(ctx context.Context, id string) {
	e.cache.Invalidate(ctx, e.singular, e.plural, id)
	if len(e.cascade) > 0 {
		e.cache.DelPattern(ctx, e.cascade...)
	}
}

func (e *entityCache[T]) cascading(patterns ...string) *entityCache[T] {
	e.cascade = patterns
	return e
}

func (e *entityCache[T]) lookupErr(id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(fmt.Sprintf("%s with id %s not found", e.label, id))
	}
	return e.fail("load "+e.singular, err)
}

func (e *entityCache[T]) fail(op string, err error) error {
	return internal(e.logger, op, err)
}

// cacheAside returns the cached value under key or loads, caches and returns it.
// ttl <= 0 uses the manager default.
func cacheAside[T any](ctx context.Context, c *cache.Manager, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}
	value, err := load()
	if err != nil {
		return value, err
	}
	c.Set(ctx, key, value, ttl)
	return value, nil
}

// internal passes domain errors through, maps unique violations to Conflict
// and logs anything else before hiding it behind a generic 500.
func internal(logger *zap.Logger, op string, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if apperrors.IsUniqueViolation(err) {
		return apperrors.NewConflict("resource already exists")
	}
	logger.Error(op, zap.Error(err))
	return apperrors.NewInternalError(fmt.Errorf("%s: %w", op, err))
}

// found turns a lookup result into (exists, error), treating ErrNoRows as absence.
func found[T any](_ *T, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// actorID is the id of the authenticated caller, or "" outside a request.
func actorID(ctx context.Context) string {
	if session, ok := auth.SessionFromContext(ctx); ok {
		return session.ID
	}
	return ""
}

func roleLookupErr(logger *zap.Logger, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(fmt.Sprintf("Role with id %s not found", id))
	}
	return internal(logger, "load role", err)
}
