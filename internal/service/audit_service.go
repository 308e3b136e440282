package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Audit rows arrive on every request, so reads are cached briefly instead of
// invalidating on each write.
const (
	auditTTL          = 30 * time.Second
	auditWriteTimeout = 5 * time.Second
)

// AuditService records one row per completed request and serves them back.
type AuditService struct {
	store  repository.Store
	cache  *cache.Manager
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewAuditService constructs the service.
func NewAuditService(deps Dependencies) *AuditService {
	return &AuditService{store: deps.Store, cache: deps.Cache, logger: deps.Logger}
}

// Record writes the audit row in the background. Failures are logged only.
func (s *AuditService) Record(audit domain.Audit) {
	if audit.UserID == "" {
		audit.UserID = domain.AnonymousUser
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()
		if err := s.store.Audits().Create(ctx, &audit); err != nil {
			s.logger.Warn("audit write failed",
				zap.String("endpoint", audit.Endpoint),
				zap.String("method", audit.Method),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every pending audit write has finished.
func (s *AuditService) Wait() {
	s.wg.Wait()
}

func (s *AuditService) FindAll(ctx context.Context, q domain.ListQuery) (domain.Page[domain.Audit], error) {
	q = q.Normalize()
	return cacheAside(ctx, s.cache, cache.ListKey("audits", q), auditTTL, func() (domain.Page[domain.Audit], error) {
		page, err := s.store.Audits().List(ctx, q)
		if err != nil {
			return page, internal(s.logger, "list audits", err)
		}
		return page, nil
	})
}

// FindByUser lists the audit trail of one user, newest first.
func (s *AuditService) FindByUser(ctx context.Context, userID string, q domain.ListQuery) (domain.Page[domain.Audit], error) {
	q = q.Normalize()
	return cacheAside(ctx, s.cache, cache.ListKey("audits:user:"+userID, q), auditTTL, func() (domain.Page[domain.Audit], error) {
		page, err := s.store.Audits().ListByUser(ctx, userID, q)
		if err != nil {
			return page, internal(s.logger, "list user audits", err)
		}
		return page, nil
	})
}

func (s *AuditService) FindOne(ctx context.Context, id string) (*domain.Audit, error) {
	return cacheAside(ctx, s.cache, cache.EntityKey("audit", id), 0, func() (*domain.Audit, error) {
		audit, err := s.store.Audits().GetByID(ctx, id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound(fmt.Sprintf("Audit with id %s not found", id))
		}
		if err != nil {
			return nil, internal(s.logger, "load audit", err)
		}
		return audit, nil
	})
}
