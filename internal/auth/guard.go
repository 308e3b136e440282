package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const sessionKey = "auth_session"

type sessionCtxKey struct{}

// UserLoader loads a user with role and permissions. repository.UserRepository satisfies it.
type UserLoader interface {
	GetWithPermissions(ctx context.Context, id string) (*domain.User, error)
}

// Guard authenticates bearer tokens, resolves the caller's session and checks
// route permissions.
type Guard struct {
	tokens   *TokenManager
	users    UserLoader
	sessions *cache.SessionCache
	prefix   string
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewGuard constructs the middleware. prefix is the global route prefix removed before matching.
func NewGuard(tokens *TokenManager, users UserLoader, sessions *cache.SessionCache, prefix string, logger *zap.Logger) *Guard {
	return &Guard{tokens: tokens, users: users, sessions: sessions, prefix: prefix, logger: logger}
}

// WithMetrics records guard decisions into m.
func (g *Guard) WithMetrics(m *observability.Metrics) *Guard {
	g.metrics = m
	return g
}

// Handle enforces authentication and authorization for protected routes.
func (g *Guard) Handle(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		g.metrics.RecordAuthz("unauthenticated")
		return apperrors.NewUnauthorized("Token is missing")
	}

	claims, err := g.tokens.ParseAccess(token)
	if err != nil {
		g.metrics.RecordAuthz("unauthenticated")
		return apperrors.NewUnauthorized("Invalid or expired token")
	}

	session, err := g.resolve(c.UserContext(), claims.Subject)
	if err != nil {
		return err
	}

	c.Locals(sessionKey, session)
	c.SetUserContext(WithSession(c.UserContext(), session))

	if !Allowed(session, StripPrefix(c.Path(), g.prefix), c.Method()) {
		g.metrics.RecordAuthz("deny")
		return apperrors.NewForbidden("Access denied: insufficient permissions")
	}
	g.metrics.RecordAuthz("allow")
	return c.Next()
}

// resolve reads the session from cache, falling back to the database.
func (g *Guard) resolve(ctx context.Context, userID string) (*domain.Session, error) {
	if session, ok := g.sessions.Get(ctx, userID); ok {
		return session, nil
	}

	user, err := g.users.GetWithPermissions(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewForbidden("User not found")
		}
		g.logger.Error("load session user", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	if !user.State {
		return nil, apperrors.NewForbidden("User is inactive")
	}

	session := domain.NewSession(user)
	g.sessions.Set(ctx, userID, session, 0)
	return session, nil
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// WithSession stores the session in ctx.
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

// SessionFromContext retrieves the session stored by WithSession.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*domain.Session)
	return session, ok && session != nil
}

// SessionFromFiber retrieves the session resolved by the guard.
func SessionFromFiber(c *fiber.Ctx) (*domain.Session, bool) {
	session, ok := c.Locals(sessionKey).(*domain.Session)
	return session, ok && session != nil
}
