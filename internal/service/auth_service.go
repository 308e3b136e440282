package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// LoginInput holds credentials.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshInput carries a refresh token.
type RefreshInput struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutInput names the user whose session is dropped.
type LogoutInput struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

// ChangePasswordInput verifies the current password before replacing it.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// TokenPair is returned by login; refresh omits the refresh token.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt,omitempty"`
}

// AuthService coordinates login, refresh and logout.
type AuthService struct {
	store    repository.Store
	tokens   *auth.TokenManager
	hasher   *auth.PasswordHasher
	sessions *cache.SessionCache
	roles    *RoleService
	logger   *zap.Logger
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	Store    repository.Store
	Tokens   *auth.TokenManager
	Hasher   *auth.PasswordHasher
	Sessions *cache.SessionCache
	Roles    *RoleService
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		store:    deps.Store,
		tokens:   deps.Tokens,
		hasher:   deps.Hasher,
		sessions: deps.Sessions,
		roles:    deps.Roles,
		logger:   deps.Logger,
	}
}

// Login checks the credentials, primes the session cache and issues tokens.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenPair, error) {
	user, err := s.store.Users().GetByUsername(ctx, strings.TrimSpace(input.Username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewUnauthorized("Invalid credentials")
	}
	if err != nil {
		return nil, internal(s.logger, "load user", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		return nil, apperrors.NewUnauthorized("Invalid credentials")
	}
	if !user.State {
		return nil, apperrors.NewForbidden("User is inactive")
	}

	if full, err := s.store.Users().GetWithPermissions(ctx, user.ID); err == nil {
		s.sessions.Set(ctx, user.ID, domain.NewSession(full), 0)
	} else {
		s.logger.Warn("session prime failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	access, accessExp, err := s.tokens.GenerateAccess(user.ID)
	if err != nil {
		return nil, internal(s.logger, "sign access token", err)
	}
	refresh, refreshExp, err := s.tokens.GenerateRefresh(user.ID)
	if err != nil {
		return nil, internal(s.logger, "sign refresh token", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (*TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(input.RefreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Invalid or expired token")
	}
	user, err := s.store.Users().GetByID(ctx, claims.Subject)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewForbidden("User not found")
	}
	if err != nil {
		return nil, internal(s.logger, "load user", err)
	}
	if !user.State {
		return nil, apperrors.NewForbidden("User is inactive")
	}
	access, exp, err := s.tokens.GenerateAccess(user.ID)
	if err != nil {
		return nil, internal(s.logger, "sign access token", err)
	}
	return &TokenPair{AccessToken: access, AccessExpiresAt: exp}, nil
}

// Logout drops the cached session; outstanding tokens stay valid until expiry
// but the next request reloads the user from the database.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) {
	s.sessions.Delete(ctx, input.UserID)
}

// Roles lists the active roles.
func (s *AuthService) Roles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.ListActive(ctx)
}

// ChangePassword verifies the caller's current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, session *domain.Session, input ChangePasswordInput) error {
	if session == nil {
		return apperrors.NewUnauthorized("User not authenticated")
	}
	user, err := s.store.Users().GetByID(ctx, session.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewForbidden("User not found")
	}
	if err != nil {
		return internal(s.logger, "load user", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, input.CurrentPassword); err != nil {
		return apperrors.NewBadRequest("Current password is incorrect")
	}
	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return internal(s.logger, "hash password", err)
	}
	user.PasswordHash = hash
	if err := s.store.Users().Update(ctx, user); err != nil {
		return internal(s.logger, "update password", err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
