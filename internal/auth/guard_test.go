package auth_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type fakeUsers struct {
	users      map[string]*domain.User
	calls      int
	shouldFail bool
}

func (f *fakeUsers) GetWithPermissions(_ context.Context, id string) (*domain.User, error) {
	f.calls++
	if f.shouldFail {
		return nil, errors.New("connection refused")
	}
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

var _ = Describe("Guard", func() {
	var (
		app      *fiber.App
		tokens   *auth.TokenManager
		users    *fakeUsers
		sessions *cache.SessionCache
	)

	BeforeEach(func() {
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		manager := cache.NewManager(cache.NewBadgerStore(db), time.Minute, zap.NewNop())
		sessions = cache.NewSessionCache(manager, time.Hour)
		tokens = auth.NewTokenManager("secret", "refresh", time.Hour, time.Hour)
		users = &fakeUsers{users: map[string]*domain.User{
			"agent": {
				ID:    "agent",
				Name:  "Ana",
				State: true,
				Role: &domain.Role{ID: "r1", Name: "agent", IsAgent: true, Permissions: []domain.Permission{
					{Endpoint: "/branch/:id", Methods: []string{"PATCH"}},
				}},
			},
			"config": {
				ID:    "config",
				State: true,
				Role:  &domain.Role{ID: "r2", Name: "configurator", IsConfigurator: true},
			},
			"retired": {
				ID:   "retired",
				Role: &domain.Role{ID: "r2", Name: "configurator", IsConfigurator: true},
			},
		}}

		guard := auth.NewGuard(tokens, users, sessions, "/api", zap.NewNop())
		app = fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Message)
		}})
		api := app.Group("/api", guard.Handle)
		handler := func(c *fiber.Ctx) error {
			session, ok := auth.SessionFromFiber(c)
			if !ok {
				return fiber.ErrTeapot
			}
			fromCtx, ok := auth.SessionFromContext(c.UserContext())
			if !ok || fromCtx.ID != session.ID {
				return fiber.ErrTeapot
			}
			return c.SendString(session.ID)
		}
		api.Patch("/branch/:id", handler)
		api.Get("/branchReports", handler)
		api.Delete("/audits/:id", handler)
	})

	send := func(method, path, token string) (int, string) {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(body)
	}

	accessFor := func(userID string) string {
		token, _, err := tokens.GenerateAccess(userID)
		Expect(err).NotTo(HaveOccurred())
		return token
	}

	It("rejects requests without a bearer token before any lookup", func() {
		status, body := send(http.MethodPatch, "/api/branch/abc", "")
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(Equal("Token is missing"))
		Expect(users.calls).To(BeZero())
	})

	It("rejects malformed tokens", func() {
		status, body := send(http.MethodPatch, "/api/branch/abc", "garbage")
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(Equal("Invalid or expired token"))
	})

	It("rejects refresh tokens", func() {
		token, _, err := tokens.GenerateRefresh("agent")
		Expect(err).NotTo(HaveOccurred())
		status, _ := send(http.MethodPatch, "/api/branch/abc", token)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})

	It("forbids tokens of unknown users", func() {
		status, body := send(http.MethodPatch, "/api/branch/abc", accessFor("ghost"))
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(Equal("User not found"))
	})

	It("forbids tokens of deactivated users and caches nothing", func() {
		status, body := send(http.MethodDelete, "/api/audits/1", accessFor("retired"))
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(Equal("User is inactive"))

		_, ok := sessions.Get(context.Background(), "retired")
		Expect(ok).To(BeFalse())
	})

	It("returns an internal error when the user store fails", func() {
		users.shouldFail = true
		status, _ := send(http.MethodPatch, "/api/branch/abc", accessFor("agent"))
		Expect(status).To(Equal(http.StatusInternalServerError))
	})

	It("authorizes a matching permission and caches the session", func() {
		status, body := send(http.MethodPatch, "/api/branch/abc123", accessFor("agent"))
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal("agent"))

		cached, ok := sessions.Get(context.Background(), "agent")
		Expect(ok).To(BeTrue())
		Expect(cached.Role.Permissions).To(HaveLen(1))

		status, _ = send(http.MethodPatch, "/api/branch/other", accessFor("agent"))
		Expect(status).To(Equal(http.StatusOK))
		Expect(users.calls).To(Equal(1))
	})

	It("does not treat a shared string prefix as a match", func() {
		status, body := send(http.MethodGet, "/api/branchReports", accessFor("agent"))
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(Equal("Access denied: insufficient permissions"))
	})

	It("lets configurators bypass permissions", func() {
		status, _ := send(http.MethodDelete, "/api/audits/1", accessFor("config"))
		Expect(status).To(Equal(http.StatusOK))
	})

	It("falls back to the database once the session is evicted", func() {
		send(http.MethodPatch, "/api/branch/abc", accessFor("agent"))
		sessions.Delete(context.Background(), "agent")
		send(http.MethodPatch, "/api/branch/abc", accessFor("agent"))
		Expect(users.calls).To(Equal(2))
	})
})
