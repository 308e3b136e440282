package http_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const existingBranch = "7f1c7c8e-3a55-4d8c-9a2e-5a1f0b7d2c11"

type fakeBranches struct {
	items     map[string]domain.Branch
	lastQuery domain.ListQuery
}

func (f *fakeBranches) Create(_ context.Context, input service.BranchCreateInput) (*domain.Branch, error) {
	for _, b := range f.items {
		if b.Name == input.Name {
			return nil, apperrors.NewConflict(fmt.Sprintf("Branch with name %s already exists", input.Name))
		}
	}
	b := domain.Branch{ID: fmt.Sprintf("b-%d", len(f.items)+1), Name: input.Name, State: true}
	f.items[b.ID] = b
	return &b, nil
}

func (f *fakeBranches) FindAll(_ context.Context, q domain.ListQuery) (domain.Page[domain.Branch], error) {
	f.lastQuery = q
	page := domain.Page[domain.Branch]{Data: []domain.Branch{}}
	for _, b := range f.items {
		page.Data = append(page.Data, b)
	}
	page.Total = len(page.Data)
	return page, nil
}

func (f *fakeBranches) FindOne(_ context.Context, id string) (*domain.Branch, error) {
	b, ok := f.items[id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("Branch with id %s not found", id))
	}
	return &b, nil
}

func (f *fakeBranches) Update(_ context.Context, id string, input service.BranchUpdateInput) (*domain.Branch, error) {
	b, ok := f.items[id]
	if !ok {
		return nil, apperrors.NewNotFound(fmt.Sprintf("Branch with id %s not found", id))
	}
	if input.Name != nil {
		b.Name = *input.Name
	}
	f.items[id] = b
	return &b, nil
}

func (f *fakeBranches) Remove(_ context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return errors.New("connection reset")
	}
	delete(f.items, id)
	return nil
}

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) GetWithPermissions(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

type fakeAudit struct {
	mu   sync.Mutex
	rows []domain.Audit
}

func (f *fakeAudit) Record(a domain.Audit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, a)
}

func (f *fakeAudit) all() []domain.Audit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Audit(nil), f.rows...)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type panicking struct{}

func (panicking) Mount(group fiber.Router) {
	group.Get("", func(*fiber.Ctx) error { panic("boom") })
}

type envelope struct {
	Status     bool           `json:"status"`
	StatusCode int            `json:"statusCode"`
	Message    string         `json:"message"`
	ResultData map[string]any `json:"resultData"`
	Error      struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

var _ = Describe("Router", func() {
	var (
		app      *fiber.App
		tokens   *auth.TokenManager
		sessions *cache.SessionCache
		branches *fakeBranches
		audits   *fakeAudit
	)

	BeforeEach(func() {
		db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		logger := zap.NewNop()
		manager := cache.NewManager(cache.NewBadgerStore(db), time.Minute, logger)
		sessions = cache.NewSessionCache(manager, time.Hour)
		tokens = auth.NewTokenManager("secret", "refresh", time.Hour, time.Hour)
		branches = &fakeBranches{items: map[string]domain.Branch{
			existingBranch: {ID: existingBranch, Name: "Quito", State: true},
		}}
		audits = &fakeAudit{}

		users := &fakeUsers{users: map[string]*domain.User{
			"config": {ID: "config", State: true, Role: &domain.Role{ID: "r1", Name: "configurator", IsConfigurator: true}},
			"reader": {ID: "reader", State: true, Role: &domain.Role{ID: "r2", Name: "reader", Permissions: []domain.Permission{
				{Endpoint: "/branch/:id", Methods: []string{"GET"}},
			}}},
		}}
		guard := auth.NewGuard(tokens, users, sessions, "/api", logger)

		app = fiber.New(fiber.Config{
			JSONEncoder:  json.Marshal,
			JSONDecoder:  json.Unmarshal,
			ErrorHandler: httptransport.ErrorHandler(logger),
		})
		httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{Logger: logger, Audit: audits, Timeout: time.Second})
		httptransport.RegisterRoutes(app, httptransport.RouteConfig{
			Prefix: "/api",
			Health: handlers.NewHealthHandler("helpdesk", "test", pinger{}, pinger{}),
			Auth:   handlers.NewAuthHandler(service.NewAuthService(service.AuthDependencies{Sessions: sessions, Logger: logger})),
			Guard:  guard.Handle,
			Groups: []httptransport.Group{
				{Path: "/branch", Handler: handlers.NewCrudHandler[domain.Branch, service.BranchCreateInput, service.BranchUpdateInput](branches, "Branch")},
				{Path: "/explode", Handler: panicking{}},
			},
		})
	})

	send := func(method, path, token, body string) (int, envelope) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		var env envelope
		Expect(json.Unmarshal(raw, &env)).To(Succeed(), string(raw))
		return resp.StatusCode, env
	}

	accessFor := func(userID string) string {
		token, _, err := tokens.GenerateAccess(userID)
		Expect(err).NotTo(HaveOccurred())
		return token
	}

	It("serves probes without a token and without auditing them", func() {
		status, env := send(http.MethodGet, "/health/live", "", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(env.Status).To(BeTrue())
		Expect(env.ResultData).To(HaveKeyWithValue("status", "alive"))

		status, env = send(http.MethodGet, "/health/ready", "", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(env.ResultData["dependencies"]).To(HaveKeyWithValue("postgres", "ok"))
		Expect(audits.all()).To(BeEmpty())
	})

	It("wraps guard rejections in the error envelope and audits them anonymously", func() {
		status, env := send(http.MethodGet, "/api/branch", "", "")
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(env.Status).To(BeFalse())
		Expect(env.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(env.Message).To(Equal("Token is missing"))
		Expect(env.Error.Code).To(Equal(apperrors.CodeUnauthorized))
		Expect(env.Timestamp).NotTo(BeZero())

		rows := audits.all()
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].UserID).To(BeEmpty())
		Expect(rows[0].Status).To(Equal(apperrors.CodeUnauthorized))
		Expect(rows[0].Method).To(Equal(http.MethodGet))
	})

	It("creates through the envelope and audits the route template", func() {
		status, env := send(http.MethodPost, "/api/branch", accessFor("config"), `{"name":"Guayaquil"}`)
		Expect(status).To(Equal(http.StatusCreated))
		Expect(env.Status).To(BeTrue())
		Expect(env.StatusCode).To(Equal(http.StatusCreated))
		Expect(env.Message).To(Equal("Branch created successfully"))
		Expect(env.ResultData).To(HaveKeyWithValue("name", "Guayaquil"))

		rows := audits.all()
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].UserID).To(Equal("config"))
		Expect(rows[0].Endpoint).To(Equal("/api/branch"))
		Expect(rows[0].Status).To(Equal("SUCCESS"))
		Expect(rows[0].Message).To(Equal("Branch created successfully"))
	})

	It("reports validation failures field by field", func() {
		status, env := send(http.MethodPost, "/api/branch", accessFor("config"), `{"description":"no name"}`)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(env.Error.Code).To(Equal(apperrors.CodeValidation))
		Expect(env.Error.Details).To(HaveKey("fields"))
		Expect(env.Message).To(ContainSubstring("name is required"))
	})

	It("rejects malformed bodies and ids", func() {
		status, env := send(http.MethodPost, "/api/branch", accessFor("config"), `{"name":`)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(env.Error.Code).To(Equal(apperrors.CodeBadRequest))

		status, env = send(http.MethodGet, "/api/branch/not-a-uuid", accessFor("config"), "")
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(env.Error.Code).To(Equal(apperrors.CodeBadRequest))
	})

	It("surfaces service errors with their kind", func() {
		status, env := send(http.MethodPost, "/api/branch", accessFor("config"), `{"name":"Quito"}`)
		Expect(status).To(Equal(http.StatusConflict))
		Expect(env.Message).To(Equal("Branch with name Quito already exists"))

		missing := "0d4f5c8a-1111-4a4a-8b8b-222233334444"
		status, env = send(http.MethodGet, "/api/branch/"+missing, accessFor("config"), "")
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(env.Message).To(Equal("Branch with id " + missing + " not found"))
	})

	It("hides unexpected errors behind a generic message", func() {
		status, env := send(http.MethodDelete, "/api/branch/0d4f5c8a-1111-4a4a-8b8b-222233334444", accessFor("config"), "")
		Expect(status).To(Equal(http.StatusInternalServerError))
		Expect(env.Error.Code).To(Equal(apperrors.CodeInternal))
		Expect(env.Message).To(Equal("internal server error"))
	})

	It("recovers from panics", func() {
		status, env := send(http.MethodGet, "/api/explode", accessFor("config"), "")
		Expect(status).To(Equal(http.StatusInternalServerError))
		Expect(env.Status).To(BeFalse())
		Expect(env.Error.Code).To(Equal(apperrors.CodeInternal))
	})

	It("passes paging parameters to the service", func() {
		status, env := send(http.MethodGet, "/api/branch?skip=2&take=5&filter=qu&withDeleted=true", accessFor("reader"), "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(env.ResultData).To(HaveKeyWithValue("total", BeNumerically("==", 1)))
		Expect(branches.lastQuery).To(Equal(domain.ListQuery{Skip: 2, Take: 5, Filter: "qu", WithDeleted: true}))

		status, _ = send(http.MethodGet, "/api/branch?skip=-1", accessFor("reader"), "")
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("enforces route permissions per method", func() {
		status, _ := send(http.MethodGet, "/api/branch/"+existingBranch, accessFor("reader"), "")
		Expect(status).To(Equal(http.StatusOK))

		status, env := send(http.MethodPatch, "/api/branch/"+existingBranch, accessFor("reader"), `{"name":"x"}`)
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(env.Message).To(Equal("Access denied: insufficient permissions"))
		Expect(branches.items[existingBranch].Name).To(Equal("Quito"))
	})

	It("keeps logout public and drops the cached session", func() {
		userID := "0d4f5c8a-1111-4a4a-8b8b-222233334444"
		sessions.Set(context.Background(), userID, &domain.Session{ID: userID}, 0)

		status, env := send(http.MethodPost, "/api/auth/logout", "", `{"userId":"`+userID+`"}`)
		Expect(status).To(Equal(http.StatusOK))
		Expect(env.Message).To(Equal("User logged out successfully"))
		_, ok := sessions.Get(context.Background(), userID)
		Expect(ok).To(BeFalse())
	})

	It("keeps the other auth routes behind the guard", func() {
		status, _ := send(http.MethodPatch, "/api/auth/password", "", `{"currentPassword":"a","newPassword":"abcdef"}`)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})
})
