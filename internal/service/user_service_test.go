package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var _ = Describe("UserService", func() {
	var (
		ctx      context.Context
		db       *memDB
		users    *service.UserService
		authSvc  *service.AuthService
		sessions *cache.SessionCache
		tokens   *auth.TokenManager
		input    service.UserCreateInput
		deps     service.Dependencies
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = newMemDB()
		seedWorkflow(db)
		store := &fakeStore{db: db}
		manager := newCache()
		sessions = cache.NewSessionCache(manager, time.Hour)
		dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
		service.NewSessionInvalidator(store, sessions, zap.NewNop()).RegisterHandlers(dispatcher)
		hasher := auth.NewPasswordHasher(bcrypt.MinCost)
		deps = service.Dependencies{Store: store, Cache: manager, Logger: zap.NewNop(), Dispatcher: dispatcher}
		users = service.NewUserService(deps, hasher)
		tokens = auth.NewTokenManager("secret", "refresh", time.Hour, time.Hour)
		authSvc = service.NewAuthService(service.AuthDependencies{
			Store:    store,
			Tokens:   tokens,
			Hasher:   hasher,
			Sessions: sessions,
			Roles:    service.NewRoleService(deps),
			Logger:   zap.NewNop(),
		})
		input = service.UserCreateInput{
			Name:     "Marta",
			Email:    "Marta@Example.com",
			Username: "marta.agent",
			Password: "secret123",
			RoleID:   ptr("role-agent"),
		}
	})

	It("refreshes cached tickets after their creator is renamed", func() {
		tickets := service.NewTicketService(service.TicketDependencies{
			Dependencies: deps,
			States:       service.NewTicketStateService(deps),
			Notifier:     &fakeNotifier{},
		})
		res, err := tickets.Create(ctx, sessionFor(db, "user-1"), service.TicketCreateInput{TicketTitleID: "title-1"})
		Expect(err).NotTo(HaveOccurred())
		cached, err := tickets.FindOne(ctx, res.Data.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(cached.User.Name).To(Equal("Luis"))

		_, err = users.Update(ctx, "user-1", service.UserUpdateInput{Name: ptr("Lucho")})
		Expect(err).NotTo(HaveOccurred())

		fresh, err := tickets.FindOne(ctx, res.Data.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(fresh.User.Name).To(Equal("Lucho"))
	})

	It("rejects branchId together with branches without persisting anything", func() {
		input.BranchID = ptr("branch-1")
		input.Branches = []string{"branch-1", "branch-2"}
		_, err := users.Create(ctx, input)
		Expect(apperrors.IsKind(err, apperrors.CodeBadRequest)).To(BeTrue())
		Expect(err.Error()).To(Equal("Cannot specify both branchId and branches"))
		Expect(db.users).To(HaveLen(2))
	})

	It("creates the user with its branch links and a bcrypt hash", func() {
		input.Branches = []string{"branch-1", "branch-2"}
		user, err := users.Create(ctx, input)
		Expect(err).NotTo(HaveOccurred())
		Expect(user.Email).To(Equal("marta@example.com"))
		Expect(db.users[user.ID].PasswordHash).NotTo(Equal("secret123"))
		Expect(bcrypt.CompareHashAndPassword([]byte(db.users[user.ID].PasswordHash), []byte("secret123"))).To(Succeed())
		Expect(db.userBranches).To(HaveLen(2))
	})

	It("rolls the user back when a branch link is invalid", func() {
		input.RoleID = ptr("role-user")
		input.Branches = []string{"branch-1"}
		_, err := users.Create(ctx, input)
		Expect(apperrors.IsKind(err, apperrors.CodeBadRequest)).To(BeTrue())
		Expect(db.users).To(HaveLen(2))
		Expect(db.userBranches).To(BeEmpty())
	})

	It("rejects taken usernames and unknown roles", func() {
		input.Username = "luis.user"
		_, err := users.Create(ctx, input)
		Expect(apperrors.IsKind(err, apperrors.CodeConflict)).To(BeTrue())
		Expect(err.Error()).To(Equal("User with username luis.user already exists"))

		input.Username = "marta.agent"
		input.RoleID = ptr("ghost")
		_, err = users.Create(ctx, input)
		Expect(err.Error()).To(Equal("Role with id ghost not found"))
	})

	It("drops the cached session when the user changes", func() {
		sessions.Set(ctx, "user-1", sessionFor(db, "user-1"), 0)
		_, err := users.Update(ctx, "user-1", service.UserUpdateInput{Name: ptr("Luisa")})
		Expect(err).NotTo(HaveOccurred())
		_, ok := sessions.Get(ctx, "user-1")
		Expect(ok).To(BeFalse())
	})

	Describe("AuthService", func() {
		BeforeEach(func() {
			_, err := users.Create(ctx, input)
			Expect(err).NotTo(HaveOccurred())
		})

		It("logs in, primes the session and refreshes", func() {
			pair, err := authSvc.Login(ctx, service.LoginInput{Username: "marta.agent", Password: "secret123"})
			Expect(err).NotTo(HaveOccurred())
			claims, err := tokens.ParseAccess(pair.AccessToken)
			Expect(err).NotTo(HaveOccurred())

			session, ok := sessions.Get(ctx, claims.Subject)
			Expect(ok).To(BeTrue())
			Expect(session.Role.IsAgent).To(BeTrue())

			refreshed, err := authSvc.Refresh(ctx, service.RefreshInput{RefreshToken: pair.RefreshToken})
			Expect(err).NotTo(HaveOccurred())
			Expect(refreshed.AccessToken).NotTo(BeEmpty())
			Expect(refreshed.RefreshToken).To(BeEmpty())

			authSvc.Logout(ctx, service.LogoutInput{UserID: claims.Subject})
			_, ok = sessions.Get(ctx, claims.Subject)
			Expect(ok).To(BeFalse())
		})

		It("rejects bad credentials and access tokens used as refresh tokens", func() {
			_, err := authSvc.Login(ctx, service.LoginInput{Username: "marta.agent", Password: "wrong"})
			Expect(apperrors.IsKind(err, apperrors.CodeUnauthorized)).To(BeTrue())
			_, err = authSvc.Login(ctx, service.LoginInput{Username: "nobody", Password: "secret123"})
			Expect(apperrors.IsKind(err, apperrors.CodeUnauthorized)).To(BeTrue())

			pair, err := authSvc.Login(ctx, service.LoginInput{Username: "marta.agent", Password: "secret123"})
			Expect(err).NotTo(HaveOccurred())
			_, err = authSvc.Refresh(ctx, service.RefreshInput{RefreshToken: pair.AccessToken})
			Expect(apperrors.IsKind(err, apperrors.CodeUnauthorized)).To(BeTrue())
		})
	})
})
