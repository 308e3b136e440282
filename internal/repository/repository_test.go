//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

var _ = Describe("Postgres store", Ordered, func() {
	var (
		ctx   context.Context
		store repository.Store
	)

	BeforeAll(func() {
		ctx = context.Background()
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "helpdesk",
					"POSTGRES_PASSWORD": "helpdesk",
					"POSTGRES_DB":       "helpdesk",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(90 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			Skip("docker unavailable: " + err.Error())
		}
		DeferCleanup(func() { _ = container.Terminate(context.Background()) })

		host, err := container.Host(ctx)
		Expect(err).NotTo(HaveOccurred())
		port, err := container.MappedPort(ctx, "5432/tcp")
		Expect(err).NotTo(HaveOccurred())

		dsn := fmt.Sprintf("postgres://helpdesk:helpdesk@%s:%s/helpdesk?sslmode=disable", host, port.Port())
		pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 4}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pg.Close)

		Expect(persistence.RunMigrations(ctx, pg.PoolHandle(), "up", zap.NewNop())).To(Succeed())
		store = repository.NewStore(pg.PoolHandle())
	})

	It("loads a user with its role permissions", func() {
		role := &domain.Role{Name: "agents", IsAgent: true, State: true}
		Expect(store.Roles().Create(ctx, role)).To(Succeed())
		Expect(store.Permissions().Create(ctx, &domain.Permission{
			Endpoint: "/tickets/:id", Methods: []string{"GET", "PATCH"}, RoleID: &role.ID,
		})).To(Succeed())

		user := &domain.User{
			Name: "Ana", Email: "ana@example.com", Username: "ana.agent",
			PasswordHash: "x", RoleID: &role.ID, State: true,
		}
		Expect(store.Users().Create(ctx, user)).To(Succeed())

		loaded, err := store.Users().GetWithPermissions(ctx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Role).NotTo(BeNil())
		Expect(loaded.Role.IsAgent).To(BeTrue())
		Expect(loaded.Role.Permissions).To(HaveLen(1))
		Expect(loaded.Role.Permissions[0].Methods).To(ConsistOf("GET", "PATCH"))

		ids, err := store.Users().ListIDsByRole(ctx, role.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(ConsistOf(user.ID))
	})

	It("rolls back every write of a failed transaction", func() {
		boom := errors.New("boom")
		err := store.WithTx(ctx, func(tx repository.Store) error {
			if err := tx.Branches().Create(ctx, &domain.Branch{Name: "Rollback", State: true}); err != nil {
				return err
			}
			return boom
		})
		Expect(err).To(MatchError(boom))

		_, err = store.Branches().GetByName(ctx, "Rollback")
		Expect(errors.Is(err, pgx.ErrNoRows)).To(BeTrue())
	})

	It("hides soft-deleted rows unless asked for them", func() {
		branch := &domain.Branch{Name: "Cuenca", State: true}
		Expect(store.Branches().Create(ctx, branch)).To(Succeed())
		Expect(store.Branches().SoftDelete(ctx, branch.ID)).To(Succeed())

		_, err := store.Branches().GetByID(ctx, branch.ID)
		Expect(errors.Is(err, pgx.ErrNoRows)).To(BeTrue())

		live, err := store.Branches().List(ctx, domain.ListQuery{Filter: "Cuenca"}.Normalize())
		Expect(err).NotTo(HaveOccurred())
		Expect(live.Total).To(BeZero())

		all, err := store.Branches().List(ctx, domain.ListQuery{Filter: "Cuenca", WithDeleted: true}.Normalize())
		Expect(err).NotTo(HaveOccurred())
		Expect(all.Total).To(Equal(1))
	})

	It("reports duplicate names as unique violations", func() {
		Expect(store.Branches().Create(ctx, &domain.Branch{Name: "Loja", State: true})).To(Succeed())
		err := store.Branches().Create(ctx, &domain.Branch{Name: "Loja", State: true})
		Expect(apperrors.IsUniqueViolation(err)).To(BeTrue())
		Expect(apperrors.ToDomainError(err).Code).To(Equal(apperrors.CodeConflict))
	})
})
