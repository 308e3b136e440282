package cache_test

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func openStore() *cache.BadgerStore {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(db.Close)
	return cache.NewBadgerStore(db)
}

var _ = Describe("BadgerStore", func() {
	var (
		ctx   context.Context
		store *cache.BadgerStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = openStore()
	})

	It("returns a miss for unknown keys", func() {
		_, ok, err := store.Get(ctx, "missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("deletes only keys under the pattern prefix", func() {
		Expect(store.Set(ctx, "branches:skip:0:take:10:filter:", []byte("a"), time.Minute)).To(Succeed())
		Expect(store.Set(ctx, "branches:skip:10:take:10:filter:x", []byte("b"), time.Minute)).To(Succeed())
		Expect(store.Set(ctx, "branch:1", []byte("c"), time.Minute)).To(Succeed())
		Expect(store.Set(ctx, "branchesReport:1", []byte("d"), time.Minute)).To(Succeed())

		Expect(store.DelPattern(ctx, "branches:*")).To(Succeed())

		keys, err := store.Keys(ctx, "branch*")
		Expect(err).NotTo(HaveOccurred())
		Expect(keys).To(ConsistOf("branch:1", "branchesReport:1"))
	})

	It("expires entries after their TTL", func() {
		Expect(store.Set(ctx, "short", []byte("v"), time.Second)).To(Succeed())
		Eventually(func() bool {
			_, ok, _ := store.Get(ctx, "short")
			return ok
		}, 4*time.Second, 100*time.Millisecond).Should(BeFalse())
	})
})

var _ = Describe("Manager", func() {
	var (
		ctx     context.Context
		manager *cache.Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		manager = cache.NewManager(openStore(), time.Minute, zap.NewNop())
	})

	It("builds list and entity keys", func() {
		q := domain.ListQuery{Skip: 5, Take: 20, Filter: "net"}
		Expect(cache.ListKey("tickets", q)).To(Equal("tickets:skip:5:take:20:filter:net"))
		q.WithDeleted = true
		Expect(cache.ListKey("tickets", q)).To(Equal("tickets:skip:5:take:20:filter:net:deleted:true"))
		Expect(cache.EntityKey("ticket", "abc")).To(Equal("ticket:abc"))
	})

	It("drops the entity key and its list keys on invalidate", func() {
		branch := domain.Branch{ID: "b1", Name: "North"}
		manager.Set(ctx, "branch:b1", branch, 0)
		manager.Set(ctx, "branches:skip:0:take:100:filter:", []domain.Branch{branch}, 0)
		manager.Set(ctx, "branch:b2", domain.Branch{ID: "b2"}, 0)

		manager.Invalidate(ctx, "branch", "branches", "b1")

		var got domain.Branch
		Expect(manager.Get(ctx, "branch:b1", &got)).To(BeFalse())
		var list []domain.Branch
		Expect(manager.Get(ctx, "branches:skip:0:take:100:filter:", &list)).To(BeFalse())
		Expect(manager.Get(ctx, "branch:b2", &got)).To(BeTrue())
		Expect(got.ID).To(Equal("b2"))
	})
})

var _ = Describe("SessionCache", func() {
	var (
		ctx      context.Context
		sessions *cache.SessionCache
	)

	BeforeEach(func() {
		ctx = context.Background()
		manager := cache.NewManager(openStore(), time.Minute, zap.NewNop())
		sessions = cache.NewSessionCache(manager, time.Hour)
	})

	newSession := func() *domain.Session {
		branch := "branch-1"
		return &domain.Session{
			ID:       "user-1",
			Name:     "Ana",
			Lastname: "Diaz",
			Email:    "ana@example.com",
			BranchID: &branch,
			Role: domain.SessionRole{
				ID:      "role-1",
				Name:    "agent",
				IsAgent: true,
				State:   true,
				Permissions: []domain.SessionPermission{
					{Endpoint: "/branch/:id", Methods: []string{"GET", "PATCH"}},
				},
			},
		}
	}

	It("round-trips a session", func() {
		session := newSession()
		sessions.Set(ctx, session.ID, session, 0)

		got, ok := sessions.Get(ctx, session.ID)
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(session))
	})

	It("reports absence after the TTL elapses", func() {
		session := newSession()
		sessions.Set(ctx, session.ID, session, time.Second)

		Eventually(func() bool {
			_, ok := sessions.Get(ctx, session.ID)
			return ok
		}, 4*time.Second, 100*time.Millisecond).Should(BeFalse())
	})

	It("deletes sessions explicitly", func() {
		session := newSession()
		sessions.Set(ctx, session.ID, session, 0)
		sessions.Delete(ctx, session.ID)

		_, ok := sessions.Get(ctx, session.ID)
		Expect(ok).To(BeFalse())
	})
})
