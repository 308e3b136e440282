package service_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jackc/pgx/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/notify"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// memDB is the state behind fakeStore. WithTx restores a snapshot on error.
type memDB struct {
	roles        map[string]domain.Role
	permissions  map[string]domain.Permission
	users        map[string]domain.User
	branches     map[string]domain.Branch
	states       map[string]domain.TicketState
	titles       map[string]domain.TicketTitle
	tickets      map[string]domain.Ticket
	assigned     []domain.AssignedUserTicket
	details      []domain.TicketDetail
	userBranches []domain.AssignedUserBranch
	seq          int
	branchReads  int
}

func newMemDB() *memDB {
	return &memDB{
		roles:       map[string]domain.Role{},
		permissions: map[string]domain.Permission{},
		users:       map[string]domain.User{},
		branches:    map[string]domain.Branch{},
		states:      map[string]domain.TicketState{},
		titles:      map[string]domain.TicketTitle{},
		tickets:     map[string]domain.Ticket{},
	}
}

func (db *memDB) clone() *memDB {
	cp := *db
	cp.roles = maps.Clone(db.roles)
	cp.permissions = maps.Clone(db.permissions)
	cp.users = maps.Clone(db.users)
	cp.branches = maps.Clone(db.branches)
	cp.states = maps.Clone(db.states)
	cp.titles = maps.Clone(db.titles)
	cp.tickets = maps.Clone(db.tickets)
	cp.assigned = slices.Clone(db.assigned)
	cp.details = slices.Clone(db.details)
	cp.userBranches = slices.Clone(db.userBranches)
	return &cp
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func ptr[T any](v T) *T { return &v }

// fakeStore implements the repositories the services under test touch.
// Calling any other accessor panics on the nil embedded Store.
type fakeStore struct {
	repository.Store
	db *memDB
}

func (s *fakeStore) WithTx(_ context.Context, fn func(tx repository.Store) error) error {
	snapshot := s.db.clone()
	if err := fn(s); err != nil {
		*s.db = *snapshot
		return err
	}
	return nil
}

func (s *fakeStore) Roles() repository.RoleRepository             { return &fakeRoles{db: s.db} }
func (s *fakeStore) Permissions() repository.PermissionRepository {
	return &fakePermissions{db: s.db}
}
func (s *fakeStore) Users() repository.UserRepository             { return &fakeUsers{db: s.db} }
func (s *fakeStore) Branches() repository.BranchRepository        { return &fakeBranches{db: s.db} }
func (s *fakeStore) TicketStates() repository.TicketStateRepository { return &fakeStates{db: s.db} }
func (s *fakeStore) TicketTitles() repository.TicketTitleRepository { return &fakeTitles{db: s.db} }
func (s *fakeStore) Tickets() repository.TicketRepository         { return &fakeTickets{db: s.db} }
func (s *fakeStore) TicketDetails() repository.TicketDetailRepository {
	return &fakeDetails{db: s.db}
}
func (s *fakeStore) AssignedUserTickets() repository.AssignedUserTicketRepository {
	return &fakeAssigned{db: s.db}
}
func (s *fakeStore) AssignedUserBranches() repository.AssignedUserBranchRepository {
	return &fakeUserBranches{db: s.db}
}

type fakeRoles struct {
	repository.RoleRepository
	db *memDB
}

func (r *fakeRoles) GetByID(_ context.Context, id string) (*domain.Role, error) {
	role, ok := r.db.roles[id]
	if !ok || role.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	role.Permissions = []domain.Permission{}
	for _, p := range r.db.permissions {
		if p.DeletedAt == nil && p.RoleID != nil && *p.RoleID == id {
			role.Permissions = append(role.Permissions, p)
		}
	}
	sort.Slice(role.Permissions, func(i, j int) bool { return role.Permissions[i].Endpoint < role.Permissions[j].Endpoint })
	return &role, nil
}

func (r *fakeRoles) List(_ context.Context, q domain.ListQuery) (domain.Page[domain.Role], error) {
	page := domain.Page[domain.Role]{Data: []domain.Role{}}
	for _, role := range r.db.roles {
		if role.DeletedAt == nil || q.WithDeleted {
			page.Data = append(page.Data, role)
		}
	}
	sort.Slice(page.Data, func(i, j int) bool { return page.Data[i].Name < page.Data[j].Name })
	page.Total = len(page.Data)
	return page, nil
}

func (r *fakeRoles) SoftDelete(_ context.Context, id string) error {
	role, ok := r.db.roles[id]
	if !ok || role.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	role.DeletedAt = ptr(time.Now())
	r.db.roles[id] = role
	return nil
}

func (r *fakeRoles) GetByName(_ context.Context, name string) (*domain.Role, error) {
	for _, role := range r.db.roles {
		if role.Name == name && role.DeletedAt == nil {
			return &role, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeRoles) Update(_ context.Context, role *domain.Role) error {
	if _, ok := r.db.roles[role.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.db.roles[role.ID] = *role
	return nil
}

type fakePermissions struct {
	repository.PermissionRepository
	db *memDB
}

func (r *fakePermissions) GetByID(_ context.Context, id string) (*domain.Permission, error) {
	p, ok := r.db.permissions[id]
	if !ok || p.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *fakePermissions) Create(_ context.Context, perm *domain.Permission) error {
	perm.ID = r.db.nextID("perm")
	r.db.permissions[perm.ID] = *perm
	return nil
}

func (r *fakePermissions) Update(_ context.Context, perm *domain.Permission) error {
	if _, ok := r.db.permissions[perm.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.db.permissions[perm.ID] = *perm
	return nil
}

func (r *fakePermissions) SoftDelete(_ context.Context, id string) error {
	p, ok := r.db.permissions[id]
	if !ok || p.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	p.DeletedAt = ptr(time.Now())
	r.db.permissions[id] = p
	return nil
}

type fakeUsers struct {
	repository.UserRepository
	db *memDB
}

func (r *fakeUsers) live(match func(domain.User) bool) (*domain.User, error) {
	for _, u := range r.db.users {
		if u.DeletedAt == nil && match(u) {
			if u.RoleID != nil {
				if role, ok := r.db.roles[*u.RoleID]; ok {
					u.Role = &role
				}
			}
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.live(func(u domain.User) bool { return u.ID == id })
}

func (r *fakeUsers) GetWithPermissions(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.live(func(u domain.User) bool { return u.Username == username })
}

func (r *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.live(func(u domain.User) bool { return u.Email == email })
}

func (r *fakeUsers) FindDefaultAgent(_ context.Context, branchID string) (*domain.User, error) {
	return r.live(func(u domain.User) bool {
		return u.IsAgentDefault && u.State && u.BranchID != nil && *u.BranchID == branchID
	})
}

func (r *fakeUsers) ListAgentsByBranch(_ context.Context, branchID string) ([]domain.User, error) {
	agents := []domain.User{}
	for _, u := range r.db.users {
		if u.DeletedAt != nil || !u.State || u.RoleID == nil || !r.db.roles[*u.RoleID].IsAgent {
			continue
		}
		linked := slices.ContainsFunc(r.db.userBranches, func(l domain.AssignedUserBranch) bool {
			return l.UserID == u.ID && l.BranchID == branchID && l.DeletedAt == nil
		})
		if linked || (u.BranchID != nil && *u.BranchID == branchID) {
			agents = append(agents, u)
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents, nil
}

func (r *fakeUsers) ListIDsByRole(_ context.Context, roleID string) ([]string, error) {
	var ids []string
	for _, u := range r.db.users {
		if u.DeletedAt == nil && u.RoleID != nil && *u.RoleID == roleID {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *fakeUsers) Create(_ context.Context, user *domain.User) error {
	user.ID = r.db.nextID("user")
	user.CreatedAt = time.Now()
	stored := *user
	stored.Role = nil
	r.db.users[user.ID] = stored
	return nil
}

func (r *fakeUsers) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.db.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *user
	stored.Role = nil
	r.db.users[user.ID] = stored
	return nil
}

func (r *fakeUsers) SoftDelete(_ context.Context, id string) error {
	u, ok := r.db.users[id]
	if !ok || u.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	u.DeletedAt = ptr(time.Now())
	r.db.users[id] = u
	return nil
}

type fakeBranches struct {
	repository.BranchRepository
	db *memDB
}

func (r *fakeBranches) List(_ context.Context, q domain.ListQuery) (domain.Page[domain.Branch], error) {
	r.db.branchReads++
	page := domain.Page[domain.Branch]{Data: []domain.Branch{}}
	for _, b := range r.db.branches {
		if b.DeletedAt == nil || q.WithDeleted {
			page.Data = append(page.Data, b)
		}
	}
	sort.Slice(page.Data, func(i, j int) bool { return page.Data[i].Name < page.Data[j].Name })
	page.Total = len(page.Data)
	return page, nil
}

func (r *fakeBranches) GetByID(_ context.Context, id string) (*domain.Branch, error) {
	r.db.branchReads++
	b, ok := r.db.branches[id]
	if !ok || b.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return &b, nil
}

func (r *fakeBranches) GetByName(_ context.Context, name string) (*domain.Branch, error) {
	for _, b := range r.db.branches {
		if b.Name == name && b.DeletedAt == nil {
			return &b, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeBranches) Create(_ context.Context, branch *domain.Branch) error {
	branch.ID = r.db.nextID("branch")
	r.db.branches[branch.ID] = *branch
	return nil
}

func (r *fakeBranches) Update(_ context.Context, branch *domain.Branch) error {
	if _, ok := r.db.branches[branch.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.db.branches[branch.ID] = *branch
	return nil
}

func (r *fakeBranches) SoftDelete(_ context.Context, id string) error {
	b, ok := r.db.branches[id]
	if !ok || b.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	b.DeletedAt = ptr(time.Now())
	r.db.branches[id] = b
	return nil
}

type fakeStates struct {
	repository.TicketStateRepository
	db *memDB
}

func (r *fakeStates) GetByID(_ context.Context, id string) (*domain.TicketState, error) {
	s, ok := r.db.states[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (r *fakeStates) FindByOrder(_ context.Context, order int) (*domain.TicketState, error) {
	for _, s := range r.db.states {
		if s.State && s.DeletedAt == nil && s.OrderTicket == order {
			return &s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeStates) FindLast(_ context.Context) (*domain.TicketState, error) {
	var last *domain.TicketState
	for _, s := range r.db.states {
		if s.State && s.DeletedAt == nil && (last == nil || s.OrderTicket > last.OrderTicket) {
			last = &s
		}
	}
	if last == nil {
		return nil, pgx.ErrNoRows
	}
	return last, nil
}

type fakeTitles struct {
	repository.TicketTitleRepository
	db *memDB
}

func (r *fakeTitles) GetByID(_ context.Context, id string) (*domain.TicketTitle, error) {
	t, ok := r.db.titles[id]
	if !ok || t.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

type fakeTickets struct {
	repository.TicketRepository
	db *memDB
}

func (r *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := r.db.tickets[id]
	if !ok || t.DeletedAt != nil {
		return nil, pgx.ErrNoRows
	}
	if t.TicketStateID != nil {
		if s, ok := r.db.states[*t.TicketStateID]; ok {
			t.TicketState = &s
		}
	}
	if t.TicketTitleID != nil {
		if title, ok := r.db.titles[*t.TicketTitleID]; ok {
			t.TicketTitle = &title
		}
	}
	if t.UserID != nil {
		if u, ok := r.db.users[*t.UserID]; ok {
			t.User = &u
		}
	}
	for _, a := range r.db.assigned {
		if a.TicketID == id {
			t.AssignedUsers = append(t.AssignedUsers, a)
		}
	}
	return &t, nil
}

func (r *fakeTickets) List(_ context.Context, f repository.TicketFilter) (domain.Page[domain.Ticket], error) {
	page := domain.Page[domain.Ticket]{Data: []domain.Ticket{}}
	for _, t := range r.db.tickets {
		if t.DeletedAt != nil {
			continue
		}
		if f.CreatorID != nil && (t.UserID == nil || *t.UserID != *f.CreatorID) {
			continue
		}
		if f.AssigneeID != nil && !slices.ContainsFunc(r.db.assigned, func(a domain.AssignedUserTicket) bool {
			return a.TicketID == t.ID && a.UserID == *f.AssigneeID
		}) {
			continue
		}
		page.Data = append(page.Data, t)
	}
	sort.Slice(page.Data, func(i, j int) bool { return page.Data[i].TicketNumber > page.Data[j].TicketNumber })
	page.Total = len(page.Data)
	return page, nil
}

func (r *fakeTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.db.nextID("ticket")
	ticket.TicketNumber = int64(len(r.db.tickets) + 1)
	ticket.CreatedAt = time.Now()
	r.db.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.db.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *ticket
	stored.TicketState, stored.TicketTitle, stored.User, stored.AssignedUsers = nil, nil, nil, nil
	r.db.tickets[ticket.ID] = stored
	return nil
}

func (r *fakeTickets) UpdateState(_ context.Context, id, stateID string) error {
	t, ok := r.db.tickets[id]
	if !ok || t.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	t.TicketStateID = &stateID
	r.db.tickets[id] = t
	return nil
}

func (r *fakeTickets) SoftDelete(_ context.Context, id string) error {
	t, ok := r.db.tickets[id]
	if !ok || t.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	t.DeletedAt = ptr(time.Now())
	r.db.tickets[id] = t
	return nil
}

type fakeAssigned struct {
	repository.AssignedUserTicketRepository
	db *memDB
}

func (r *fakeAssigned) Create(_ context.Context, link *domain.AssignedUserTicket) error {
	link.ID = r.db.nextID("aut")
	r.db.assigned = append(r.db.assigned, *link)
	return nil
}

type fakeDetails struct {
	repository.TicketDetailRepository
	db *memDB
}

func (r *fakeDetails) ExistsForTicket(_ context.Context, ticketID string) (bool, error) {
	return slices.ContainsFunc(r.db.details, func(d domain.TicketDetail) bool {
		return d.TicketID == ticketID && d.DeletedAt == nil
	}), nil
}

func (r *fakeDetails) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketDetail, error) {
	out := []domain.TicketDetail{}
	for _, d := range r.db.details {
		if d.TicketID == ticketID && d.DeletedAt == nil {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDetails) Create(_ context.Context, detail *domain.TicketDetail) error {
	detail.ID = r.db.nextID("detail")
	detail.CreatedAt = time.Now()
	r.db.details = append(r.db.details, *detail)
	return nil
}

type fakeUserBranches struct {
	repository.AssignedUserBranchRepository
	db *memDB
}

func (r *fakeUserBranches) FindByPair(_ context.Context, userID, branchID string) (*domain.AssignedUserBranch, error) {
	for _, l := range r.db.userBranches {
		if l.UserID == userID && l.BranchID == branchID && l.DeletedAt == nil {
			return &l, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserBranches) GetByID(_ context.Context, id string) (*domain.AssignedUserBranch, error) {
	for _, l := range r.db.userBranches {
		if l.ID == id && l.DeletedAt == nil {
			return &l, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserBranches) Create(_ context.Context, link *domain.AssignedUserBranch) error {
	link.ID = r.db.nextID("aub")
	r.db.userBranches = append(r.db.userBranches, *link)
	return nil
}

func (r *fakeUserBranches) SoftDelete(_ context.Context, id string) error {
	for i, l := range r.db.userBranches {
		if l.ID == id && l.DeletedAt == nil {
			r.db.userBranches[i].DeletedAt = ptr(time.Now())
			return nil
		}
	}
	return pgx.ErrNoRows
}

// fakeNotifier records deliveries and fails them on demand.
type fakeNotifier struct {
	sent       []notify.Message
	shouldFail bool
}

func (n *fakeNotifier) Deliver(_ context.Context, msg notify.Message) service.NotificationResult {
	if n.shouldFail {
		return service.NotificationResult{Error: errors.New("smtp unavailable").Error()}
	}
	n.sent = append(n.sent, msg)
	return service.NotificationResult{Sent: true}
}

func (n *fakeNotifier) SupportContact() string { return "IT" }

func newCache() *cache.Manager {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(db.Close)
	return cache.NewManager(cache.NewBadgerStore(db), time.Minute, zap.NewNop())
}

// seedWorkflow creates four states, a titled category, a branch with a
// default agent and a regular user in that branch.
func seedWorkflow(db *memDB) {
	for i, title := range []string{"Open", "In Progress", "Assisted", "Closed"} {
		id := fmt.Sprintf("state-%d", i+1)
		db.states[id] = domain.TicketState{ID: id, Title: title, OrderTicket: i + 1, State: true}
	}
	db.titles["title-1"] = domain.TicketTitle{
		ID:             "title-1",
		Description:    "Printer offline",
		State:          true,
		TicketCategory: &domain.TicketCategory{Prefix: "ST"},
		TicketPriority: &domain.TicketPriority{Title: "High"},
	}
	db.roles["role-agent"] = domain.Role{ID: "role-agent", Name: "agent", IsAgent: true, State: true}
	db.roles["role-user"] = domain.Role{ID: "role-user", Name: "user", State: true}
	db.roles["role-config"] = domain.Role{ID: "role-config", Name: "configurator", IsConfigurator: true, State: true}
	db.branches["branch-1"] = domain.Branch{ID: "branch-1", Name: "HQ", State: true}
	db.branches["branch-2"] = domain.Branch{ID: "branch-2", Name: "Annex", State: true}
	db.users["agent-1"] = domain.User{
		ID: "agent-1", Name: "Ana", Email: "ana@example.com", Username: "ana.agent",
		RoleID: ptr("role-agent"), BranchID: ptr("branch-1"), IsAgentDefault: true, State: true,
	}
	db.users["user-1"] = domain.User{
		ID: "user-1", Name: "Luis", Lastname: "Perez", Email: "luis@example.com", Username: "luis.user",
		RoleID: ptr("role-user"), BranchID: ptr("branch-1"), State: true,
	}
}

func sessionFor(db *memDB, id string) *domain.Session {
	u, err := (&fakeUsers{db: db}).GetByID(context.Background(), id)
	Expect(err).NotTo(HaveOccurred())
	return domain.NewSession(u)
}
