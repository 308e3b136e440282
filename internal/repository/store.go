package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store hands out repositories bound to one connection scope.
type Store interface {
	Roles() RoleRepository
	Permissions() PermissionRepository
	Branches() BranchRepository
	Users() UserRepository
	Menus() MenuRepository
	AssignedMenuRoles() AssignedMenuRoleRepository
	AssignedUserBranches() AssignedUserBranchRepository
	AssignedUserTickets() AssignedUserTicketRepository
	TicketCategories() TicketCategoryRepository
	TicketPriorities() TicketPriorityRepository
	TicketStates() TicketStateRepository
	TicketTitles() TicketTitleRepository
	Tickets() TicketRepository
	TicketDetails() TicketDetailRepository
	SurveyCalifications() SurveyCalificationRepository
	SurveyResponses() SurveyResponseRepository
	Audits() AuditRepository

	// WithTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewStore returns a Postgres-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{db: pool, pool: pool}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, nested := s.db.(pgx.Tx); nested {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgStore{db: tx, pool: s.pool})
	})
}

func (s *pgStore) Roles() RoleRepository { return NewRoleRepository(s.db) }
func (s *pgStore) Permissions() PermissionRepository { return NewPermissionRepository(s.db) }
func (s *pgStore) Branches() BranchRepository { return NewBranchRepository(s.db) }
func (s *pgStore) Users() UserRepository { return NewUserRepository(s.db) }
func (s *pgStore) Menus() MenuRepository { return NewMenuRepository(s.db) }
func (s *pgStore) AssignedMenuRoles() AssignedMenuRoleRepository {
	return NewAssignedMenuRoleRepository(s.db)
}
func (s *pgStore) AssignedUserBranches() AssignedUserBranchRepository {
	return NewAssignedUserBranchRepository(s.db)
}
func (s *pgStore) AssignedUserTickets() AssignedUserTicketRepository {
	return NewAssignedUserTicketRepository(s.db)
}
func (s *pgStore) TicketCategories() TicketCategoryRepository {
	return NewTicketCategoryRepository(s.db)
}
func (s *pgStore) TicketPriorities() TicketPriorityRepository {
	return NewTicketPriorityRepository(s.db)
}
func (s *pgStore) TicketStates() TicketStateRepository { return NewTicketStateRepository(s.db) }
func (s *pgStore) TicketTitles() TicketTitleRepository { return NewTicketTitleRepository(s.db) }
func (s *pgStore) Tickets() TicketRepository { return NewTicketRepository(s.db) }
func (s *pgStore) TicketDetails() TicketDetailRepository { return NewTicketDetailRepository(s.db) }
func (s *pgStore) SurveyCalifications() SurveyCalificationRepository {
	return NewSurveyCalificationRepository(s.db)
}
func (s *pgStore) SurveyResponses() SurveyResponseRepository {
	return NewSurveyResponseRepository(s.db)
}
func (s *pgStore) Audits() AuditRepository { return NewAuditRepository(s.db) }
