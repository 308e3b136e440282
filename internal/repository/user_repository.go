package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const userColumns = `u.id, u.name, u.lastname, u.email, u.username, u.password, u.address, u.phone,
        u.number_identification, u.company_name, u.company_id, u.role_id, u.branch_id, u.is_agent_default,
        u.state, u.created_at, u.updated_at, u.deleted_at,
        r.id, COALESCE(r.name, ''), COALESCE(r.is_agent, FALSE), COALESCE(r.is_admin, FALSE),
        COALESCE(r.is_configurator, FALSE), COALESCE(r.state, FALSE)`

const userFrom = `users u LEFT JOIN roles r ON r.id = u.role_id AND r.deleted_at IS NULL`

// UserRepository defines persistence access for users.
type UserRepository interface {
	List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.User], error)
	ListCompanies(ctx context.Context, q domain.ListQuery) (domain.Page[domain.User], error)
	ListAgentsByBranch(ctx context.Context, branchID string) ([]domain.User, error)
	ListIDsByRole(ctx context.Context, roleID string) ([]string, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetWithPermissions loads the user with its role and the role's permissions.
	GetWithPermissions(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FindDefaultAgent(ctx context.Context, branchID string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	SoftDelete(ctx context.Context, id string) error
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) List(ctx context.Context, q domain.ListQuery) (domain.Page[domain.User], error) {
	where := newListWhere("u", q, "u.name", "u.lastname", "u.email", "u.username")
	return fetchPage(ctx, r.db, userColumns, userFrom, where, "u.created_at DESC", q, scanUser)
}

func (r *userRepository) ListCompanies(ctx context.Context, q domain.ListQuery) (domain.Page[domain.User], error) {
	where := newListWhere("u", q, "u.company_name")
	where.clauses = append(where.clauses, "u.company_name IS NOT NULL", "u.company_id IS NULL")
	return fetchPage(ctx, r.db, userColumns, userFrom, where, "u.company_name ASC", q, scanUser)
}

func (r *userRepository) ListAgentsByBranch(ctx context.Context, branchID string) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM ` + userFrom + `
        WHERE u.deleted_at IS NULL AND u.state AND r.is_agent
          AND (u.branch_id=$1 OR EXISTS (
                SELECT 1 FROM assigned_user_branches aub
                WHERE aub.user_id=u.id AND aub.branch_id=$1 AND aub.deleted_at IS NULL))
        ORDER BY u.is_agent_default DESC, u.name`
	return fetchAll(ctx, r.db, query, scanUser, branchID)
}

func (r *userRepository) ListIDsByRole(ctx context.Context, roleID string) ([]string, error) {
	const query = `SELECT u.id FROM users u WHERE u.role_id=$1 AND u.deleted_at IS NULL`
	return fetchAll(ctx, r.db, query, func(row pgx.Row) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	}, roleID)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM ` + userFrom + ` WHERE u.id=$1 AND u.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanUser, id)
}

func (r *userRepository) GetWithPermissions(ctx context.Context, id string) (*domain.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == nil {
		return user, nil
	}
	perms, err := NewPermissionRepository(r.db).ListByRole(ctx, user.Role.ID)
	if err != nil {
		return nil, err
	}
	user.Role.Permissions = perms
	return user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM ` + userFrom + ` WHERE u.username=$1 AND u.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanUser, username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM ` + userFrom + ` WHERE LOWER(u.email)=LOWER($1) AND u.deleted_at IS NULL`
	return fetchOne(ctx, r.db, query, scanUser, email)
}

func (r *userRepository) FindDefaultAgent(ctx context.Context, branchID string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM ` + userFrom + `
        WHERE u.branch_id=$1 AND u.is_agent_default AND u.state AND u.deleted_at IS NULL
        ORDER BY u.created_at ASC LIMIT 1`
	return fetchOne(ctx, r.db, query, scanUser, branchID)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, lastname, email, username, password, address, phone, number_identification,
                           company_name, company_id, role_id, branch_id, is_agent_default, state)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		user.Name,
		user.Lastname,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Address,
		user.Phone,
		user.NumberIdentification,
		user.CompanyName,
		nullable(user.CompanyID),
		nullable(user.RoleID),
		nullable(user.BranchID),
		user.IsAgentDefault,
		user.State,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, lastname=$2, email=$3, username=$4, password=$5, address=$6, phone=$7,
            number_identification=$8, company_name=$9, company_id=$10, role_id=$11, branch_id=$12,
            is_agent_default=$13, state=$14, updated_at=NOW()
        WHERE id=$15 AND deleted_at IS NULL`
	return execOne(ctx, r.db, query,
		user.Name,
		user.Lastname,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Address,
		user.Phone,
		user.NumberIdentification,
		user.CompanyName,
		nullable(user.CompanyID),
		nullable(user.RoleID),
		nullable(user.BranchID),
		user.IsAgentDefault,
		user.State,
		user.ID,
	)
}

func (r *userRepository) SoftDelete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "users", id)
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u      domain.User
		roleID *string
		role   domain.Role
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Lastname,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Address,
		&u.Phone,
		&u.NumberIdentification,
		&u.CompanyName,
		&u.CompanyID,
		&u.RoleID,
		&u.BranchID,
		&u.IsAgentDefault,
		&u.State,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
		&roleID,
		&role.Name,
		&role.IsAgent,
		&role.IsAdmin,
		&role.IsConfigurator,
		&role.State,
	)
	if err != nil {
		return u, err
	}
	if roleID != nil {
		role.ID = *roleID
		u.Role = &role
	}
	return u, nil
}
