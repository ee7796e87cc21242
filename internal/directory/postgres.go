package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	greenauth "github.com/verdantio/greenauth"
	"github.com/verdantio/greenauth/permission"
)

const pgUniqueViolation = "23505"

// Postgres implements the directory contracts over a relational schema of
// users, roles, user_roles, and role_privileges tables.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle. The caller owns the handle's
// lifecycle and migrations.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (*greenauth.User, error) {
	query := `SELECT id, email, password, is_active FROM users WHERE email = $1`

	user := &greenauth.User{}
	err := p.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, greenauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (p *Postgres) FindByID(ctx context.Context, id int64) (*greenauth.User, error) {
	query := `SELECT id, email, password, is_active FROM users WHERE id = $1`

	user := &greenauth.User{}
	err := p.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, greenauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// RolesForUser loads the user's role memberships with every permission key
// attached to each role. A user with no memberships yields an empty slice.
func (p *Postgres) RolesForUser(ctx context.Context, userID int64) ([]permission.Role, error) {
	query := `
		SELECT r.id, r.name, r.is_active, rp.permission
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		LEFT JOIN role_privileges rp ON rp.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.id`

	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var (
		roles   []permission.Role
		current *permission.Role
		lastID  int64
	)
	for rows.Next() {
		var (
			roleID int64
			name   string
			active bool
			key    sql.NullString
		)
		if err := rows.Scan(&roleID, &name, &active, &key); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		if current == nil || roleID != lastID {
			roles = append(roles, permission.Role{Name: name, Active: active})
			current = &roles[len(roles)-1]
			lastID = roleID
		}
		if key.Valid {
			current.Keys = append(current.Keys, key.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return roles, nil
}

// CreateRole inserts a role and its permission assignments in one
// transaction. Callers validate keys against the catalog first; the write
// is all-or-nothing. A duplicate role name maps to the conflict error.
func (p *Postgres) CreateRole(ctx context.Context, name string, active bool, keys []string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var roleID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO roles (name, is_active) VALUES ($1, $2) RETURNING id`,
		name, active,
	).Scan(&roleID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, greenauth.ErrConflict
		}
		return 0, fmt.Errorf("db error: %w", err)
	}

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_privileges (role_id, permission) VALUES ($1, $2)`,
			roleID, key,
		); err != nil {
			return 0, fmt.Errorf("db error: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return roleID, nil
}

// UpdateRolePermissions replaces a role's permission set in one
// transaction.
func (p *Postgres) UpdateRolePermissions(ctx context.Context, roleID int64, keys []string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, roleID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !exists {
		return &greenauth.Error{
			Kind:        greenauth.KindNotFound,
			Message:     "Role Not Found",
			Description: fmt.Sprintf("No role found with ID %d", roleID),
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM role_privileges WHERE role_id = $1`, roleID,
	); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO role_privileges (role_id, permission) VALUES ($1, $2)`,
			roleID, key,
		); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return tx.Commit()
}

// AssignRole adds a role membership. Re-assigning is idempotent.
func (p *Postgres) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
