package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/model"
	"github.com/sakif/idle-clicker/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, password_hash, role, github_id, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, so one scan
// function serves single lookups and listings.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u        model.User
		role     string
		githubID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}

func nullableGitHubID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// CreateUser inserts a user with a fresh xid.
//
// The role is decided inside the INSERT itself: admin when no admin exists
// yet, user otherwise. Doing it in one statement means two concurrent first
// registrations cannot both become admin. RETURNING hands the decision back.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	id := xid.New().String()

	var role string
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, github_id, created_at, updated_at)
		 VALUES (?, ?, ?,
		         CASE WHEN EXISTS (SELECT 1 FROM users WHERE role = 'admin') THEN 'user' ELSE 'admin' END,
		         ?, ?, ?)
		 RETURNING role`,
		id,
		user.Username,
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		now,
		now,
	).Scan(&role)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username).WithCode(apperror.CodeUsernameExists)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	user.ID = id
	user.Role = model.Role(role)
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID returns apperror.ErrNotFound (code USER_NOT_FOUND) when absent.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id).WithCode(apperror.CodeUserNotFound)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username).WithCode(apperror.CodeUserNotFound)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return u, nil
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID)).WithCode(apperror.CodeUserNotFound)
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

// ListUsers pages through users, oldest first. Limit defaults to 50 and is
// capped at 200.
func (db *DB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := max(opts.Offset, 0)

	return db.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`,
		limit, offset)
}

func (db *DB) ListUsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	return db.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY created_at, id`,
		string(role))
}

// SearchUsers matches fragment anywhere in the username, case-insensitively
// for ASCII. LIKE wildcards in fragment are matched literally.
func (db *DB) SearchUsers(ctx context.Context, fragment string) ([]model.User, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(fragment)
	return db.queryUsers(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE username LIKE '%' || ? || '%' ESCAPE '\'
		 ORDER BY username`,
		escaped)
}

func (db *DB) queryUsers(ctx context.Context, query string, args ...any) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, nil
}

// UpdateUser overwrites username, password hash and role.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, password_hash = ?, role = ?, updated_at = ? WHERE id = ?`,
		user.Username,
		user.PasswordHash,
		string(user.Role),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username).WithCode(apperror.CodeUsernameExists)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID).WithCode(apperror.CodeUserNotFound)
	}
	return nil
}

// DeleteUser removes the user; ON DELETE CASCADE takes the progression and
// inventory rows with it.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id).WithCode(apperror.CodeUserNotFound)
	}
	return nil
}
