package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/passvault/passvault/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

const userColumns = `id, username, email, password_hash, created_at, last_login, updated_at`

// CreateUser inserts a new user and returns its ID.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&id)
	if err != nil {
		if dupErr := userConflict(err); dupErr != nil {
			return 0, dupErr
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	return id, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getUser(ctx, "ID", query, id)
}

// GetUserByUsername retrieves a user by exact username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getUser(ctx, "username", query, username)
}

// GetUserByEmail retrieves a user by (lowercased) email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getUser(ctx, "email", query, email)
}

func (r *Repository) getUser(ctx context.Context, by, query string, arg any) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", by, err)
	}
	return user, nil
}

// UsernameTaken reports whether another user (not excludeID) holds username.
// Pass excludeID 0 when registering.
func (r *Repository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`, username, excludeID)
}

// EmailTaken reports whether another user (not excludeID) holds email.
func (r *Repository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`, email, excludeID)
}

func (r *Repository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check uniqueness: %w", err)
	}
	return ok, nil
}

// UpdateLastLogin records a successful login.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.execUser(ctx, "update last login",
		`UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
}

// UpdatePasswordHash replaces the stored hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id int64, hash string, at time.Time) error {
	return r.execUser(ctx, "update password",
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
}

// UpdateProfile changes username and email together.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, username, email string, at time.Time) error {
	return r.execUser(ctx, "update profile",
		`UPDATE users SET username = $2, email = $3, updated_at = $4 WHERE id = $1`, id, username, email, at)
}

func (r *Repository) execUser(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if dupErr := userConflict(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// userConflict maps unique violations on users to sentinel errors.
func userConflict(err error) error {
	if err == nil {
		return nil
	}
	constraint, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	if strings.Contains(constraint, "username") {
		return ErrUsernameExists
	}
	return ErrEmailExists
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.LastLogin,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
