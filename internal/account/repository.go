package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-id/atrium/internal/shared"
)

// Duplicate violations surfaced from the store-level unique constraints.
// Uniqueness is also checked during sign-up validation; these are the
// backstop for races between the check and the insert.
var (
	ErrLoginTaken = fmt.Errorf("%w: login already taken", shared.ErrInvalidInput)
	ErrEmailTaken = fmt.Errorf("%w: email already taken", shared.ErrInvalidInput)
)

// Repository defines persistence operations over the users collection.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByLogin(ctx context.Context, login string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, login, name, email, password_hash, confirm_code, avatar, created_at, deleted_at`

// GetByID fetches a user by identifier.
func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanUser(row)
}

// FindByLogin fetches a user by login name.
func (r *PGRepository) FindByLogin(ctx context.Context, login string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE login = $1 AND deleted_at IS NULL`, login)
	return scanUser(row)
}

// EmailExists reports whether an active user already holds the address.
func (r *PGRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND deleted_at IS NULL)`, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a new user record.
func (r *PGRepository) Create(ctx context.Context, user *User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, login, name, email, password_hash, confirm_code, avatar, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Login, user.Name, user.Email, user.PasswordHash, user.ConfirmCode, user.Avatar, user.CreatedAt)
	return mapConstraintError(err)
}

// Update persists every mutable field of the record.
func (r *PGRepository) Update(ctx context.Context, user *User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET login = $2, name = $3, email = $4, password_hash = $5, confirm_code = $6, avatar = $7, deleted_at = $8 WHERE id = $1`,
		user.ID, user.Login, user.Name, user.Email, user.PasswordHash, user.ConfirmCode, user.Avatar, user.DeletedAt)
	if err != nil {
		return mapConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Login, &user.Name, &user.Email, &user.PasswordHash, &user.ConfirmCode, &user.Avatar, &user.CreatedAt, &user.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.ConstraintName {
		case "uq_users_login":
			return ErrLoginTaken
		case "uq_users_email":
			return ErrEmailTaken
		}
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
