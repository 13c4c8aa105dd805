package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/xid"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, profile_picture, created_at, updated_at`

// FindByEmail retrieves a user by email.
// Returns apperror.ErrNotFound if no user has that email.
func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return u, nil
}

// Create inserts user; the database sets the timestamps.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	id := xid.New().String()

	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (id, username, email, profile_picture)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		id, user.Username, user.Email, user.ProfilePicture,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}

	user.ID = id
	return nil
}

// UpdatePicture writes only when the picture differs (IS DISTINCT FROM is
// NULL-safe).
func (db *DB) UpdatePicture(ctx context.Context, id string, picture *string) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET profile_picture = $1, updated_at = now()
		 WHERE id = $2 AND profile_picture IS DISTINCT FROM $1`,
		picture, id,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: updating picture of user %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	err = db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: checking user %s: %w", id, err)
	}
	if !exists {
		return false, apperror.NotFound("user", id)
	}
	return false, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
