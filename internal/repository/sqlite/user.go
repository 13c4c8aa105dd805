package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, profile_picture, created_at, updated_at`

// FindByEmail retrieves a user by email.
// Returns apperror.ErrNotFound if no user has that email.
func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// Create inserts a new user, generating its ID and timestamps in place.
// A taken email returns apperror.ErrConflict.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	id := xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, profile_picture, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		user.Username,
		user.Email,
		user.ProfilePicture,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// UpdatePicture sets profile_picture when it differs from the stored value.
//
// "IS NOT" is SQLite's NULL-safe inequality, so the WHERE clause skips the
// write entirely when nothing changed. Zero affected rows then means either
// "unchanged" or "no such user"; a lookup tells them apart.
func (db *DB) UpdatePicture(ctx context.Context, id string, picture *string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET profile_picture = ?, updated_at = ?
		 WHERE id = ? AND profile_picture IS NOT ?`,
		picture, time.Now().UTC(), id, picture,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: updating picture of user %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: updating picture of user %s: %w", id, err)
	}
	if n > 0 {
		return true, nil
	}

	var exists int
	err = db.conn.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperror.NotFound("user", id)
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user %s: %w", id, err)
	}
	return false, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.ProfilePicture,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
