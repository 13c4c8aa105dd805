// Package repository declares the storage interfaces the services depend on.
// Implementations live in sub-packages (sqlite, postgres).
package repository

import (
	"context"

	"github.com/sakif/storefront/internal/model"
)

// UserRepository persists one record per user, keyed by a store-assigned ID
// and unique by email.
//
// Lookups return an error wrapping apperror.ErrNotFound when no user matches.
// Create returns an error wrapping apperror.ErrConflict when the email is
// already taken.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create inserts user, filling in ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, user *model.User) error

	// UpdatePicture sets the profile picture of the user with the given ID.
	// It reports whether a write happened: an unchanged picture is a no-op.
	UpdatePicture(ctx context.Context, id string, picture *string) (bool, error)
}
