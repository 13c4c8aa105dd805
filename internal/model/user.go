// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a storefront account, created the first time someone signs in
// with an identity provider.
//
// Email is the reconciliation key: a login from any provider that reports
// the same email resolves to the same User. It is unique across the table
// and never changes after creation. ProfilePicture is the only field updated
// on later logins; nil means the provider had no picture.
type User struct {
	ID             string    `json:"id"             db:"id"`
	Username       string    `json:"username"       db:"username"`
	Email          string    `json:"email"          db:"email"`
	ProfilePicture *string   `json:"profilePicture" db:"profile_picture"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}

// PictureOrEmpty returns the profile picture URL, or "" when there is none.
// Templates use it to decide whether to render an avatar.
func (u *User) PictureOrEmpty() string {
	if u == nil || u.ProfilePicture == nil {
		return ""
	}
	return *u.ProfilePicture
}

// SamePicture reports whether two optional picture URLs are equal,
// treating nil and nil as equal.
func SamePicture(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
