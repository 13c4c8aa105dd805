package auth

import "errors"

// Reasons an OAuth login can fail. They are matched with errors.Is and are
// usually wrapped in an apperror.AppError that carries the HTTP class.
var (
	ErrUnknownProvider  = errors.New("auth: unknown provider")
	ErrStateMismatch    = errors.New("auth: state mismatch")
	ErrMissingCode      = errors.New("auth: missing authorization code")
	ErrTokenExchange    = errors.New("auth: token exchange failed")
	ErrUserInfo         = errors.New("auth: user info fetch failed")
	ErrProviderReported = errors.New("auth: provider reported an error")
)
