// Package service holds the authentication business logic.
//
// AuthService sits between the HTTP handlers and the identity providers and
// user store:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ identity provider (OAuth2)
//
// It knows nothing about cookies or HTTP status codes; failures come back as
// apperror values the handler maps to a response.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// IdentityProviders is the OAuth2 client surface AuthService needs.
// *auth.Registry implements it.
type IdentityProviders interface {
	Has(name string) bool
	AuthURL(name, callbackURL, state string) (string, error)
	Exchange(ctx context.Context, name, code, callbackURL string) (*oauth2.Token, error)
	FetchUserInfo(ctx context.Context, name string, tok *oauth2.Token) (*auth.Identity, error)
}

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	providers IdentityProviders
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(users repository.UserRepository, providers IdentityProviders, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		providers: providers,
		logger:    logger,
	}
}

// RequireProvider returns a NotFound error wrapping auth.ErrUnknownProvider
// when provider is not configured.
func (s *AuthService) RequireProvider(provider string) error {
	if !s.providers.Has(provider) {
		return unknownProvider(provider)
	}
	return nil
}

// StartLogin returns the provider authorization URL for a login bound to
// state. The caller stores state in the browser session before redirecting.
func (s *AuthService) StartLogin(provider, callbackURL, state string) (string, error) {
	u, err := s.providers.AuthURL(provider, callbackURL, state)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownProvider) {
			return "", unknownProvider(provider)
		}
		return "", fmt.Errorf("service/auth: building authorization URL: %w", err)
	}
	return u, nil
}

// CompleteLogin finishes a login after the anti-forgery state was verified:
// it exchanges code for a token, fetches the profile and resolves the user.
//
// Nothing is written to the store until both provider calls have succeeded,
// so a failed login leaves no partial record behind.
func (s *AuthService) CompleteLogin(ctx context.Context, provider, code, callbackURL string) (*model.User, error) {
	if !s.providers.Has(provider) {
		return nil, unknownProvider(provider)
	}
	if code == "" {
		return nil, apperror.Unauthorized(auth.ErrMissingCode, "missing OAuth code")
	}

	tok, err := s.providers.Exchange(ctx, provider, code, callbackURL)
	if err != nil {
		s.logger.Warn("token exchange failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthorized(err, "authentication failed")
	}

	identity, err := s.providers.FetchUserInfo(ctx, provider, tok)
	if err != nil {
		s.logger.Warn("userinfo fetch failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthorized(err, "authentication failed")
	}

	user, err := s.ResolveUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated",
		slog.String("provider", provider),
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// ResolveUser finds the user for identity by email, creating it on first
// login. For an existing user only the profile picture is refreshed, and
// only when it changed; username and email are left as they are.
//
// Two first logins for the same email can race. The store's unique email
// constraint lets only one insert win; the loser sees a conflict, reads the
// winner's record and carries on as if it had found it.
func (s *AuthService) ResolveUser(ctx context.Context, identity *auth.Identity) (*model.User, error) {
	if identity == nil || identity.Email == "" {
		return nil, apperror.ValidationFailed("email", "identity has no email")
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		return s.refreshPicture(ctx, user, identity.PictureURL)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up %s: %w", identity.Email, err)
	}

	username := identity.Name
	if username == "" {
		username = auth.LocalPart(identity.Email)
	}
	user = &model.User{
		Username:       username,
		Email:          identity.Email,
		ProfilePicture: identity.PictureURL,
	}

	err = s.users.Create(ctx, user)
	if err == nil {
		s.logger.Info("user created", slog.String("userID", user.ID), slog.String("email", user.Email))
		return user, nil
	}
	if !errors.Is(err, apperror.ErrConflict) {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", identity.Email, err)
	}

	s.logger.Info("concurrent first login, using existing user", slog.String("email", identity.Email))
	existing, err := s.users.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: re-reading %s after conflict: %w", identity.Email, err)
	}
	return s.refreshPicture(ctx, existing, identity.PictureURL)
}

func (s *AuthService) refreshPicture(ctx context.Context, user *model.User, picture *string) (*model.User, error) {
	if model.SamePicture(user.ProfilePicture, picture) {
		return user, nil
	}
	if _, err := s.users.UpdatePicture(ctx, user.ID, picture); err != nil {
		return nil, fmt.Errorf("service/auth: updating picture of %s: %w", user.ID, err)
	}
	user.ProfilePicture = picture
	return user, nil
}

// FindByID returns the user for the given internal ID. It satisfies
// auth.UserFinder, so the session middleware loads principals through it.
func (s *AuthService) FindByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

func unknownProvider(name string) error {
	return apperror.NotFoundCause(auth.ErrUnknownProvider, fmt.Sprintf("unknown provider %q", name))
}
