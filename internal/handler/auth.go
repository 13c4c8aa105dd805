package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/service"
)

// AuthHandler manages the OAuth login flow and the session.
//
// HANDLER RESPONSIBILITIES:
//   - HandleAuthorize → store a state token, redirect to the provider
//   - HandleCallback  → verify state, complete the login, start the session
//   - HandleLogout    → clear the session
//   - HandleMe        → return the current principal as JSON
type AuthHandler struct {
	auth     *service.AuthService
	sessions *auth.Sessions
	baseURL  string
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. baseURL is the externally visible
// origin of the site (e.g. "https://shop.example.com"); callback URLs are
// built from it.
func NewAuthHandler(authService *service.AuthService, sessions *auth.Sessions, baseURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		sessions: sessions,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
	}
}

func (h *AuthHandler) callbackURL(provider string) string {
	return h.baseURL + "/callback/" + provider
}

// HandleAuthorize starts the OAuth flow.
//
// HTTP: GET /authorize/{provider}
//
// An already signed-in user goes straight back home. Otherwise a fresh
// state token is stored in a cookie and the browser is redirected to the
// provider; a second visit overwrites the first token.
func (h *AuthHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	provider := chi.URLParam(r, "provider")
	if err := h.auth.RequireProvider(provider); err != nil {
		writePageError(w, err)
		return
	}

	state, err := h.sessions.BeginLogin(w)
	if err != nil {
		h.logger.Error("authorize: generating state", slog.String("error", err.Error()))
		writePageError(w, err)
		return
	}

	authURL, err := h.auth.StartLogin(provider, h.callbackURL(provider), state)
	if err != nil {
		writePageError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /callback/{provider}?code=xxx&state=yyy
//
// FLOW:
//  1. Already signed in → home, nothing else happens
//  2. Provider sent ?error= (user denied) → flash notice, home
//  3. Validate the state parameter (CSRF check) → 401 on mismatch
//  4. Exchange code, fetch profile, find or create the user → 401 on failure
//  5. Start the session, redirect home
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	provider := chi.URLParam(r, "provider")
	if err := h.auth.RequireProvider(provider); err != nil {
		writePageError(w, err)
		return
	}

	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.sessions.ClearState(w)
		h.logger.Info("auth callback: login not completed",
			slog.String("provider", provider),
			slog.String("error", fmt.Errorf("%w: %s", auth.ErrProviderReported, errParam).Error()),
			slog.String("description", q.Get("error_description")),
		)
		h.sessions.SetFlash(w, providerErrorNotice(errParam))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := h.sessions.ConsumeState(w, r, q.Get("state")); err != nil {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", provider))
		writePageError(w, apperror.Unauthorized(err, "invalid OAuth state"))
		return
	}

	user, err := h.auth.CompleteLogin(r.Context(), provider, q.Get("code"), h.callbackURL(provider))
	if err != nil {
		h.logger.Warn("auth callback: login failed",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		writePageError(w, err)
		return
	}

	// ResolveUser may already have created the user. Signing is an HMAC over
	// a fixed key, so a failure here leaves only an unused row behind.
	if err := h.sessions.Login(w, user.ID); err != nil {
		h.logger.Error("auth callback: starting session", slog.String("error", err.Error()))
		writePageError(w, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// providerErrorNotice turns an OAuth error code into a user-facing notice.
func providerErrorNotice(code string) string {
	if code == "access_denied" {
		return "Sign-in was cancelled."
	}
	return fmt.Sprintf("Sign-in failed (%s). Please try again.", code)
}

// HandleLogout clears the session and goes home.
//
// HTTP: GET /logout
//
// Logging out twice, or without ever logging in, is harmless.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth runs first)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized(nil, "valid authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
