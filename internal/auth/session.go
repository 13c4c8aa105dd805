package auth

import (
	"encoding/base64"
	"fmt"
	"net/http"
)

// Cookie names.
const (
	stateCookie   = "oauth_state"
	sessionCookie = "session"
	flashCookie   = "flash"
)

// stateMaxAge is how long a pending authorization may take (10 minutes):
// long enough to approve at the provider, short enough to limit replay.
const stateMaxAge = 600

// Sessions manages the browser side of a login: the anti-forgery state
// cookie, the session cookie and one-shot flash notices.
//
// LOGIN STATES:
//
//	Anonymous            → no session cookie
//	PendingAuthorization → oauth_state cookie set, browser sent to the provider
//	Authenticated        → session cookie holds a signed JWT for the user
//
// All cookies are HttpOnly and SameSite=Lax. Secure is set from config and
// should be true behind HTTPS.
type Sessions struct {
	tokens *TokenService
	secure bool
}

// NewSessions creates a Sessions that signs session cookies with tokens.
func NewSessions(tokens *TokenService, secure bool) *Sessions {
	return &Sessions{tokens: tokens, secure: secure}
}

// BeginLogin generates a fresh state token and stores it in the state cookie.
// A second call overwrites the first, invalidating the earlier pending flow.
func (s *Sessions) BeginLogin(w http.ResponseWriter) (string, error) {
	state, err := NewState()
	if err != nil {
		return "", err
	}
	s.setCookie(w, stateCookie, state, stateMaxAge)
	return state, nil
}

// ConsumeState checks the state returned by the provider against the stored
// one. The stored state is cleared whatever the outcome: it is single use.
func (s *Sessions) ConsumeState(w http.ResponseWriter, r *http.Request, returned string) error {
	s.ClearState(w)

	c, err := r.Cookie(stateCookie)
	if err != nil {
		return fmt.Errorf("%w: no pending authorization", ErrStateMismatch)
	}
	if !stateMatches(c.Value, returned) {
		return ErrStateMismatch
	}
	return nil
}

// ClearState drops any pending authorization.
func (s *Sessions) ClearState(w http.ResponseWriter) {
	s.setCookie(w, stateCookie, "", -1)
}

// Login marks userID as the session principal.
func (s *Sessions) Login(w http.ResponseWriter, userID string) error {
	token, err := s.tokens.Generate(userID)
	if err != nil {
		return err
	}
	s.setCookie(w, sessionCookie, token, int(s.tokens.TTL().Seconds()))
	return nil
}

// Logout clears the session identity. Calling it without a session is a no-op
// apart from re-sending the expired cookie.
func (s *Sessions) Logout(w http.ResponseWriter) {
	s.setCookie(w, sessionCookie, "", -1)
}

// UserID returns the user ID carried by the request's session cookie.
func (s *Sessions) UserID(r *http.Request) (string, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		// http.ErrNoCookie: anonymous, not a failure of the request
		return "", err
	}
	return s.tokens.Validate(c.Value)
}

// SetFlash stores a notice to show on the next page render.
func (s *Sessions) SetFlash(w http.ResponseWriter, message string) {
	s.setCookie(w, flashCookie, base64.RawURLEncoding.EncodeToString([]byte(message)), 60)
}

// PopFlash returns the pending notice, if any, and clears it.
func (s *Sessions) PopFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	s.setCookie(w, flashCookie, "", -1)

	msg, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(msg)
}

func (s *Sessions) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
