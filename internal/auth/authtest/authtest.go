// Package authtest provides an in-process OAuth2 identity provider for tests.
package authtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Provider is an httptest identity provider with an authorization, a token
// and a userinfo endpoint. Responses can be changed per test; requests are
// recorded so tests can assert on them.
type Provider struct {
	server *httptest.Server

	mu          sync.Mutex
	tokenStatus int
	tokenBody   map[string]any
	userStatus  int
	userBody    map[string]any
	tokenCalls  int
	userCalls   int
	last        Request
}

// Request is what the provider saw on its most recent calls.
type Request struct {
	Code          string // code posted to the token endpoint
	RedirectURI   string // redirect_uri posted to the token endpoint
	Authorization string // Authorization header sent to the userinfo endpoint
}

// NewProvider starts a provider that issues access token "at-123" and
// reports ada@example.com. It is shut down when the test ends.
func NewProvider(t testing.TB) *Provider {
	t.Helper()
	p := &Provider{
		tokenStatus: http.StatusOK,
		tokenBody:   map[string]any{"access_token": "at-123", "token_type": "Bearer", "expires_in": 3600},
		userStatus:  http.StatusOK,
		userBody: map[string]any{
			"email":   "ada@example.com",
			"name":    "Ada Lovelace",
			"picture": "https://img.example.com/ada.png",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		p.mu.Lock()
		p.tokenCalls++
		p.last.Code = r.PostForm.Get("code")
		p.last.RedirectURI = r.PostForm.Get("redirect_uri")
		status, body := p.tokenStatus, p.tokenBody
		p.mu.Unlock()
		writeJSON(w, status, body)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.userCalls++
		p.last.Authorization = r.Header.Get("Authorization")
		status, body := p.userStatus, p.userBody
		p.mu.Unlock()
		writeJSON(w, status, body)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (p *Provider) AuthURL() string     { return p.server.URL + "/authorize" }
func (p *Provider) TokenURL() string    { return p.server.URL + "/token" }
func (p *Provider) UserInfoURL() string { return p.server.URL + "/userinfo" }

// SetToken replaces the token endpoint response.
func (p *Provider) SetToken(status int, body map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenStatus, p.tokenBody = status, body
}

// SetUser replaces the userinfo endpoint response.
func (p *Provider) SetUser(status int, body map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userStatus, p.userBody = status, body
}

// Last returns the most recently recorded request data.
func (p *Provider) Last() Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Calls returns how many times the token and userinfo endpoints were hit.
func (p *Provider) Calls() (token, userinfo int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenCalls, p.userCalls
}
