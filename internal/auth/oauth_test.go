package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/sakif/storefront/internal/auth/authtest"
)

func providerConfig(idp *authtest.Provider, name string) ProviderConfig {
	return ProviderConfig{
		Name:         name,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      idp.AuthURL(),
		TokenURL:     idp.TokenURL(),
		UserInfoURL:  idp.UserInfoURL(),
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func newTestRegistry(t *testing.T, cfgs ...ProviderConfig) *Registry {
	t.Helper()
	r, err := NewRegistry(cfgs, 5*time.Second)
	require.NoError(t, err)
	return r
}

const testCallback = "http://localhost:8080/callback/google"

// =========================================================================
// REGISTRY CONSTRUCTION
// =========================================================================

func TestNewRegistry_FillsDefaultsForKnownProviders(t *testing.T) {
	r := newTestRegistry(t, ProviderConfig{Name: Google, ClientID: "id", ClientSecret: "secret"})

	authURL, err := r.AuthURL(Google, testCallback, "state-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(authURL, "https://accounts.google.com/o/oauth2/auth?"), authURL)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "openid email profile", u.Query().Get("scope"))
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]ProviderConfig{{Name: Google}, {Name: Google}}, time.Second)
	assert.Error(t, err)
}

func TestNewRegistry_RejectsUnknownProviderWithoutEndpoints(t *testing.T) {
	_, err := NewRegistry([]ProviderConfig{{Name: "acme", ClientID: "id"}}, time.Second)
	assert.Error(t, err)
}

func TestRegistry_Names(t *testing.T) {
	r := newTestRegistry(t,
		ProviderConfig{Name: GitHub, ClientID: "a", ClientSecret: "b"},
		ProviderConfig{Name: Google, ClientID: "a", ClientSecret: "b"},
	)
	assert.Equal(t, []string{GitHub, Google}, r.Names())
	assert.True(t, r.Has(Google))
	assert.False(t, r.Has("facebook"))
}

// =========================================================================
// AUTH URL
// =========================================================================

func TestAuthURL_CarriesProtocolParameters(t *testing.T) {
	idp := authtest.NewProvider(t)
	r := newTestRegistry(t, providerConfig(idp, Google))

	state, err := NewState()
	require.NoError(t, err)

	raw, err := r.AuthURL(Google, testCallback, state)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, testCallback, q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, state, q.Get("state"))
}

func TestAuthURL_UnknownProvider(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.AuthURL("facebook", testCallback, "s")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

// =========================================================================
// EXCHANGE
// =========================================================================

func TestExchange_Success(t *testing.T) {
	idp := authtest.NewProvider(t)
	r := newTestRegistry(t, providerConfig(idp, Google))

	tok, err := r.Exchange(context.Background(), Google, "the-code", testCallback)
	require.NoError(t, err)

	assert.Equal(t, "at-123", tok.AccessToken)
	assert.Equal(t, "the-code", idp.Last().Code)
	assert.Equal(t, testCallback, idp.Last().RedirectURI)
}

func TestExchange_NonSuccessStatus(t *testing.T) {
	idp := authtest.NewProvider(t)
	idp.SetToken(http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	r := newTestRegistry(t, providerConfig(idp, Google))

	_, err := r.Exchange(context.Background(), Google, "bad-code", testCallback)
	assert.ErrorIs(t, err, ErrTokenExchange)
}

func TestExchange_MissingAccessToken(t *testing.T) {
	idp := authtest.NewProvider(t)
	idp.SetToken(http.StatusOK, map[string]any{"token_type": "Bearer"})
	r := newTestRegistry(t, providerConfig(idp, Google))

	_, err := r.Exchange(context.Background(), Google, "code", testCallback)
	assert.ErrorIs(t, err, ErrTokenExchange)
}

func TestExchange_UnknownProvider(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Exchange(context.Background(), "nope", "code", testCallback)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

// =========================================================================
// USER INFO
// =========================================================================

func TestFetchUserInfo_Success(t *testing.T) {
	idp := authtest.NewProvider(t)
	r := newTestRegistry(t, providerConfig(idp, Google))

	id, err := r.FetchUserInfo(context.Background(), Google, &oauth2.Token{AccessToken: "at-123", TokenType: "Bearer"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer at-123", idp.Last().Authorization)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.Equal(t, "Ada Lovelace", id.Name)
	require.NotNil(t, id.PictureURL)
	assert.Equal(t, "https://img.example.com/ada.png", *id.PictureURL)
}

func TestFetchUserInfo_EmailOnly(t *testing.T) {
	idp := authtest.NewProvider(t)
	idp.SetUser(http.StatusOK, map[string]any{"email": "a@x.com"})
	r := newTestRegistry(t, providerConfig(idp, Google))

	id, err := r.FetchUserInfo(context.Background(), Google, &oauth2.Token{AccessToken: "at-123"})
	require.NoError(t, err)

	assert.Equal(t, "a", id.Name)
	assert.Nil(t, id.PictureURL)
}

func TestFetchUserInfo_NonSuccessStatus(t *testing.T) {
	idp := authtest.NewProvider(t)
	idp.SetUser(http.StatusUnauthorized, map[string]any{"error": "invalid_token"})
	r := newTestRegistry(t, providerConfig(idp, Google))

	_, err := r.FetchUserInfo(context.Background(), Google, &oauth2.Token{AccessToken: "at-123"})
	assert.ErrorIs(t, err, ErrUserInfo)
}

func TestFetchUserInfo_NoEmail(t *testing.T) {
	idp := authtest.NewProvider(t)
	idp.SetUser(http.StatusOK, map[string]any{"name": "Nobody"})
	r := newTestRegistry(t, providerConfig(idp, Google))

	_, err := r.FetchUserInfo(context.Background(), Google, &oauth2.Token{AccessToken: "at-123"})
	assert.ErrorIs(t, err, ErrUserInfo)
}

func TestFetchUserInfo_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	r, err := NewRegistry([]ProviderConfig{{
		Name:        Google,
		ClientID:    "id",
		AuthURL:     slow.URL + "/authorize",
		TokenURL:    slow.URL + "/token",
		UserInfoURL: slow.URL + "/userinfo",
	}}, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = r.FetchUserInfo(context.Background(), Google, &oauth2.Token{AccessToken: "at"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserInfo))
}
