package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Provider names with built-in defaults and extraction strategies.
const (
	Google = "google"
	GitHub = "github"
)

// ProviderConfig describes one external identity provider.
//
// Empty endpoint URLs and scopes are filled from the built-in defaults for
// known provider names (see Defaults).
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// Defaults returns the endpoints and scopes of a known provider.
// ok is false for names we have no defaults for.
func Defaults(name string) (cfg ProviderConfig, ok bool) {
	switch name {
	case Google:
		return ProviderConfig{
			Name:        Google,
			AuthURL:     endpoints.Google.AuthURL,
			TokenURL:    endpoints.Google.TokenURL,
			UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
			Scopes:      []string{"openid", "email", "profile"},
		}, true
	case GitHub:
		return ProviderConfig{
			Name:        GitHub,
			AuthURL:     endpoints.GitHub.AuthURL,
			TokenURL:    endpoints.GitHub.TokenURL,
			UserInfoURL: "https://api.github.com/user",
			Scopes:      []string{"read:user", "user:email"},
		}, true
	}
	return ProviderConfig{}, false
}

// provider is a configured identity provider: the oauth2 client config,
// where to fetch the profile from, and how to read it.
type provider struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
	extract     ExtractFunc
}

// Registry wraps golang.org/x/oauth2 for the Authorization Code flow against
// every configured provider.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. AuthURL builds the provider's authorization URL; the browser is sent there.
//  2. The provider redirects back to our callback with a short-lived "code".
//  3. Exchange trades the code for an access token (server-to-server, uses the secret).
//  4. FetchUserInfo calls the provider's userinfo endpoint with that token.
//
// The redirect URI is passed on every call instead of being fixed in the
// oauth2.Config, so the same registry serves any callback host.
type Registry struct {
	providers  map[string]*provider
	httpClient *http.Client
	timeout    time.Duration
}

// NewRegistry builds a Registry from provider configs. timeout bounds each
// outbound call to a provider.
func NewRegistry(configs []ProviderConfig, timeout time.Duration) (*Registry, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	r := &Registry{
		providers:  make(map[string]*provider, len(configs)),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}

	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("auth: provider config without a name")
		}
		if _, dup := r.providers[cfg.Name]; dup {
			return nil, fmt.Errorf("auth: provider %q configured twice", cfg.Name)
		}
		cfg = withDefaults(cfg)
		if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
			return nil, fmt.Errorf("auth: provider %q is missing endpoint URLs", cfg.Name)
		}

		authStyle := oauth2.AuthStyleAutoDetect
		if cfg.Name == Google {
			authStyle = endpoints.Google.AuthStyle
		}

		r.providers[cfg.Name] = &provider{
			name: cfg.Name,
			oauth: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Scopes:       cfg.Scopes,
				Endpoint: oauth2.Endpoint{
					AuthURL:   cfg.AuthURL,
					TokenURL:  cfg.TokenURL,
					AuthStyle: authStyle,
				},
			},
			userInfoURL: cfg.UserInfoURL,
			extract:     extractorFor(cfg.Name),
		}
	}

	return r, nil
}

func withDefaults(cfg ProviderConfig) ProviderConfig {
	def, ok := Defaults(cfg.Name)
	if !ok {
		return cfg
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = def.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = def.TokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = def.UserInfoURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = def.Scopes
	}
	return cfg
}

// Has reports whether the named provider is configured.
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Names returns the configured provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (*provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// The URL carries client_id, redirect_uri, response_type=code, the
// space-joined scopes and the caller's anti-forgery state.
func (r *Registry) AuthURL(name, callbackURL, state string) (string, error) {
	p, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return p.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("redirect_uri", callbackURL),
	), nil
}

// Exchange trades an authorization code for an access token.
// callbackURL must be the redirect URI used in AuthURL.
func (r *Registry) Exchange(ctx context.Context, name, code, callbackURL string) (*oauth2.Token, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withClient(ctx)
	defer cancel()

	tok, err := p.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("redirect_uri", callbackURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTokenExchange, name, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s: response has no access token", ErrTokenExchange, name)
	}
	return tok, nil
}

// FetchUserInfo calls the provider's userinfo endpoint with the bearer token
// and extracts the identity from the response.
func (r *Registry) FetchUserInfo(ctx context.Context, name string, tok *oauth2.Token) (*Identity, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withClient(ctx)
	defer cancel()

	// oauth2.Config.Client adds "Authorization: Bearer <token>" to every request.
	client := p.oauth.Client(ctx, tok)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: building request: %w", ErrUserInfo, name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUserInfo, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUserInfo, name, resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %s: decoding response: %w", ErrUserInfo, name, err)
	}

	id := p.extract(raw).normalize()
	if id.Email == "" {
		return nil, fmt.Errorf("%w: %s returned no email", ErrUserInfo, name)
	}
	return &id, nil
}

// withClient installs the registry's bounded http.Client for x/oauth2 and
// applies the per-call timeout.
func (r *Registry) withClient(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	return context.WithTimeout(ctx, r.timeout)
}
