package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T, ttl time.Duration) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, ttl)
	require.NoError(t, err)
	return ts
}

// sign mints an HS256 token over c with an arbitrary key, bypassing
// TokenService so tests can forge tokens it would never issue.
func sign(t *testing.T, key []byte, c jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func sessionClaims(sub, iss string, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    iss,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		ttl     time.Duration
		wantErr bool
		wantTTL time.Duration
	}{
		{"short secret", "short", time.Hour, true, 0},
		{"sixteen chars", "this-is-16-chars", time.Hour, false, time.Hour},
		{"zero ttl uses default", "this-is-16-chars", 0, false, DefaultSessionTTL},
		{"negative ttl uses default", "this-is-16-chars", -time.Minute, false, DefaultSessionTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTokenService(tt.secret, tt.ttl)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTTL, ts.TTL())
		})
	}
}

func TestNewTokenService_KeyIsDerivedNotRaw(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	assert.Len(t, ts.key, 32)
	assert.NotEqual(t, []byte(testSecret), ts.key)

	again := newTestTokenService(t, time.Hour)
	assert.Equal(t, ts.key, again.key, "derivation must be deterministic across restarts")
}

func TestGenerate_ValidateRoundTrip(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	token, err := ts.Generate("d1a2b3c4")
	require.NoError(t, err)

	userID, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "d1a2b3c4", userID)
}

func TestGenerate_ClaimsFollowConfiguredTTL(t *testing.T) {
	const ttl = 90 * time.Minute
	ts := newTestTokenService(t, ttl)

	token, err := ts.Generate("u1")
	require.NoError(t, err)

	var c claims
	_, err = jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return ts.key, nil })
	require.NoError(t, err)

	require.NotNil(t, c.IssuedAt)
	require.NotNil(t, c.ExpiresAt)
	assert.Equal(t, ttl, c.ExpiresAt.Sub(c.IssuedAt.Time))
	assert.Equal(t, "storefront", c.Issuer)
	assert.Equal(t, "u1", c.Subject)
}

func TestValidate_RejectsTokenSignedWithRawSecret(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	forged := sign(t, []byte(testSecret), sessionClaims("u1", issuer, time.Now().Add(time.Hour)))

	_, err := ts.Validate(forged)
	assert.Error(t, err)
}

func TestValidate_RejectsForeignIssuer(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	other := sign(t, ts.key, sessionClaims("u1", "another-app", time.Now().Add(time.Hour)))

	_, err := ts.Validate(other)
	assert.Error(t, err)
}

func TestValidate_RejectsMissingExpiry(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	noExp := sign(t, ts.key, jwt.RegisteredClaims{Subject: "u1", Issuer: issuer})

	_, err := ts.Validate(noExp)
	assert.Error(t, err)
}

func TestValidate_RejectsEmptySubject(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	anon := sign(t, ts.key, sessionClaims("", issuer, time.Now().Add(time.Hour)))

	_, err := ts.Validate(anon)
	assert.ErrorContains(t, err, "no subject")
}

func TestValidate_RejectsUnsignedToken(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims("u1", issuer, time.Now().Add(time.Hour))).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ts.Validate(unsigned)
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)

	token, err := ts.GenerateWithDuration("u1", -time.Minute)
	require.NoError(t, err)

	_, err = ts.Validate(token)
	assert.ErrorContains(t, err, "expired")
}

func TestValidate_OtherSecret(t *testing.T) {
	issuerSvc := newTestTokenService(t, time.Hour)
	otherSvc, err := NewTokenService("a-completely-different-secret", time.Hour)
	require.NoError(t, err)

	token, err := issuerSvc.Generate("u1")
	require.NoError(t, err)

	_, err = otherSvc.Validate(token)
	assert.Error(t, err)
}

func TestValidate_Malformed(t *testing.T) {
	ts := newTestTokenService(t, time.Hour)
	good, err := ts.Generate("u1")
	require.NoError(t, err)
	other, err := ts.Generate("u2")
	require.NoError(t, err)

	// u1's header and payload under u2's signature.
	spliced := good[:strings.LastIndex(good, ".")] + other[strings.LastIndex(other, "."):]

	for name, token := range map[string]string{
		"empty":             "",
		"garbage":           "not.a.jwt",
		"swapped signature": spliced,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Validate(token)
			assert.Error(t, err)
		})
	}
}
