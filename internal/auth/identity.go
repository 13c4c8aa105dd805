package auth

import "strings"

// Identity is the part of a provider profile we keep: who the user is and
// how to show them.
type Identity struct {
	Email      string
	Name       string
	PictureURL *string // nil when the provider has no picture for the user
}

// ExtractFunc reads an Identity out of a decoded userinfo response.
// Extractors are pure: no I/O, no defaults beyond the provider's own fields.
type ExtractFunc func(raw map[string]any) Identity

// extractors maps provider names to their extraction strategy.
// Providers without an entry are read as standard OpenID Connect claims.
var extractors = map[string]ExtractFunc{
	Google: extractOIDC,
	GitHub: extractGitHub,
}

func extractorFor(name string) ExtractFunc {
	if fn, ok := extractors[name]; ok {
		return fn
	}
	return extractOIDC
}

// extractOIDC reads the standard OpenID Connect claims (Google's userinfo
// endpoint returns these).
func extractOIDC(raw map[string]any) Identity {
	return Identity{
		Email:      stringField(raw, "email"),
		Name:       stringField(raw, "name"),
		PictureURL: optionalField(raw, "picture"),
	}
}

// extractGitHub reads GitHub's /user response. "name" is often null on
// GitHub, in which case the login is used.
func extractGitHub(raw map[string]any) Identity {
	name := stringField(raw, "name")
	if name == "" {
		name = stringField(raw, "login")
	}
	return Identity{
		Email:      stringField(raw, "email"),
		Name:       name,
		PictureURL: optionalField(raw, "avatar_url"),
	}
}

// normalize trims fields and defaults the name to the local part of the email.
func (id Identity) normalize() Identity {
	id.Email = strings.TrimSpace(id.Email)
	id.Name = strings.TrimSpace(id.Name)
	if id.Name == "" {
		id.Name = LocalPart(id.Email)
	}
	return id
}

// LocalPart returns the portion of an email address before the "@".
func LocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func optionalField(raw map[string]any, key string) *string {
	s := strings.TrimSpace(stringField(raw, key))
	if s == "" {
		return nil
	}
	return &s
}
