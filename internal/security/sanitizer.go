// Package security sanitizes text that crosses the service boundary and
// redacts credentials before URLs are logged.
package security

import (
	"html"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips markup from free-text fields. It is safe for concurrent
// use once built.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds a sanitizer on bluemonday's strict policy, which
// allows no elements at all.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text returns s with all markup removed and entities decoded, trimmed of
// surrounding whitespace.
func (s *Sanitizer) Text(in string) string {
	if in == "" {
		return ""
	}
	out := s.policy.Sanitize(in)
	// The strict policy escapes entities; plain text fields want them decoded.
	return strings.TrimSpace(html.UnescapeString(out))
}

// Texts sanitizes each element and drops the ones that end up empty.
func (s *Sanitizer) Texts(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = s.Text(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// RedactURL hides the password of a URL carrying user info. Unparseable input
// is returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

// HasCredentials reports whether raw embeds user info.
func HasCredentials(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.User != nil
}
