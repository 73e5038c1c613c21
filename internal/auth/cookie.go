package auth

import (
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

// SameSite is the cross-site send policy of a cookie.
type SameSite string

const (
	SameSiteStrict SameSite = "strict"
	SameSiteLax    SameSite = "lax"
	SameSiteNone   SameSite = "none"
)

// CookieOptions are the attributes written by SerializeCookie. A negative
// MaxAge tells the browser to drop the cookie.
type CookieOptions struct {
	HTTPOnly bool
	MaxAge   int
	Path     string
	SameSite SameSite
	Secure   bool
}

// SerializeCookie renders a Set-Cookie header value.
func SerializeCookie(name, value string, opts CookieOptions) string {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     opts.Path,
		MaxAge:   opts.MaxAge,
		HttpOnly: opts.HTTPOnly,
		Secure:   opts.Secure,
	}
	switch strings.ToLower(string(opts.SameSite)) {
	case string(SameSiteStrict):
		c.SameSite = http.SameSiteStrictMode
	case string(SameSiteLax):
		c.SameSite = http.SameSiteLaxMode
	case string(SameSiteNone):
		c.SameSite = http.SameSiteNoneMode
	}
	return c.String()
}

// ParseCookies splits a Cookie request header into a name to value map.
// Invalid pairs are skipped and the first occurrence of a name wins.
func ParseCookies(header string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(header) == "" {
		return out
	}
	r := &http.Request{Header: http.Header{"Cookie": {header}}}
	for _, c := range r.Cookies() {
		if _, seen := out[c.Name]; !seen {
			out[c.Name] = c.Value
		}
	}
	return out
}

// SessionCookie renders the session cookie for token.
func SessionCookie(token string, secure bool) string {
	return SerializeCookie(SessionCookieName, token, CookieOptions{
		HTTPOnly: true,
		MaxAge:   int(SessionTTL.Seconds()),
		Path:     "/",
		SameSite: SameSiteLax,
		Secure:   secure,
	})
}

// ClearSessionCookie renders a header that removes the session cookie.
func ClearSessionCookie(secure bool) string {
	return SerializeCookie(SessionCookieName, "", CookieOptions{
		HTTPOnly: true,
		MaxAge:   -1,
		Path:     "/",
		SameSite: SameSiteLax,
		Secure:   secure,
	})
}
