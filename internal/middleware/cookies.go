package middleware

import (
	"net/http"
	"time"

	"postline-server/internal/config"
	"postline-server/internal/domain"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookieJar writes the session cookies. Both are HttpOnly, SameSite=None and
// scoped to the whole site.
type CookieJar struct {
	secure     bool
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewCookieJar(cookies config.CookieConfig, tokens config.JWTConfig) *CookieJar {
	return &CookieJar{
		secure:     cookies.Secure,
		domain:     cookies.Domain,
		accessTTL:  tokens.AccessExpiration,
		refreshTTL: tokens.RefreshExpiration,
	}
}

func (j *CookieJar) SetTokens(w http.ResponseWriter, pair *domain.TokenPair) {
	http.SetCookie(w, j.cookie(AccessCookie, pair.AccessToken, j.accessTTL))
	http.SetCookie(w, j.cookie(RefreshCookie, pair.RefreshToken, j.refreshTTL))
}

// Clear expires both cookies.
func (j *CookieJar) Clear(w http.ResponseWriter) {
	j.ClearAccess(w)
	http.SetCookie(w, j.expired(RefreshCookie))
}

func (j *CookieJar) ClearAccess(w http.ResponseWriter) {
	http.SetCookie(w, j.expired(AccessCookie))
}

func (j *CookieJar) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteNoneMode,
	}
}

func (j *CookieJar) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteNoneMode,
	}
}

// RefreshToken returns the refresh cookie value, or "".
func RefreshToken(r *http.Request) string {
	return cookieValue(r, RefreshCookie)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
