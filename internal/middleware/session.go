package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"postline-server/internal/domain"
	"postline-server/pkg/jwt"
	"postline-server/pkg/response"

	"github.com/rs/zerolog"
)

type contextKey string

const sessionKey contextKey = "session"

// AccessVerifier validates access tokens. Failures are *domain.Error values
// of kind InvalidCredential or ExpiredCredential.
type AccessVerifier interface {
	VerifyAccess(token string) (*jwt.Claims, error)
}

type PrincipalLoader interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Session is what the middleware attaches to the request context. Both fields
// are empty for anonymous requests that passed Optional.
type Session struct {
	Credential string
	Principal  *domain.User
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Principal != nil
}

type SessionMiddleware struct {
	verifier AccessVerifier
	users    PrincipalLoader
	cookies  *CookieJar
	logger   zerolog.Logger
}

func NewSession(verifier AccessVerifier, users PrincipalLoader, cookies *CookieJar, logger zerolog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		verifier: verifier,
		users:    users,
		cookies:  cookies,
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// Required rejects requests without a valid access credential before they
// reach next.
func (m *SessionMiddleware) Required(next http.Handler) http.Handler {
	return m.handle(next, true)
}

// Optional lets requests without a credential through with an empty session.
// A credential that is present must still be valid.
func (m *SessionMiddleware) Optional(next http.Handler) http.Handler {
	return m.handle(next, false)
}

func (m *SessionMiddleware) handle(next http.Handler, required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := extractCredential(r)
		if credential == "" {
			if required {
				m.reject(w, r, domain.NewError(domain.KindAuthRequired, domain.CodeAccessTokenMissing, nil), false)
				return
			}
			next.ServeHTTP(w, r.WithContext(withSession(r.Context(), &Session{})))
			return
		}

		principal, err := m.authenticate(r.Context(), credential)
		if err != nil {
			m.reject(w, r, err, true)
			return
		}

		setLoggedUser(r.Context(), principal.ID)
		session := &Session{Credential: credential, Principal: principal}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), session)))
	})
}

func (m *SessionMiddleware) authenticate(ctx context.Context, credential string) (*domain.User, error) {
	claims, err := m.verifier.VerifyAccess(credential)
	if err != nil {
		return nil, err
	}

	principal, err := m.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindPrincipalNotFound, domain.CodeAccessTokenUserAbsent, err)
		}
		return nil, domain.Internal(err)
	}

	return principal, nil
}

func (m *SessionMiddleware) reject(w http.ResponseWriter, r *http.Request, err error, clearCookie bool) {
	de := domain.AsError(err)

	if clearCookie && de.Kind != domain.KindInternalFailure {
		m.cookies.ClearAccess(w)
	}

	event := m.logger.Debug()
	if de.Kind == domain.KindInternalFailure {
		event = m.logger.Error()
	}
	event.Err(de.Err).Str("code", de.Code).Str("path", r.URL.Path).Msg("request rejected")

	RecordAuthFailure(de.Code)
	response.FromError(w, de)
}

// extractCredential prefers the access cookie and falls back to a bearer
// Authorization header.
func extractCredential(r *http.Request) string {
	if token := cookieValue(r, AccessCookie); token != "" {
		return token
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session attached by Required or Optional,
// or nil when neither ran.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// PrincipalFromContext returns the authenticated user, or nil.
func PrincipalFromContext(ctx context.Context) *domain.User {
	if s := SessionFromContext(ctx); s != nil {
		return s.Principal
	}
	return nil
}

func GetUserID(r *http.Request) string {
	if p := PrincipalFromContext(r.Context()); p != nil {
		return p.ID
	}
	return ""
}
