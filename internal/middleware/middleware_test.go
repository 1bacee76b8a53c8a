package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"postline-server/internal/config"
	"postline-server/internal/domain"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieJar(t *testing.T) {
	jar := NewCookieJar(config.CookieConfig{Secure: true, Domain: "example.com"}, config.JWTConfig{
		AccessExpiration:  15 * time.Minute,
		RefreshExpiration: 7 * 24 * time.Hour,
	})

	rec := httptest.NewRecorder()
	jar.SetTokens(rec, &domain.TokenPair{AccessToken: "acc", RefreshToken: "ref"})

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}

	require.Contains(t, cookies, AccessCookie)
	require.Contains(t, cookies, RefreshCookie)
	assert.Equal(t, "acc", cookies[AccessCookie].Value)
	assert.Equal(t, 900, cookies[AccessCookie].MaxAge)
	assert.Equal(t, 7*24*3600, cookies[RefreshCookie].MaxAge)
	for _, c := range cookies {
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
	}

	rec = httptest.NewRecorder()
	jar.Clear(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 2)
	for _, c := range cleared {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
}

func TestRefreshTokenFromCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Empty(t, RefreshToken(req))

	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "ref"})
	assert.Equal(t, "ref", RefreshToken(req))
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware("http://localhost:5173, https://app.example.com", "GET,POST", "Content-Type")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "https://app.example.com", wantStatus: http.StatusOK, wantOrigin: "https://app.example.com"},
		{name: "unknown origin", method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:5173", wantStatus: http.StatusNoContent, wantOrigin: "http://localhost:5173"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.wantOrigin != "" {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		want       []int
	}{
		{
			name:       "forwarded header ignored",
			trustProxy: false,
			want:       []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
		{
			name:       "forwarded header trusted",
			trustProxy: true,
			want:       []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, err := NewIPRateLimiter("2-M", tt.trustProxy)
			require.NoError(t, err)

			handler := limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

			codes := make([]int, 0, 3)
			for i := 0; i < 3; i++ {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
				req.RemoteAddr = "198.51.100.4:5555"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				codes = append(codes, rec.Code)
			}

			assert.Equal(t, tt.want, codes)
		})
	}

	_, err := NewIPRateLimiter("lots", false)
	assert.Error(t, err)

	passthrough, err := NewIPRateLimiter("", false)
	require.NoError(t, err)
	assert.NotNil(t, passthrough)
}

func TestLoggerMiddlewareNamesSessionUser(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	session := newTestSession(defaultLoader())
	inner := session.Required(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler := LoggerMiddleware(logger)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, alice.ID, time.Minute))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, alice.ID, entry["user"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "/api/v1/users/current", entry["path"])
}

func TestPrometheusMiddlewareRouteLabel(t *testing.T) {
	r := mux.NewRouter()
	r.Use(PrometheusMiddleware)

	var label string
	r.HandleFunc("/posts/{id}", func(w http.ResponseWriter, req *http.Request) {
		label = routeLabel(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/posts/123", nil))
	assert.Equal(t, "/posts/{id}", label)
}

func TestSecureHeaders(t *testing.T) {
	handler := NewSecure(SecureOptions(true))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
