package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func TestGenerateAccessToken(t *testing.T) {
	tests := []struct {
		name       string
		identity   Identity
		expiration time.Duration
		secret     string
		wantErr    bool
	}{
		{
			name:       "valid token generation",
			identity:   Identity{UserID: "user-123", Username: "alice", Email: "alice@example.com"},
			expiration: 15 * time.Minute,
			secret:     "test-secret-key-32-characters!",
		},
		{
			name:       "short expiration",
			identity:   Identity{UserID: "user-456"},
			expiration: 1 * time.Second,
			secret:     "test-secret",
		},
		{
			name:       "long expiration",
			identity:   Identity{UserID: "user-789"},
			expiration: 24 * time.Hour,
			secret:     "test-secret",
		},
		{
			name:       "empty secret",
			identity:   Identity{UserID: "user-000"},
			expiration: time.Minute,
			secret:     "",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateAccessToken(tt.identity, tt.expiration, tt.secret)

			if tt.wantErr {
				if err == nil {
					t.Error("GenerateAccessToken() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("GenerateAccessToken() error = %v", err)
				return
			}

			if len(token) < 100 {
				t.Errorf("GenerateAccessToken() token too short, len = %d", len(token))
			}
		})
	}
}

func TestAccessTokenCarriesIdentity(t *testing.T) {
	secret := "identity-secret"
	id := Identity{UserID: "user-1", Username: "bob", Email: "bob@example.com"}

	token, err := GenerateAccessToken(id, time.Hour, secret)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	if claims.UserID != id.UserID || claims.Username != id.Username || claims.Email != id.Email {
		t.Errorf("ValidateToken() claims = %+v, want identity %+v", claims, id)
	}
	if claims.Subject != id.UserID {
		t.Errorf("Subject = %q, want %q", claims.Subject, id.UserID)
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	userID := "user-refresh-test"
	secret := "refresh-secret-key"

	token, err := GenerateRefreshToken(userID, 7*24*time.Hour, secret)
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("UserID = %q, want %q", claims.UserID, userID)
	}
	if claims.Username != "" || claims.Email != "" {
		t.Error("refresh token must not carry profile claims")
	}
}

func TestRefreshTokensAreUnique(t *testing.T) {
	first, _ := GenerateRefreshToken("same-user", time.Hour, "secret")
	second, _ := GenerateRefreshToken("same-user", time.Hour, "secret")

	if first == second {
		t.Error("two refresh tokens issued in the same second must differ")
	}
}

func TestValidateToken(t *testing.T) {
	userID := "test-user-id"
	secret := "validation-secret-key-32-chars"

	validToken, _ := GenerateAccessToken(Identity{UserID: userID}, 1*time.Hour, secret)
	expiredToken, _ := GenerateAccessToken(Identity{UserID: userID}, -1*time.Hour, secret)

	noneToken, _ := gojwt.NewWithClaims(gojwt.SigningMethodNone, Claims{UserID: userID}).
		SignedString(gojwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "valid token", token: validToken, secret: secret},
		{name: "expired token", token: expiredToken, secret: secret, wantErr: ErrExpired},
		{name: "wrong secret", token: validToken, secret: "wrong-secret", wantErr: ErrBadSignature},
		{name: "invalid token format", token: "invalid.token.format", secret: secret, wantErr: ErrMalformed},
		{name: "empty token", token: "", secret: secret, wantErr: ErrMalformed},
		{name: "alg none", token: noneToken, secret: secret, wantErr: ErrBadSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ValidateToken() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("ValidateToken() error = %v", err)
				return
			}

			if claims.UserID != userID {
				t.Errorf("ValidateToken() userID = %v, want %v", claims.UserID, userID)
			}
		})
	}
}

func TestExpiredIsNeverReportedAsOtherKind(t *testing.T) {
	token, _ := GenerateAccessToken(Identity{UserID: "u"}, -time.Second, "s")

	_, err := ValidateToken(token, "s")
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("ValidateToken() error = %v, want ErrExpired", err)
	}
	if errors.Is(err, ErrMalformed) || errors.Is(err, ErrBadSignature) {
		t.Errorf("expired token classified as another kind: %v", err)
	}
}

func TestTamperedPayloadRejected(t *testing.T) {
	token, _ := GenerateAccessToken(Identity{UserID: "victim"}, time.Hour, "s")
	parts := strings.Split(token, ".")
	forged, _ := GenerateAccessToken(Identity{UserID: "attacker"}, time.Hour, "other")
	parts[1] = strings.Split(forged, ".")[1]

	if _, err := ValidateToken(strings.Join(parts, "."), "s"); !errors.Is(err, ErrBadSignature) {
		t.Errorf("ValidateToken() error = %v, want ErrBadSignature", err)
	}
}

func TestClaimsTimestamps(t *testing.T) {
	secret := "timestamp-test-secret"
	expiration := 1 * time.Hour

	before := time.Now().Add(-1 * time.Second)
	token, err := GenerateAccessToken(Identity{UserID: "timestamp-test-user"}, expiration, secret)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	after := time.Now().Add(1 * time.Second)

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}

	issuedAt := claims.IssuedAt.Time
	if issuedAt.Before(before) || issuedAt.After(after) {
		t.Errorf("IssuedAt timestamp out of expected range: got %v, range [%v, %v]",
			issuedAt, before, after)
	}

	notBefore := claims.NotBefore.Time
	if notBefore.Before(before) || notBefore.After(after) {
		t.Errorf("NotBefore timestamp out of expected range: got %v, range [%v, %v]",
			notBefore, before, after)
	}

	expiresAt := claims.ExpiresAt.Time
	expectedExpiry := before.Add(expiration)
	upperBound := after.Add(expiration)
	if expiresAt.Before(expectedExpiry) || expiresAt.After(upperBound) {
		t.Errorf("ExpiresAt timestamp out of expected range: got %v, range [%v, %v]",
			expiresAt, expectedExpiry, upperBound)
	}
}

func BenchmarkGenerateAccessToken(b *testing.B) {
	id := Identity{UserID: "benchmark-user", Username: "bench"}

	for i := 0; i < b.N; i++ {
		if _, err := GenerateAccessToken(id, 15*time.Minute, "benchmark-secret-key"); err != nil {
			b.Fatalf("GenerateAccessToken() error = %v", err)
		}
	}
}

func BenchmarkValidateToken(b *testing.B) {
	secret := "benchmark-secret-key"
	token, _ := GenerateAccessToken(Identity{UserID: "benchmark-user"}, 15*time.Minute, secret)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := ValidateToken(token, secret); err != nil {
			b.Fatalf("ValidateToken() error = %v", err)
		}
	}
}
