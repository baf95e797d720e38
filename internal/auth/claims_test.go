package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	user := &User{ID: "usr-001", Role: RoleManager, DepartmentID: "dep-ops"}

	token, err := GenerateAccessToken(user, "sess-1", testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "usr-001" {
		t.Errorf("Subject = %q, want usr-001", claims.Subject)
	}
	if claims.Role != RoleManager {
		t.Errorf("Role = %q, want manager", claims.Role)
	}
	if claims.DepartmentID != "dep-ops" {
		t.Errorf("DepartmentID = %q, want dep-ops", claims.DepartmentID)
	}
	if claims.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", claims.SessionID)
	}
	if claims.Issuer != TokenIssuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, TokenIssuer)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _ := GenerateAccessToken(&User{ID: "usr-001", Role: RoleStaff}, "s", testSecret, time.Minute)
	if _, err := ParseToken(token, "another-secret-that-is-32-chars-long"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
	}
}

func TestParseToken_Expired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   "usr-001",
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
		Role: RoleStaff,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	_, err = ParseToken(token, testSecret)
	if !errors.Is(err, ErrTokenExpired) || !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() error = %v, want ErrTokenExpired and ErrTokenInvalid", err)
	}
}

func TestParseToken_RejectsForeignTokens(t *testing.T) {
	sign := func(c CustomClaims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		if err != nil {
			t.Fatalf("signing: %v", err)
		}
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "abc.def"},
		{"wrong issuer", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "other", Subject: "u", ExpiresAt: future},
			Role:             RoleStaff,
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"none algorithm", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer, Subject: "u", ExpiresAt: future},
			Role:             RoleAdmin,
		}, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)},
		{"missing subject", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer, ExpiresAt: future},
			Role:             RoleStaff,
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"unknown role", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer, Subject: "u", ExpiresAt: future},
			Role:             "owner",
		}, jwt.SigningMethodHS256, []byte(testSecret))},
		{"no expiry", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer, Subject: "u"},
			Role:             RoleStaff,
		}, jwt.SigningMethodHS256, []byte(testSecret))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	a, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	b, _ := GenerateRefreshToken()
	if len(a) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(a))
	}
	if a == b {
		t.Error("two refresh tokens should differ")
	}
}

func TestGenerateAccessToken_DefaultTTL(t *testing.T) {
	token, err := GenerateAccessToken(&User{ID: "usr-001", Role: RoleStaff}, "s", testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != 15*time.Minute {
		t.Errorf("ttl = %v, want 15m", ttl)
	}
}
