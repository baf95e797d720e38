package auth

import (
	"testing"
	"time"
)

func BenchmarkHashPassword(b *testing.B) {
	for b.Loop() {
		HashPassword("benchmark-password-1") //nolint:errcheck // benchmark
	}
}

func BenchmarkVerifyPassword(b *testing.B) {
	hash, err := HashPassword("benchmark-password-1")
	if err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		VerifyPassword("benchmark-password-1", hash) //nolint:errcheck // benchmark
	}
}

func BenchmarkParseToken(b *testing.B) {
	token, err := GenerateAccessToken(&User{ID: "usr-bench", Role: RoleStaff}, "sess", testSecret, time.Hour)
	if err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		ParseToken(token, testSecret) //nolint:errcheck // benchmark
	}
}

func BenchmarkVerifyCSRFToken(b *testing.B) {
	tok, err := GenerateCSRFToken(testSecret, "sess")
	if err != nil {
		b.Fatal(err)
	}
	for b.Loop() {
		VerifyCSRFToken(testSecret, "sess", tok)
	}
}

func BenchmarkRateLimiterAllow(b *testing.B) {
	l := NewRateLimiter(1_000_000, 1_000_000)
	for b.Loop() {
		l.Allow("10.0.0.1")
	}
}
