package auth

import (
	"strings"
	"testing"
)

func TestCSRFToken_RoundTrip(t *testing.T) {
	tok, err := GenerateCSRFToken(testSecret, "session-1")
	if err != nil {
		t.Fatalf("GenerateCSRFToken() error = %v", err)
	}
	if !strings.Contains(tok, ".") {
		t.Fatalf("token %q has no separator", tok)
	}
	if !VerifyCSRFToken(testSecret, "session-1", tok) {
		t.Error("token should verify for its own session")
	}

	other, _ := GenerateCSRFToken(testSecret, "session-1")
	if other == tok {
		t.Error("tokens should carry a fresh nonce")
	}
}

func TestCSRFToken_Rejects(t *testing.T) {
	tok, _ := GenerateCSRFToken(testSecret, "session-1")
	nonce, mac, _ := strings.Cut(tok, ".")

	tests := []struct {
		name, secret, session, token string
	}{
		{"other session", testSecret, "session-2", tok},
		{"other secret", "another-secret-key-at-least-32-chars", "session-1", tok},
		{"empty session", testSecret, "", tok},
		{"empty token", testSecret, "session-1", ""},
		{"no separator", testSecret, "session-1", nonce + mac},
		{"missing mac", testSecret, "session-1", nonce + "."},
		{"tampered nonce", testSecret, "session-1", "x" + nonce + "." + mac},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyCSRFToken(tt.secret, tt.session, tt.token) {
				t.Error("VerifyCSRFToken() = true, want false")
			}
		})
	}
}
