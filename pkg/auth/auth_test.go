package auth

import (
	"os"
	"testing"
	"time"
)

// TestMain sets JWT_SECRET before any test runs; without it no token
// can be issued or verified.
// Using os.Setenv (not t.Setenv) here because TestMain runs before t is available.
func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret-key-32-chars-min!!!") //nolint:errcheck
	os.Exit(m.Run())
}

func TestGenerateJWT_RoundTrip(t *testing.T) {
	token, err := GenerateJWT("user-123", "tenant-9")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}
	if token == "" {
		t.Fatal("GenerateJWT returned empty token")
	}

	claims, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT failed: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("expected user-123, got %q", claims.UserID)
	}
	if claims.TenantID != "tenant-9" {
		t.Errorf("expected tenant-9, got %q", claims.TenantID)
	}
}

func TestGenerateJWT_SetsExpiry(t *testing.T) {
	token, err := GenerateJWT("user-123", "")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	claims, err := ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT failed: %v", err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 23*time.Hour || remaining > 25*time.Hour {
		t.Errorf("expected ~24h expiry, got %v", remaining)
	}
}

func TestParseJWT_EmptyToken(t *testing.T) {
	if _, err := ParseJWT(""); err == nil {
		t.Error("expected error for empty token")
	}
}

func TestParseJWT_Garbage(t *testing.T) {
	if _, err := ParseJWT("not.a.jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT("user-123", "")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	t.Setenv("JWT_SECRET", "a-completely-different-secret!!")
	if _, err := ParseJWT(token); err == nil {
		t.Error("expected signature verification failure")
	}
}

func TestMissingSecret_ErrorsInsteadOfPanicking(t *testing.T) {
	token, err := GenerateJWT("user-123", "")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	t.Setenv("JWT_SECRET", "")

	if _, err := ParseJWT(token); err != ErrNoSecret {
		t.Errorf("ParseJWT without secret: got %v, want ErrNoSecret", err)
	}
	if _, err := GenerateJWT("user-123", ""); err != ErrNoSecret {
		t.Errorf("GenerateJWT without secret: got %v, want ErrNoSecret", err)
	}
}

func TestParseJWTExpiry(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 24 * time.Hour},
		{"1", time.Hour},
		{"48", 48 * time.Hour},
		{"banana", 24 * time.Hour},
	}
	for _, tc := range cases {
		if got := parseJWTExpiry(tc.in); got != tc.want {
			t.Errorf("parseJWTExpiry(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
