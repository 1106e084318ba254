package auth

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Generate(42)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	userID, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Failed to verify token: %v", err)
	}
	if userID != 42 {
		t.Errorf("Expected user 42, got %d", userID)
	}
}

func TestExpiredToken(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, _ := m.Generate(42)
	if _, err := m.Verify(token); err == nil {
		t.Error("Expected error for expired token")
	}
}

func TestWrongSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)

	token, _ := issuer.Generate(42)
	if _, err := verifier.Verify(token); err == nil {
		t.Error("Expected error for signature mismatch")
	}
}

func TestGarbageToken(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	for _, token := range []string{"", "not.a.token", "a.b"} {
		if _, err := m.Verify(token); err == nil {
			t.Errorf("Expected error for token %q", token)
		}
	}
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer abc")
	token, err := ExtractToken(r)
	if err != nil || token != "abc" {
		t.Errorf("Expected token 'abc', got %q (%v)", token, err)
	}

	r = httptest.NewRequest("GET", "/ws?token=xyz", nil)
	token, err = ExtractToken(r)
	if err != nil || token != "xyz" {
		t.Errorf("Expected token 'xyz', got %q (%v)", token, err)
	}

	r = httptest.NewRequest("GET", "/", nil)
	if _, err := ExtractToken(r); err == nil {
		t.Error("Expected error when no token is supplied")
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	if _, err := ExtractToken(r); err == nil {
		t.Error("Expected error for non-bearer authorization header")
	}
}
