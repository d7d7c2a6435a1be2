package shared

import (
	"errors"
	"testing"
)

func TestCSRFRoundTrip(t *testing.T) {
	m := NewCSRFManager("test-secret")
	token := m.TokenFor("session-abc")
	if err := m.Verify("session-abc", token); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestCSRFMissingToken(t *testing.T) {
	m := NewCSRFManager("test-secret")
	if err := m.Verify("session-abc", ""); !errors.Is(err, ErrCSRFTokenMissing) {
		t.Fatalf("expected missing-token error, got %v", err)
	}
}

func TestCSRFWrongSession(t *testing.T) {
	m := NewCSRFManager("test-secret")
	token := m.TokenFor("session-abc")
	if err := m.Verify("session-other", token); !errors.Is(err, ErrCSRFTokenMismatch) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestCSRFWrongSecret(t *testing.T) {
	token := NewCSRFManager("secret-one").TokenFor("session-abc")
	if err := NewCSRFManager("secret-two").Verify("session-abc", token); !errors.Is(err, ErrCSRFTokenMismatch) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}
