package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ezrah1/orlando/internal/audit"
)

func seedSession(repo *stubRepo, token string, lastActivity time.Time) {
	repo.sessions[token] = &SessionRecord{
		Session: Session{
			Token:        token,
			UserID:       1,
			IP:           "10.0.0.1",
			UserAgent:    "ua",
			CreatedAt:    lastActivity,
			LastActivity: lastActivity,
			IsActive:     true,
		},
		Role:       "front_desk",
		UserActive: true,
	}
}

func TestGuardAuthenticated(t *testing.T) {
	repo := newStubRepo()
	seedSession(repo, "tok", time.Now().UTC())
	guard := NewGuard(repo, audit.NewService(&stubAuditRepo{}, nil), nil, 30*time.Minute)

	verdict := guard.Check(context.Background(), "tok", "10.0.0.1", "ua")
	if verdict.State != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", verdict.State)
	}
	if verdict.Actor.ID != 1 || verdict.Actor.Role != "front_desk" || verdict.Actor.SessionToken != "tok" {
		t.Fatalf("unexpected actor %+v", verdict.Actor)
	}
}

func TestGuardRefreshesIdleTimer(t *testing.T) {
	repo := newStubRepo()
	stale := time.Now().UTC().Add(-10 * time.Minute)
	seedSession(repo, "tok", stale)
	guard := NewGuard(repo, audit.NewService(&stubAuditRepo{}, nil), nil, 30*time.Minute)

	guard.Check(context.Background(), "tok", "10.0.0.1", "ua")
	if !repo.sessions["tok"].LastActivity.After(stale) {
		t.Fatal("an authenticated check must refresh last activity")
	}
}

func TestGuardEmptyToken(t *testing.T) {
	guard := NewGuard(newStubRepo(), audit.NewService(&stubAuditRepo{}, nil), nil, 30*time.Minute)
	if verdict := guard.Check(context.Background(), "", "10.0.0.1", "ua"); verdict.State != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", verdict.State)
	}
}

func TestGuardUnknownToken(t *testing.T) {
	sink := &stubAuditRepo{}
	guard := NewGuard(newStubRepo(), audit.NewService(sink, nil), nil, 30*time.Minute)

	verdict := guard.Check(context.Background(), "nope", "10.0.0.1", "ua")
	if verdict.State != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", verdict.State)
	}
	got := sink.activities()
	if len(got) != 1 || got[0] != audit.ActivityAccessDenied {
		t.Fatalf("expected an access_denied entry, got %v", got)
	}
}

func TestGuardStorageFailure(t *testing.T) {
	repo := newStubRepo()
	seedSession(repo, "tok", time.Now().UTC())
	repo.findSessErr = errors.New("connection refused")
	guard := NewGuard(repo, audit.NewService(&stubAuditRepo{}, nil), nil, 30*time.Minute)

	if verdict := guard.Check(context.Background(), "tok", "10.0.0.1", "ua"); verdict.State != StateAnonymous {
		t.Fatalf("a broken session store must degrade to anonymous, got %s", verdict.State)
	}
}

func TestGuardIdleTimeout(t *testing.T) {
	repo := newStubRepo()
	seedSession(repo, "tok", time.Now().UTC().Add(-31*time.Minute))
	sink := &stubAuditRepo{}
	guard := NewGuard(repo, audit.NewService(sink, nil), nil, 30*time.Minute)

	verdict := guard.Check(context.Background(), "tok", "10.0.0.1", "ua")
	if verdict.State != StateExpired {
		t.Fatalf("expected expired, got %s", verdict.State)
	}
	if repo.sessions["tok"].IsActive {
		t.Fatal("expired session should be deactivated")
	}
	got := sink.activities()
	if len(got) != 1 || got[0] != audit.ActivitySessionExpired {
		t.Fatalf("expected a session_expired entry, got %v", got)
	}
}

func TestGuardHijackOnIPChange(t *testing.T) {
	repo := newStubRepo()
	seedSession(repo, "tok", time.Now().UTC())
	sink := &stubAuditRepo{}
	guard := NewGuard(repo, audit.NewService(sink, nil), nil, 30*time.Minute)

	verdict := guard.Check(context.Background(), "tok", "203.0.113.9", "ua")
	if verdict.State != StateHijacked {
		t.Fatalf("expected hijacked, got %s", verdict.State)
	}
	if repo.sessions["tok"].IsActive {
		t.Fatal("hijacked session should be deactivated")
	}
	got := sink.activities()
	if len(got) != 2 || got[0] != audit.ActivitySessionHijacked || got[1] != audit.ActivityAccessDenied {
		t.Fatalf("expected session_hijacked then access_denied, got %v", got)
	}

	// The terminated token is anonymous from here on.
	if verdict := guard.Check(context.Background(), "tok", "10.0.0.1", "ua"); verdict.State != StateAnonymous {
		t.Fatalf("terminated token should be anonymous, got %s", verdict.State)
	}
}

func TestGuardHijackOnUserAgentChange(t *testing.T) {
	repo := newStubRepo()
	seedSession(repo, "tok", time.Now().UTC())
	guard := NewGuard(repo, audit.NewService(&stubAuditRepo{}, nil), nil, 30*time.Minute)

	if verdict := guard.Check(context.Background(), "tok", "10.0.0.1", "other-ua"); verdict.State != StateHijacked {
		t.Fatalf("expected hijacked, got %s", verdict.State)
	}
}

func TestGuardDisabledAccount(t *testing.T) {
	repo := newStubRepo()
	seedSession(repo, "tok", time.Now().UTC())
	repo.sessions["tok"].UserActive = false
	guard := NewGuard(repo, audit.NewService(&stubAuditRepo{}, nil), nil, 30*time.Minute)

	if verdict := guard.Check(context.Background(), "tok", "10.0.0.1", "ua"); verdict.State != StateAnonymous {
		t.Fatalf("disabled account must be anonymous, got %s", verdict.State)
	}
}
