package auth

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Ezrah1/orlando/internal/audit"
	"github.com/Ezrah1/orlando/internal/shared"
)

type stubRepo struct {
	users    map[string]*User
	sessions map[string]*SessionRecord

	failures    map[string]int
	findSessErr error
	countErr    error

	rehashedTo string
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:    make(map[string]*User),
		sessions: make(map[string]*SessionRecord),
		failures: make(map[string]int),
	}
}

func (r *stubRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *stubRepo) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	r.rehashedTo = hash
	for _, u := range r.users {
		if u.ID == userID {
			u.PasswordHash = hash
		}
	}
	return nil
}

func (r *stubRepo) CreateSession(ctx context.Context, sess Session) error {
	for _, rec := range r.sessions {
		if rec.UserID == sess.UserID {
			rec.IsActive = false
		}
	}
	sess.IsActive = true
	role, active := "", true
	for _, u := range r.users {
		if u.ID == sess.UserID {
			role, active = u.Role, u.IsActive
		}
	}
	r.sessions[sess.Token] = &SessionRecord{Session: sess, Role: role, UserActive: active}
	return nil
}

func (r *stubRepo) FindSession(ctx context.Context, token string) (*SessionRecord, error) {
	if r.findSessErr != nil {
		return nil, r.findSessErr
	}
	rec, ok := r.sessions[token]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (r *stubRepo) TouchSession(ctx context.Context, token string, at time.Time) error {
	if rec, ok := r.sessions[token]; ok {
		rec.LastActivity = at
	}
	return nil
}

func (r *stubRepo) DeactivateSession(ctx context.Context, token string) error {
	if rec, ok := r.sessions[token]; ok {
		rec.IsActive = false
	}
	return nil
}

func (r *stubRepo) RecordAttempt(ctx context.Context, email, ip string, success bool) error {
	if !success {
		r.failures[email]++
	}
	return nil
}

func (r *stubRepo) CountRecentFailures(ctx context.Context, email string, since time.Time) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	return r.failures[email], nil
}

func (r *stubRepo) ClearFailures(ctx context.Context, email string) error {
	r.failures[email] = 0
	return nil
}

func (r *stubRepo) activeSessions(userID int64) int {
	n := 0
	for _, rec := range r.sessions {
		if rec.UserID == userID && rec.IsActive {
			n++
		}
	}
	return n
}

type stubAuditRepo struct {
	entries   []audit.Entry
	appendErr error
}

func (r *stubAuditRepo) Append(ctx context.Context, entry audit.Entry) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubAuditRepo) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int, error) {
	return r.entries, len(r.entries), nil
}

func (r *stubAuditRepo) activities() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Activity)
	}
	return out
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func newTestService(repo *stubRepo, sink *stubAuditRepo) *Service {
	return NewService(repo, audit.NewService(sink, nil), nil, DefaultConfig())
}

func TestAuthenticateIssuesSession(t *testing.T) {
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, Email: "nina@orlando.test", Role: "front_desk",
		PasswordHash: mustHash(t, "swordfish-42"), IsActive: true,
	}
	sink := &stubAuditRepo{}
	svc := newTestService(repo, sink)

	actor, err := svc.Authenticate(context.Background(), "  Nina@Orlando.Test ", "swordfish-42", "10.0.0.1", "ua")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if actor.ID != 1 || actor.Role != "front_desk" {
		t.Fatalf("unexpected actor %+v", actor)
	}
	if actor.SessionToken == "" {
		t.Fatal("expected a session token")
	}
	if repo.activeSessions(1) != 1 {
		t.Fatalf("expected one active session, got %d", repo.activeSessions(1))
	}
	got := sink.activities()
	if len(got) != 1 || got[0] != audit.ActivityLogin {
		t.Fatalf("expected a login audit entry, got %v", got)
	}
}

func TestAuthenticateSingleActiveSession(t *testing.T) {
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, Email: "nina@orlando.test", Role: "front_desk",
		PasswordHash: mustHash(t, "swordfish-42"), IsActive: true,
	}
	svc := newTestService(repo, &stubAuditRepo{})

	first, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.2", "ua")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if repo.activeSessions(1) != 1 {
		t.Fatalf("expected last login to win, got %d active sessions", repo.activeSessions(1))
	}
	if rec := repo.sessions[first.SessionToken]; rec.IsActive {
		t.Fatal("first session should be deactivated")
	}
	if rec := repo.sessions[second.SessionToken]; !rec.IsActive {
		t.Fatal("second session should be active")
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, PasswordHash: mustHash(t, "swordfish-42"), IsActive: true,
	}
	sink := &stubAuditRepo{}
	svc := newTestService(repo, sink)

	_, err := svc.Authenticate(context.Background(), "nina@orlando.test", "wrong", "10.0.0.1", "ua")
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if repo.failures["nina@orlando.test"] != 1 {
		t.Fatalf("expected one recorded failure, got %d", repo.failures["nina@orlando.test"])
	}
	got := sink.activities()
	if len(got) != 1 || got[0] != audit.ActivityLoginFailed {
		t.Fatalf("expected a login_failed audit entry, got %v", got)
	}
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, PasswordHash: mustHash(t, "swordfish-42"), IsActive: false,
	}
	svc := newTestService(repo, &stubAuditRepo{})

	_, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua")
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for disabled account, got %v", err)
	}
}

func TestAuthenticateLockoutBoundary(t *testing.T) {
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, PasswordHash: mustHash(t, "swordfish-42"), IsActive: true,
	}
	sink := &stubAuditRepo{}
	svc := newTestService(repo, sink)

	// Four prior failures: the correct password still works.
	repo.failures["nina@orlando.test"] = 4
	if _, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua"); err != nil {
		t.Fatalf("fifth attempt with correct password should pass: %v", err)
	}
	if repo.failures["nina@orlando.test"] != 0 {
		t.Fatal("success should clear the failure counter")
	}

	// Five failures lock the account even with the correct password.
	repo.failures["nina@orlando.test"] = 5
	_, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua")
	if !errors.Is(err, shared.ErrAccountLocked) {
		t.Fatalf("expected lockout, got %v", err)
	}
	got := sink.activities()
	if got[len(got)-1] != audit.ActivityLockout {
		t.Fatalf("expected a lockout audit entry, got %v", got)
	}
}

func TestAuthenticateLockoutCounterUnavailable(t *testing.T) {
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, PasswordHash: mustHash(t, "swordfish-42"), IsActive: true,
	}
	repo.countErr = errors.New("connection refused")
	svc := newTestService(repo, &stubAuditRepo{})

	_, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua")
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("a broken lockout counter must deny, got %v", err)
	}
}

func TestAuthenticateRehashesLegacyHash(t *testing.T) {
	sum := sha1.Sum([]byte("swordfish-42"))
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, PasswordHash: legacyHashPrefix + hex.EncodeToString(sum[:]), IsActive: true,
	}
	svc := newTestService(repo, &stubAuditRepo{})

	if _, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua"); err != nil {
		t.Fatalf("legacy hash should verify: %v", err)
	}
	if repo.rehashedTo == "" || strings.HasPrefix(repo.rehashedTo, legacyHashPrefix) {
		t.Fatalf("expected a bcrypt rehash, got %q", repo.rehashedTo)
	}
	if bcrypt.CompareHashAndPassword([]byte(repo.rehashedTo), []byte("swordfish-42")) != nil {
		t.Fatal("rehashed password no longer verifies")
	}

	// Second login now takes the bcrypt path.
	if _, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua"); err != nil {
		t.Fatalf("login after rehash: %v", err)
	}
}

func TestAuthenticateLegacyHashWrongPassword(t *testing.T) {
	sum := sha1.Sum([]byte("swordfish-42"))
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, PasswordHash: legacyHashPrefix + hex.EncodeToString(sum[:]), IsActive: true,
	}
	svc := newTestService(repo, &stubAuditRepo{})

	_, err := svc.Authenticate(context.Background(), "nina@orlando.test", "wrong", "10.0.0.1", "ua")
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if repo.rehashedTo != "" {
		t.Fatal("a failed legacy verify must not rehash")
	}
}

func TestLogoutDeactivatesSession(t *testing.T) {
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, Role: "front_desk", PasswordHash: mustHash(t, "swordfish-42"), IsActive: true,
	}
	sink := &stubAuditRepo{}
	svc := newTestService(repo, sink)

	actor, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := svc.Logout(context.Background(), actor); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if repo.activeSessions(1) != 0 {
		t.Fatal("logout should deactivate the session")
	}
	got := sink.activities()
	if got[len(got)-1] != audit.ActivityLogout {
		t.Fatalf("expected a logout audit entry, got %v", got)
	}
}

func TestExtendSession(t *testing.T) {
	repo := newStubRepo()
	repo.users["nina@orlando.test"] = &User{
		ID: 1, Role: "front_desk", PasswordHash: mustHash(t, "swordfish-42"), IsActive: true,
	}
	svc := newTestService(repo, &stubAuditRepo{})

	actor, err := svc.Authenticate(context.Background(), "nina@orlando.test", "swordfish-42", "10.0.0.1", "ua")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	stale := time.Now().UTC().Add(-10 * time.Minute)
	repo.sessions[actor.SessionToken].LastActivity = stale
	if err := svc.ExtendSession(context.Background(), actor); err != nil {
		t.Fatalf("active session should extend: %v", err)
	}
	if !repo.sessions[actor.SessionToken].LastActivity.After(stale) {
		t.Fatal("extend should refresh the idle timer")
	}

	if err := svc.Logout(context.Background(), actor); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.ExtendSession(context.Background(), actor); !errors.Is(err, shared.ErrSessionInvalid) {
		t.Fatalf("terminated session must not extend, got %v", err)
	}
}
