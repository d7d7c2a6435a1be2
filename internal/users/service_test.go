package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Ezrah1/orlando/internal/platform/httpx"
	"github.com/Ezrah1/orlando/internal/rbac"
	"github.com/Ezrah1/orlando/internal/shared"
)

type stubUserRepo struct {
	users    map[int64]*User
	nextID   int64
	lastHash string
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[int64]*User), nextID: 1}
}

func (r *stubUserRepo) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubUserRepo) Get(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *stubUserRepo) Create(ctx context.Context, email, name, role, passwordHash string) (*User, error) {
	r.lastHash = passwordHash
	u := &User{ID: r.nextID, Email: email, Name: name, Role: role, IsActive: true, CreatedAt: time.Now()}
	r.users[u.ID] = u
	r.nextID++
	return u, nil
}

func (r *stubUserRepo) Update(ctx context.Context, id int64, name, role string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	u.Name, u.Role = name, role
	return u, nil
}

func (r *stubUserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	return nil
}

type stubOverrideStore struct {
	rows map[int64][]rbac.GrantRow
}

func newStubOverrideStore() *stubOverrideStore {
	return &stubOverrideStore{rows: make(map[int64][]rbac.GrantRow)}
}

func (s *stubOverrideStore) UpsertUserOverride(ctx context.Context, actorID int64, row rbac.GrantRow) error {
	for i, existing := range s.rows[actorID] {
		if existing.Key == row.Key {
			s.rows[actorID][i] = row
			return nil
		}
	}
	s.rows[actorID] = append(s.rows[actorID], row)
	return nil
}

func (s *stubOverrideStore) DeleteUserOverride(ctx context.Context, actorID int64, key rbac.GrantKey) error {
	rows := s.rows[actorID]
	for i, existing := range rows {
		if existing.Key == key {
			s.rows[actorID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *stubOverrideStore) UserOverrides(ctx context.Context, actorID int64) ([]rbac.GrantRow, error) {
	return s.rows[actorID], nil
}

type stubInvalidator struct {
	actors []int64
}

func (s *stubInvalidator) Invalidate(ctx context.Context, actorID int64) {
	s.actors = append(s.actors, actorID)
}

func newTestService() (*Service, *stubUserRepo, *stubOverrideStore, *stubInvalidator) {
	repo := newStubUserRepo()
	overrides := newStubOverrideStore()
	inv := &stubInvalidator{}
	return NewService(repo, overrides, inv, rbac.DefaultHierarchy()), repo, overrides, inv
}

func TestCreateHashesPassword(t *testing.T) {
	svc, repo, _, _ := newTestService()

	u, err := svc.Create(context.Background(), " Nina@Orlando.Test ", " Nina ", "front_desk", "swordfish-42")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "nina@orlando.test" || u.Name != "Nina" {
		t.Fatalf("expected normalized fields, got %+v", u)
	}
	if repo.lastHash == "swordfish-42" {
		t.Fatal("password must not be stored in the clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(repo.lastHash), []byte("swordfish-42")) != nil {
		t.Fatal("stored hash does not verify")
	}
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Create(context.Background(), "x@orlando.test", "X", "intern", "swordfish-42")
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAllowsSuperAdmin(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.Create(context.Background(), "root@orlando.test", "Root", rbac.RoleSuperAdmin, "swordfish-42"); err != nil {
		t.Fatalf("super_admin is assignable even though it is outside the hierarchy: %v", err)
	}
}

func TestUpdateInvalidatesGrants(t *testing.T) {
	svc, repo, _, inv := newTestService()
	repo.users[7] = &User{ID: 7, Role: "front_desk"}

	u, err := svc.Update(context.Background(), 7, "Nina", "operations_manager")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Role != "operations_manager" {
		t.Fatalf("unexpected role %q", u.Role)
	}
	if len(inv.actors) != 1 || inv.actors[0] != 7 {
		t.Fatalf("role change must invalidate the grant cache, got %v", inv.actors)
	}
}

func TestSetOverrideNormalizesAndInvalidates(t *testing.T) {
	svc, _, overrides, inv := newTestService()

	if err := svc.SetOverride(context.Background(), 7, rbac.GrantKey{Module: rbac.ModuleFinance}, true); err != nil {
		t.Fatalf("set override: %v", err)
	}
	rows := overrides.rows[7]
	if len(rows) != 1 {
		t.Fatalf("expected one override, got %d", len(rows))
	}
	want := rbac.GrantKey{Module: rbac.ModuleFinance, Resource: rbac.ResourceAny, Action: rbac.ActionRead}
	if rows[0].Key != want || !rows[0].Allowed {
		t.Fatalf("unexpected override %+v", rows[0])
	}
	if len(inv.actors) != 1 {
		t.Fatalf("override must invalidate the grant cache, got %v", inv.actors)
	}
}

func TestSetOverrideRejectsMalformedKey(t *testing.T) {
	svc, _, overrides, inv := newTestService()

	err := svc.SetOverride(context.Background(), 7, rbac.GrantKey{}, true)
	if !errors.Is(err, httpx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(overrides.rows[7]) != 0 || len(inv.actors) != 0 {
		t.Fatal("malformed keys must not be stored or invalidate anything")
	}
}

func TestRemoveOverride(t *testing.T) {
	svc, _, overrides, inv := newTestService()
	key := rbac.GrantKey{Module: rbac.ModuleFinance, Resource: rbac.ResourceAny, Action: rbac.ActionRead}

	if err := svc.SetOverride(context.Background(), 7, key, false); err != nil {
		t.Fatalf("set override: %v", err)
	}
	if err := svc.RemoveOverride(context.Background(), 7, key); err != nil {
		t.Fatalf("remove override: %v", err)
	}
	if len(overrides.rows[7]) != 0 {
		t.Fatalf("expected no overrides, got %v", overrides.rows[7])
	}
	if len(inv.actors) != 2 {
		t.Fatalf("expected two invalidations, got %v", inv.actors)
	}
}
