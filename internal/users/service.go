package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Ezrah1/orlando/internal/platform/httpx"
	"github.com/Ezrah1/orlando/internal/rbac"
)

// OverrideStore writes per-user permission overrides.
type OverrideStore interface {
	UpsertUserOverride(ctx context.Context, actorID int64, row rbac.GrantRow) error
	DeleteUserOverride(ctx context.Context, actorID int64, key rbac.GrantKey) error
	UserOverrides(ctx context.Context, actorID int64) ([]rbac.GrantRow, error)
}

// Invalidator drops cached grant maps after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, actorID int64)
}

// Service handles user management business logic.
type Service struct {
	repo      RepositoryPort
	overrides OverrideStore
	grants    Invalidator
	hierarchy *rbac.Hierarchy
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, overrides OverrideStore, grants Invalidator, hierarchy *rbac.Hierarchy) *Service {
	return &Service{repo: repo, overrides: overrides, grants: grants, hierarchy: hierarchy}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create provisions a new account with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, email, name, role, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.checkRole(role); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, email, strings.TrimSpace(name), role, string(hash))
}

// Update changes name and role. A role change invalidates the cached
// grant map so the next check sees the new role's grants.
func (s *Service) Update(ctx context.Context, id int64, name, role string) (*User, error) {
	if err := s.checkRole(role); err != nil {
		return nil, err
	}
	user, err := s.repo.Update(ctx, id, strings.TrimSpace(name), role)
	if err != nil {
		return nil, err
	}
	s.grants.Invalidate(ctx, id)
	return user, nil
}

// SetActive toggles the account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// Overrides lists the user's permission overrides.
func (s *Service) Overrides(ctx context.Context, id int64) ([]rbac.GrantRow, error) {
	return s.overrides.UserOverrides(ctx, id)
}

// SetOverride writes one override and drops the cached grant map.
func (s *Service) SetOverride(ctx context.Context, id int64, key rbac.GrantKey, allowed bool) error {
	key = key.Normalize()
	if err := key.Validate(); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.overrides.UpsertUserOverride(ctx, id, rbac.GrantRow{Key: key, Allowed: allowed}); err != nil {
		return err
	}
	s.grants.Invalidate(ctx, id)
	return nil
}

// RemoveOverride deletes one override and drops the cached grant map.
func (s *Service) RemoveOverride(ctx context.Context, id int64, key rbac.GrantKey) error {
	key = key.Normalize()
	if err := key.Validate(); err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if err := s.overrides.DeleteUserOverride(ctx, id, key); err != nil {
		return err
	}
	s.grants.Invalidate(ctx, id)
	return nil
}

func (s *Service) checkRole(role string) error {
	if role == rbac.RoleSuperAdmin {
		return nil
	}
	for _, known := range s.hierarchy.Roles() {
		if known == role {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown role %q", httpx.ErrValidation, role)
}
