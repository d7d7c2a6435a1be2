package roles

import (
	"context"

	"github.com/Ezrah1/orlando/internal/rbac"
)

// GrantStore reads and replaces role-level grants.
type GrantStore interface {
	RoleGrants(ctx context.Context, role string) ([]rbac.GrantRow, error)
	ReplaceRoleGrants(ctx context.Context, role string, grants []rbac.GrantRow) error
}

// Invalidator drops cached grant maps derived from a role.
type Invalidator interface {
	InvalidateRole(ctx context.Context, role string)
}

// Service manages the role catalogue and role-level grants. Roles
// themselves are static (the hierarchy is fixed at startup); only their
// grant sets are editable.
type Service struct {
	store     GrantStore
	grants    Invalidator
	hierarchy *rbac.Hierarchy
}

// NewService builds a Service instance.
func NewService(store GrantStore, grants Invalidator, hierarchy *rbac.Hierarchy) *Service {
	return &Service{store: store, grants: grants, hierarchy: hierarchy}
}

// List returns the role catalogue with inheritance info.
func (s *Service) List(ctx context.Context) []Role {
	names := s.hierarchy.Roles()
	out := make([]Role, 0, len(names))
	for _, name := range names {
		out = append(out, Role{
			Name:        name,
			DisplayName: DisplayName(name),
			Inherits:    s.hierarchy.InheritedRoles(name),
		})
	}
	return out
}

// Known reports whether the role exists in the hierarchy.
func (s *Service) Known(role string) bool {
	for _, name := range s.hierarchy.Roles() {
		if name == role {
			return true
		}
	}
	return false
}

// Grants returns the role-level grants for a role.
func (s *Service) Grants(ctx context.Context, role string) ([]rbac.GrantRow, error) {
	return s.store.RoleGrants(ctx, role)
}

// SetGrants replaces the role's grant set and invalidates every cached
// grant map derived from it.
func (s *Service) SetGrants(ctx context.Context, role string, grants []rbac.GrantRow) error {
	if err := s.store.ReplaceRoleGrants(ctx, role, grants); err != nil {
		return err
	}
	s.grants.InvalidateRole(ctx, role)
	return nil
}
