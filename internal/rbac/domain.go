package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Module identifies a functional area of the property-management console.
type Module string

// Modules gated by the permission engine.
const (
	ModuleBookings Module = "bookings"
	ModuleRooms    Module = "rooms"
	ModuleStaff    Module = "staff"
	ModuleGuests   Module = "guests"
	ModuleFinance  Module = "finance"
	ModuleReports  Module = "reports"
	ModuleUsers    Module = "users"
	ModuleRoles    Module = "roles"
	ModuleAudit    Module = "audit"
	ModuleSettings Module = "settings"
)

// Action is the operation an actor wants to perform on a resource.
type Action string

// Actions recognised by the permission engine.
const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
)

// Resource names a concrete entity within a module, or matches everything
// via ResourceAny.
type Resource string

// ResourceAny is the wildcard resource matching any concrete name.
const ResourceAny Resource = "*"

// IsWildcard reports whether the resource matches any name.
func (r Resource) IsWildcard() bool {
	return r == ResourceAny
}

// RoleSuperAdmin bypasses grant lookup entirely; every check allows.
const RoleSuperAdmin = "super_admin"

// GrantKey addresses a single permission decision.
type GrantKey struct {
	Module   Module
	Resource Resource
	Action   Action
}

// ErrMalformedKey indicates a grant key missing a required part.
var ErrMalformedKey = errors.New("rbac: malformed grant key")

// Normalize fills the documented defaults: empty resource means the
// wildcard, empty action means read.
func (k GrantKey) Normalize() GrantKey {
	if k.Resource == "" {
		k.Resource = ResourceAny
	}
	if k.Action == "" {
		k.Action = ActionRead
	}
	return k
}

// Validate reports whether the key can be evaluated at all. A key without
// a module resolves to deny downstream, never to an error.
func (k GrantKey) Validate() error {
	if strings.TrimSpace(string(k.Module)) == "" {
		return ErrMalformedKey
	}
	if strings.TrimSpace(string(k.Action)) == "" {
		return ErrMalformedKey
	}
	return nil
}

// String renders the key in the "module|resource|action" cache encoding.
func (k GrantKey) String() string {
	return string(k.Module) + "|" + string(k.Resource) + "|" + string(k.Action)
}

// ParseGrantKey is the inverse of String.
func ParseGrantKey(s string) (GrantKey, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return GrantKey{}, fmt.Errorf("rbac: parse grant key %q: %w", s, ErrMalformedKey)
	}
	key := GrantKey{Module: Module(parts[0]), Resource: Resource(parts[1]), Action: Action(parts[2])}
	if err := key.Validate(); err != nil {
		return GrantKey{}, err
	}
	return key, nil
}

// GrantSet is a flattened map of permission decisions for one actor.
type GrantSet map[GrantKey]bool

// Clone returns an independent copy so callers cannot mutate cached state.
func (g GrantSet) Clone() GrantSet {
	out := make(GrantSet, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// Actor is the authenticated principal a permission query runs against.
type Actor struct {
	ID           int64
	Role         string
	SessionToken string
}

// IsSuperAdmin reports whether grant lookup is bypassed for this actor.
func (a Actor) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}
