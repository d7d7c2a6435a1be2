package rbac

import (
	"fmt"
	"sort"
)

// Hierarchy maps each role to the set of roles whose grants it inherits.
// It is built once at startup and never mutated afterwards, so lookups
// need no synchronisation.
type Hierarchy struct {
	inherited map[string][]string
}

// NewHierarchy flattens the direct-inheritance table into its transitive
// closure. A cyclic table is rejected: the original console would have
// looped forever on one, so a cycle here is always a configuration bug.
func NewHierarchy(direct map[string][]string) (*Hierarchy, error) {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(direct))
	closure := make(map[string][]string, len(direct))

	var visit func(role string) ([]string, error)
	visit = func(role string) ([]string, error) {
		switch state[role] {
		case visiting:
			return nil, fmt.Errorf("rbac: role hierarchy cycle through %q", role)
		case done:
			return closure[role], nil
		}
		state[role] = visiting

		seen := make(map[string]struct{})
		for _, parent := range direct[role] {
			if parent == role {
				return nil, fmt.Errorf("rbac: role %q inherits itself", role)
			}
			seen[parent] = struct{}{}
			transitive, err := visit(parent)
			if err != nil {
				return nil, err
			}
			for _, r := range transitive {
				if r == role {
					return nil, fmt.Errorf("rbac: role hierarchy cycle through %q", role)
				}
				seen[r] = struct{}{}
			}
		}

		flat := make([]string, 0, len(seen))
		for r := range seen {
			flat = append(flat, r)
		}
		sort.Strings(flat)
		closure[role] = flat
		state[role] = done
		return flat, nil
	}

	for role := range direct {
		if _, err := visit(role); err != nil {
			return nil, err
		}
	}
	return &Hierarchy{inherited: closure}, nil
}

// InheritedRoles returns the roles the given role inherits grants from,
// excluding the role itself. Unknown roles inherit nothing; the function
// is total over all string inputs.
func (h *Hierarchy) InheritedRoles(role string) []string {
	if h == nil {
		return nil
	}
	flat, ok := h.inherited[role]
	if !ok {
		return nil
	}
	out := make([]string, len(flat))
	copy(out, flat)
	return out
}

// Roles lists every role known to the hierarchy in sorted order.
func (h *Hierarchy) Roles() []string {
	if h == nil {
		return nil
	}
	roles := make([]string, 0, len(h.inherited))
	for r := range h.inherited {
		roles = append(roles, r)
	}
	sort.Strings(roles)
	return roles
}

// DefaultHierarchy is the hotel role tree shipped with the console.
// super_admin is deliberately absent: it never consults grants.
func DefaultHierarchy() *Hierarchy {
	h, err := NewHierarchy(map[string][]string{
		"general_manager":    {"operations_manager", "finance_manager"},
		"operations_manager": {"front_desk", "housekeeping"},
		"finance_manager":    {"accountant"},
		"front_desk":         nil,
		"housekeeping":       nil,
		"accountant":         nil,
	})
	if err != nil {
		// The static table above is acyclic; reaching this is a programming error.
		panic(err)
	}
	return h
}
