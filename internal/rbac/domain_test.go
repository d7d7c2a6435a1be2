package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantKeyNormalize(t *testing.T) {
	key := GrantKey{Module: ModuleRooms}.Normalize()
	assert.Equal(t, ResourceAny, key.Resource)
	assert.Equal(t, ActionRead, key.Action)

	key = GrantKey{Module: ModuleRooms, Resource: "101", Action: ActionWrite}.Normalize()
	assert.Equal(t, Resource("101"), key.Resource)
	assert.Equal(t, ActionWrite, key.Action)
}

func TestGrantKeyValidate(t *testing.T) {
	assert.NoError(t, GrantKey{Module: ModuleRooms, Resource: ResourceAny, Action: ActionRead}.Validate())
	assert.ErrorIs(t, GrantKey{Resource: ResourceAny, Action: ActionRead}.Validate(), ErrMalformedKey)
	assert.ErrorIs(t, GrantKey{Module: "  ", Resource: ResourceAny, Action: ActionRead}.Validate(), ErrMalformedKey)
}

func TestGrantKeyStringRoundTrip(t *testing.T) {
	key := GrantKey{Module: ModuleFinance, Resource: "invoices", Action: ActionExport}
	require.Equal(t, "finance|invoices|export", key.String())

	parsed, err := ParseGrantKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParseGrantKey("finance|invoices")
	assert.ErrorIs(t, err, ErrMalformedKey)
	_, err = ParseGrantKey("||read")
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestActorIsSuperAdmin(t *testing.T) {
	assert.True(t, Actor{Role: RoleSuperAdmin}.IsSuperAdmin())
	assert.False(t, Actor{Role: "general_manager"}.IsSuperAdmin())
}
