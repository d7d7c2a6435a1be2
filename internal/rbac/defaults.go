package rbac

// Static per-role default grants. These answer two situations: a key the
// loaded grant map says nothing about, and a grant store that cannot be
// reached at all. They encode the minimum each role needs to do its job
// and are deliberately conservative about anything outside it.
var roleDefaults = map[string]GrantSet{
	"general_manager": {
		{ModuleBookings, ResourceAny, ActionRead}:  true,
		{ModuleBookings, ResourceAny, ActionWrite}: true,
		{ModuleRooms, ResourceAny, ActionRead}:     true,
		{ModuleRooms, ResourceAny, ActionWrite}:    true,
		{ModuleStaff, ResourceAny, ActionRead}:     true,
		{ModuleStaff, ResourceAny, ActionWrite}:    true,
		{ModuleGuests, ResourceAny, ActionRead}:    true,
		{ModuleGuests, ResourceAny, ActionWrite}:   true,
		{ModuleFinance, ResourceAny, ActionRead}:   true,
		{ModuleReports, ResourceAny, ActionRead}:   true,
		{ModuleReports, ResourceAny, ActionExport}: true,
		{ModuleAudit, ResourceAny, ActionRead}:     true,
	},
	"operations_manager": {
		{ModuleBookings, ResourceAny, ActionRead}:  true,
		{ModuleBookings, ResourceAny, ActionWrite}: true,
		{ModuleRooms, ResourceAny, ActionRead}:     true,
		{ModuleRooms, ResourceAny, ActionWrite}:    true,
		{ModuleGuests, ResourceAny, ActionRead}:    true,
		{ModuleGuests, ResourceAny, ActionWrite}:   true,
		{ModuleStaff, ResourceAny, ActionRead}:     true,
		{ModuleReports, ResourceAny, ActionRead}:   true,
	},
	"finance_manager": {
		{ModuleFinance, ResourceAny, ActionRead}:   true,
		{ModuleFinance, ResourceAny, ActionWrite}:  true,
		{ModuleFinance, ResourceAny, ActionExport}: true,
		{ModuleBookings, ResourceAny, ActionRead}:  true,
		{ModuleReports, ResourceAny, ActionRead}:   true,
		{ModuleReports, ResourceAny, ActionExport}: true,
	},
	"front_desk": {
		{ModuleBookings, ResourceAny, ActionRead}:  true,
		{ModuleBookings, ResourceAny, ActionWrite}: true,
		{ModuleGuests, ResourceAny, ActionRead}:    true,
		{ModuleGuests, ResourceAny, ActionWrite}:   true,
		{ModuleRooms, ResourceAny, ActionRead}:     true,
	},
	"housekeeping": {
		{ModuleRooms, ResourceAny, ActionRead}:              true,
		{ModuleRooms, Resource("room_status"), ActionWrite}: true,
	},
	"accountant": {
		{ModuleFinance, ResourceAny, ActionRead}: true,
		{ModuleReports, ResourceAny, ActionRead}: true,
	},
}

// DefaultGrants returns the static fallback grant set for a role. The
// result is a copy; unknown roles get an empty set.
func DefaultGrants(role string) GrantSet {
	defaults, ok := roleDefaults[role]
	if !ok {
		return GrantSet{}
	}
	return defaults.Clone()
}
