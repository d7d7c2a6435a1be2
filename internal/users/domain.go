package users

import "time"

// User is a staff account as seen by the management screens. The
// password hash never leaves the repository layer.
type User struct {
	ID        int64
	Email     string
	Name      string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
