package auth

import "time"

// User represents a staff account in the console.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is the persisted record backing one login. A user has at most
// one active session: creating a new one deactivates the rest.
type Session struct {
	Token        string
	UserID       int64
	IP           string
	UserAgent    string
	CreatedAt    time.Time
	LastActivity time.Time
	IsActive     bool
}

// SessionRecord joins a session row with the owning user's account state,
// which the guard re-validates on every request.
type SessionRecord struct {
	Session
	Role       string
	UserActive bool
}

// SessionState describes where a session token is in its lifecycle.
// Expired, Hijacked, and LoggedOut are terminal for the token.
type SessionState string

// Session lifecycle states.
const (
	StateAnonymous     SessionState = "anonymous"
	StateAuthenticated SessionState = "authenticated"
	StateExpired       SessionState = "expired"
	StateHijacked      SessionState = "hijacked"
	StateLoggedOut     SessionState = "logged_out"
)
