package session

import "time"

// Role values recognised by the route guards.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Session is the locally held proof of an authenticated identity. The four
// identity fields always come from a single login or registration response
// and are persisted together.
type Session struct {
	Token        string
	Email        string
	Organisation string
	Role         string
	Name         string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// IsAdmin reports whether the session may pass the admin route guard.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
