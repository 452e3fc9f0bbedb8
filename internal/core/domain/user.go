// internal/core/domain/user.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role represents a user role. The set is closed: any string outside
// these four constants is rejected at the boundary.
type Role string

// Role constants
const (
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
	RoleBloodBank Role = "blood_bank"
	RoleAdmin     Role = "admin"
)

// ParseRole converts a raw string into a Role, rejecting unknown values
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDonor, RoleRecipient, RoleBloodBank, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanSubmitRequest reports whether the role may submit blood requests
func (r Role) CanSubmitRequest() bool {
	return r == RoleRecipient || r == RoleAdmin
}

// CanReviewRequests reports whether the role may approve or deny requests
func (r Role) CanReviewRequests() bool {
	return r == RoleBloodBank || r == RoleAdmin
}

// User represents a platform account of any role
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	BloodType BloodGroup `json:"blood_type,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Location  string     `json:"location,omitempty"`
	Active    bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// Session is the authenticated identity for one request. It is resolved
// once from the bearer token at the HTTP boundary and carried in the
// request context; nothing downstream re-parses tokens or role strings.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	Name      string    `json:"name"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the session is usable at the given instant
func (s *Session) Valid(now time.Time) bool {
	return s.UserID != uuid.Nil && s.Role != "" && now.Before(s.ExpiresAt)
}
