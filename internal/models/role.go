package models

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
	RoleGuest UserRole = "guest"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// Actor is the identity invoking an operation. It is passed explicitly into every
// service call.
type Actor struct {
	ID   string
	Role UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsRegistered reports whether the actor may create bookings and profiles.
func (a Actor) IsRegistered() bool {
	return a.ID != "" && (a.Role == RoleUser || a.Role == RoleAdmin)
}

func Anonymous() Actor {
	return Actor{Role: RoleGuest}
}
