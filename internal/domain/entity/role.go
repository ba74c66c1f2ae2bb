package entity

import "github.com/google/uuid"

// Role names carried in the bearer token
const (
	RoleReception  = "reception"
	RoleMedication = "medication"
	RoleDoctor     = "doctor"
)

// Actor is the authenticated identity injected into every mutating call
type Actor struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleReception, RoleMedication, RoleDoctor:
		return true
	}
	return false
}
