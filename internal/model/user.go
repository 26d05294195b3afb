package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleUser         UserRole = "user"
	RoleReceptionist UserRole = "receptionist"
	RoleAdmin        UserRole = "admin"
)

// IsStaff reports whether the role carries receptionist/admin privileges.
func (r UserRole) IsStaff() bool {
	return r == RoleReceptionist || r == RoleAdmin
}

// User is the reduced account record this service reads. Credentials and
// account lifecycle live in the auth service.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Role      UserRole  `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Actor identifies the authenticated caller of a workflow operation.
type Actor struct {
	ID   uuid.UUID
	Role UserRole
}
