package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleChef   Role = "CHEF"
	RoleViewer Role = "VIEWER"

	// RolePeriodic may only run periodic stock checks, besides reading.
	RolePeriodic Role = "VERIFICATIONPERIODIQUE"
)

var Roles = []Role{RoleAdmin, RoleChef, RoleViewer, RolePeriodic}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}

	return false
}

// CanManageEvents reports whether the role may create events, verify items and load kits.
func (r Role) CanManageEvents() bool {
	return r == RoleAdmin || r == RoleChef
}

// CanCheckStock reports whether the role may run periodic stock checks.
func (r Role) CanCheckStock() bool {
	return r.CanManageEvents() || r == RolePeriodic
}

type User struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPatch carries the optional fields of an admin user update.
type UserPatch struct {
	Password *string
	Role     *Role
	Active   *bool
}
