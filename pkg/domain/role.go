package domain

// Role is the authenticated caller's capacity. The core trusts it verbatim
// from the identity collaborator.
type Role string

const (
	RoleParent   Role = "parent"
	RoleMairie   Role = "mairie"
	RoleHospital Role = "hospital"
)

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return r == RoleParent || r == RoleMairie || r == RoleHospital
}

// Actor is the authenticated (userId, role) pair every operation receives.
type Actor struct {
	UserID UserID
	Role   Role
}

// Is reports whether the actor holds the given role.
func (a Actor) Is(role Role) bool {
	return a.Role == role
}
