package identity

import "fmt"

// Role is the closed set of organisation-wide roles. A role grants
// capability; the team/department assignment relations grant scope. The two
// are deliberately orthogonal: a user may hold the manager role without
// being assigned to manage any team.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RolePartner Role = "partner"
	RoleAdmin   Role = "admin"
)

// ParseRole converts a stored role string to a Role, rejecting anything
// outside the closed set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleManager, RolePartner, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string {
	return string(r)
}

// CanSetGoals reports whether the role may create goals at all; whether a
// particular target scope is allowed is decided by the access engine.
func (r Role) CanSetGoals() bool {
	switch r {
	case RoleManager, RolePartner, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanReview reports whether the role may ever review CPD entries.
// Scope eligibility is checked per entry.
func (r Role) CanReview() bool {
	switch r {
	case RoleManager, RolePartner, RoleAdmin:
		return true
	default:
		return false
	}
}
