package editor

import "strings"

// Roles understood by the default capability oracle. "consumer" is a legacy
// alias for "user" and is normalized away before any check.
const (
	RoleGuest   = "guest"
	RoleUser    = "user"
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

// Capability is the answer a host gives about a role.
type Capability struct {
	CanEdit   bool
	CanBrowse bool
}

// CapabilityOracle decides what a role may do. Hosts inject their own; the
// core consults it before every mutating intent and silently drops denied
// ones.
type CapabilityOracle func(role string) Capability

// NormalizeRole trims, lowercases, and resolves aliases. Roles are always
// compared in this form.
func NormalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "consumer" {
		return RoleUser
	}
	return r
}

// DefaultOracle is the built-in role policy: creators and admins edit,
// every known role (including guests) browses the marketplace.
func DefaultOracle(role string) Capability {
	switch NormalizeRole(role) {
	case RoleCreator, RoleAdmin:
		return Capability{CanEdit: true, CanBrowse: true}
	case RoleGuest, RoleUser:
		return Capability{CanBrowse: true}
	default:
		return Capability{}
	}
}
