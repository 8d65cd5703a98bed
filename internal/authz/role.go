package authz

import "strings"

// Role identifies a category of principal. The enumeration is closed: every
// value that is not produced by ParseRole or listed below behaves exactly like
// RoleUnknown (no permissions, hierarchy level 0).
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleHQAdmin     Role = "hq_admin"
	RoleBranchAdmin Role = "branch_admin"
	RoleRegistrar   Role = "registrar"
	RoleAccountant  Role = "accountant"
	RoleTeacher     Role = "teacher"
	RoleParent      Role = "parent"
	RoleStudent     Role = "student"

	// RoleUnknown is the explicit deny-by-default variant for unrecognized
	// role values.
	RoleUnknown Role = ""
)

// AllRoles returns every concrete role, highest hierarchy first.
func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleHQAdmin,
		RoleBranchAdmin,
		RoleRegistrar,
		RoleAccountant,
		RoleTeacher,
		RoleParent,
		RoleStudent,
	}
}

// roleAliases maps legacy spellings kept for data recorded before role values
// were normalized.
var roleAliases = map[string]Role{
	"superadmin":         RoleSuperAdmin,
	"headquarters_admin": RoleHQAdmin,
	"hq":                 RoleHQAdmin,
	"branchadmin":        RoleBranchAdmin,
}

// ParseRole maps a raw role string to its canonical Role. Unrecognized,
// empty, or malformed input yields RoleUnknown; normalization happens here at
// the boundary so internal comparisons stay exact.
func ParseRole(raw string) Role {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return RoleUnknown
	}
	candidate := Role(normalized)
	for _, r := range AllRoles() {
		if candidate == r {
			return r
		}
	}
	if alias, ok := roleAliases[normalized]; ok {
		return alias
	}
	return RoleUnknown
}
