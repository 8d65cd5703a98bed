package authz

// SensitiveField classifies one field of a resource type as restricted, with
// the roles entitled to read it.
type SensitiveField struct {
	Name     string
	Entitled []Role
}

// Config is the static authorization table loaded at process start. It is
// data, not behavior: the Registry built from it is never mutated afterwards.
type Config struct {
	// Grants maps each role to its permission set.
	Grants map[Role][]Permission
	// Levels maps each role to its hierarchy level. Roles absent from the
	// map sit at level 0.
	Levels map[Role]int
	// OrgWide lists roles exempt from branch scoping.
	OrgWide []Role
	// SelfAccess lists roles covered by the self/guardian read exception.
	SelfAccess []Role
	// Actions maps (resource type, action) to the permission it requires.
	// The mapping is explicit configuration; nothing is inferred from names.
	Actions map[ResourceType]map[Action]Permission
	// Sensitive lists restricted fields per resource type. Resource types
	// absent from the map have no restricted fields.
	Sensitive map[ResourceType][]SensitiveField
}

// DefaultConfig returns the built-in authorization tables.
func DefaultConfig() Config {
	return Config{
		Grants: map[Role][]Permission{
			// The top role holds the whole enumeration by construction.
			RoleSuperAdmin: AllPermissions(),
			RoleHQAdmin: {
				PermStudentsView, PermStudentsCreate, PermStudentsEdit, PermStudentsDelete,
				PermStaffView, PermStaffCreate, PermStaffEdit, PermStaffDelete,
				PermClassesView, PermClassesEdit,
				PermAttendanceView, PermAttendanceEdit,
				PermExamsView, PermExamsEdit,
				PermFeesView, PermFeesEdit,
				PermPaymentsView, PermPaymentsEdit,
				PermDisciplineView, PermDisciplineEdit,
				PermInventoryView, PermInventoryEdit,
				PermReportsView, PermReportsFinancial,
				PermUsersManage,
			},
			RoleBranchAdmin: {
				PermStudentsView, PermStudentsCreate, PermStudentsEdit, PermStudentsDelete,
				PermStaffView, PermStaffCreate, PermStaffEdit,
				PermClassesView, PermClassesEdit,
				PermAttendanceView, PermAttendanceEdit,
				PermExamsView, PermExamsEdit,
				PermFeesView,
				PermDisciplineView, PermDisciplineEdit,
				PermInventoryView, PermInventoryEdit,
				PermReportsView,
				PermUsersManage,
			},
			RoleRegistrar: {
				PermStudentsView, PermStudentsCreate, PermStudentsEdit,
				PermClassesView, PermClassesEdit,
				PermAttendanceView,
				PermExamsView,
			},
			RoleAccountant: {
				PermStudentsView,
				PermFeesView, PermFeesEdit,
				PermPaymentsView, PermPaymentsEdit,
				PermReportsView, PermReportsFinancial,
			},
			RoleTeacher: {
				PermStudentsView,
				PermClassesView,
				PermAttendanceView, PermAttendanceEdit,
				PermExamsView, PermExamsEdit,
				PermDisciplineView, PermDisciplineEdit,
			},
			// Parents and students reach their own records through the
			// self-access exception, not through broad grants.
			RoleParent:  {},
			RoleStudent: {},
		},
		Levels: map[Role]int{
			RoleSuperAdmin:  100,
			RoleHQAdmin:     90,
			RoleBranchAdmin: 70,
			RoleRegistrar:   60,
			RoleAccountant:  50,
			RoleTeacher:     30,
			RoleParent:      10,
			RoleStudent:     10,
		},
		OrgWide:    []Role{RoleSuperAdmin, RoleHQAdmin},
		SelfAccess: []Role{RoleParent, RoleStudent},
		Actions: map[ResourceType]map[Action]Permission{
			ResourceStudents: {
				ActionCreate: PermStudentsCreate,
				ActionRead:   PermStudentsView,
				ActionUpdate: PermStudentsEdit,
				ActionDelete: PermStudentsDelete,
			},
			ResourceStaff: {
				ActionCreate: PermStaffCreate,
				ActionRead:   PermStaffView,
				ActionUpdate: PermStaffEdit,
				ActionDelete: PermStaffDelete,
			},
			ResourceClasses: {
				ActionRead:   PermClassesView,
				ActionCreate: PermClassesEdit,
				ActionUpdate: PermClassesEdit,
				ActionDelete: PermClassesEdit,
			},
			ResourceAttendance: {
				ActionRead:   PermAttendanceView,
				ActionCreate: PermAttendanceEdit,
				ActionUpdate: PermAttendanceEdit,
			},
			ResourceExams: {
				ActionRead:   PermExamsView,
				ActionCreate: PermExamsEdit,
				ActionUpdate: PermExamsEdit,
				ActionDelete: PermExamsEdit,
			},
			ResourceFees: {
				ActionRead:   PermFeesView,
				ActionCreate: PermFeesEdit,
				ActionUpdate: PermFeesEdit,
			},
			ResourcePayments: {
				ActionRead:   PermPaymentsView,
				ActionCreate: PermPaymentsEdit,
				ActionUpdate: PermPaymentsEdit,
			},
			ResourceDiscipline: {
				ActionRead:   PermDisciplineView,
				ActionCreate: PermDisciplineEdit,
				ActionUpdate: PermDisciplineEdit,
			},
			ResourceInventory: {
				ActionRead:   PermInventoryView,
				ActionCreate: PermInventoryEdit,
				ActionUpdate: PermInventoryEdit,
				ActionDelete: PermInventoryEdit,
			},
		},
		Sensitive: map[ResourceType][]SensitiveField{
			ResourceStudents: {
				// Teachers are entitled to medical information for safety.
				{Name: "medical_info", Entitled: []Role{RoleSuperAdmin, RoleHQAdmin, RoleBranchAdmin, RoleTeacher}},
			},
			ResourceStaff: {
				// Compensation data is restricted to organization-wide admins.
				{Name: "salary", Entitled: []Role{RoleSuperAdmin, RoleHQAdmin}},
				{Name: "bank_account", Entitled: []Role{RoleSuperAdmin, RoleHQAdmin}},
			},
		},
	}
}

// Registry is the immutable role/permission lookup table shared by all
// requests. Construct it once with NewRegistry; its methods never fail and
// degrade to "no permission" for unknown input.
type Registry struct {
	grants     map[Role]map[Permission]struct{}
	levels     map[Role]int
	orgWide    map[Role]struct{}
	selfAccess map[Role]struct{}
	actions    map[ResourceType]map[Action]Permission
	sensitive  map[ResourceType][]sensitiveEntry
}

type sensitiveEntry struct {
	name     string
	entitled map[Role]struct{}
}

// NewRegistry builds a Registry from the given configuration.
func NewRegistry(cfg Config) *Registry {
	reg := &Registry{
		grants:     make(map[Role]map[Permission]struct{}, len(cfg.Grants)),
		levels:     make(map[Role]int, len(cfg.Levels)),
		orgWide:    make(map[Role]struct{}, len(cfg.OrgWide)),
		selfAccess: make(map[Role]struct{}, len(cfg.SelfAccess)),
		actions:    make(map[ResourceType]map[Action]Permission, len(cfg.Actions)),
		sensitive:  make(map[ResourceType][]sensitiveEntry, len(cfg.Sensitive)),
	}
	for role, perms := range cfg.Grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		reg.grants[role] = set
	}
	for role, level := range cfg.Levels {
		reg.levels[role] = level
	}
	for _, role := range cfg.OrgWide {
		reg.orgWide[role] = struct{}{}
	}
	for _, role := range cfg.SelfAccess {
		reg.selfAccess[role] = struct{}{}
	}
	for rt, byAction := range cfg.Actions {
		m := make(map[Action]Permission, len(byAction))
		for action, perm := range byAction {
			m[action] = perm
		}
		reg.actions[rt] = m
	}
	for rt, fields := range cfg.Sensitive {
		entries := make([]sensitiveEntry, 0, len(fields))
		for _, f := range fields {
			entitled := make(map[Role]struct{}, len(f.Entitled))
			for _, r := range f.Entitled {
				entitled[r] = struct{}{}
			}
			entries = append(entries, sensitiveEntry{name: f.Name, entitled: entitled})
		}
		reg.sensitive[rt] = entries
	}
	return reg
}

// PermissionsFor returns a copy of the permission set configured for role.
// Unknown roles get an empty set.
func (r *Registry) PermissionsFor(role Role) []Permission {
	set, ok := r.grants[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms
}

// Grants reports whether role holds the given permission.
func (r *Registry) Grants(role Role, perm Permission) bool {
	set, ok := r.grants[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// HierarchyLevel returns the configured level for role, 0 for unknown roles.
func (r *Registry) HierarchyLevel(role Role) int {
	return r.levels[role]
}

// IsOrgWide reports whether role is exempt from branch scoping.
func (r *Registry) IsOrgWide(role Role) bool {
	_, ok := r.orgWide[role]
	return ok
}

// IsSelfAccess reports whether role is covered by the self/guardian exception.
func (r *Registry) IsSelfAccess(role Role) bool {
	_, ok := r.selfAccess[role]
	return ok
}

// PermissionFor resolves the permission required for an action on a resource
// type. The second return is false when no mapping is configured.
func (r *Registry) PermissionFor(rt ResourceType, action Action) (Permission, bool) {
	byAction, ok := r.actions[rt]
	if !ok {
		return "", false
	}
	perm, ok := byAction[action]
	return perm, ok
}

// SensitiveFields returns the restricted field names configured for a
// resource type that the given role is NOT entitled to see.
func (r *Registry) SensitiveFields(rt ResourceType, role Role) []string {
	entries, ok := r.sensitive[rt]
	if !ok {
		return nil
	}
	var blocked []string
	for _, e := range entries {
		if _, entitled := e.entitled[role]; !entitled {
			blocked = append(blocked, e.name)
		}
	}
	return blocked
}
