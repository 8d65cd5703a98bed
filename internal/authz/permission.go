package authz

// Permission is an atomic capability a role may hold.
type Permission string

// School platform permissions.
const (
	PermStudentsView   Permission = "students.view"
	PermStudentsCreate Permission = "students.create"
	PermStudentsEdit   Permission = "students.edit"
	PermStudentsDelete Permission = "students.delete"

	PermStaffView   Permission = "staff.view"
	PermStaffCreate Permission = "staff.create"
	PermStaffEdit   Permission = "staff.edit"
	PermStaffDelete Permission = "staff.delete"

	PermClassesView Permission = "classes.view"
	PermClassesEdit Permission = "classes.edit"

	PermAttendanceView Permission = "attendance.view"
	PermAttendanceEdit Permission = "attendance.edit"

	PermExamsView Permission = "exams.view"
	PermExamsEdit Permission = "exams.edit"

	PermFeesView Permission = "fees.view"
	PermFeesEdit Permission = "fees.edit"

	PermPaymentsView Permission = "payments.view"
	PermPaymentsEdit Permission = "payments.edit"

	PermDisciplineView Permission = "discipline.view"
	PermDisciplineEdit Permission = "discipline.edit"

	PermInventoryView Permission = "inventory.view"
	PermInventoryEdit Permission = "inventory.edit"

	PermReportsView      Permission = "reports.view"
	PermReportsFinancial Permission = "reports.financial"

	PermUsersManage Permission = "users.manage"
	PermRolesManage Permission = "roles.manage"
)

// AllPermissions returns the full permission enumeration. The top role's
// grant is built from this union so new permissions cannot drift out of it.
func AllPermissions() []Permission {
	return []Permission{
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
		PermUsersManage, PermRolesManage,
	}
}

// ResourceType names a domain entity class for authorization purposes.
type ResourceType string

const (
	ResourceStudents   ResourceType = "students"
	ResourceStaff      ResourceType = "staff"
	ResourceClasses    ResourceType = "classes"
	ResourceAttendance ResourceType = "attendance"
	ResourceExams      ResourceType = "exams"
	ResourceFees       ResourceType = "fees"
	ResourcePayments   ResourceType = "payments"
	ResourceDiscipline ResourceType = "discipline"
	ResourceInventory  ResourceType = "inventory"
)

// Action is a CRUD verb applied to a resource type.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
