package authz

// Principal is the authenticated caller for the duration of one request. It
// is constructed at login (or token resolution) and treated as immutable.
type Principal struct {
	ID       string
	Role     Role
	BranchID string // empty for organization-wide roles
	Active   bool
}
