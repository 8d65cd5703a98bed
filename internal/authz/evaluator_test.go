package authz

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcadia-sms/arcadia/internal/audit"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureRecorder) Record(_ context.Context, ev audit.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureRecorder) all() []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]audit.Event(nil), c.events...)
}

func newTestEvaluator(t *testing.T) (*Evaluator, *captureRecorder) {
	t.Helper()
	rec := &captureRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEvaluator(NewRegistry(DefaultConfig()), rec, logger), rec
}

func principal(role Role, branch string) Principal {
	return Principal{ID: "u-1", Role: role, BranchID: branch, Active: true}
}

func TestCanAccessRoleStrictlyGreater(t *testing.T) {
	e, _ := newTestEvaluator(t)

	require.True(t, e.CanAccessRole(RoleSuperAdmin, RoleHQAdmin))
	require.True(t, e.CanAccessRole(RoleBranchAdmin, RoleTeacher))

	// Equal levels deny, so no role can manage its own tier.
	for _, r := range AllRoles() {
		require.False(t, e.CanAccessRole(r, r), "role %s managed itself", r)
	}
	require.False(t, e.CanAccessRole(RoleParent, RoleStudent))
	require.False(t, e.CanAccessRole(RoleTeacher, RoleBranchAdmin))

	// An unknown acting role denies even against level-0 targets.
	require.False(t, e.CanAccessRole(RoleUnknown, RoleUnknown))
	require.False(t, e.CanAccessRole(RoleUnknown, RoleStudent))
}

func TestCheckRoleAccessAuditsEscalation(t *testing.T) {
	e, rec := newTestEvaluator(t)
	ctx := context.Background()

	acc := e.CheckRoleAccess(ctx, principal(RoleBranchAdmin, "b1"), RoleHQAdmin)
	require.False(t, acc.Allowed)
	require.Equal(t, ReasonRoleEscalation, acc.Reason)

	events := rec.all()
	require.Len(t, events, 1)
	require.Equal(t, audit.EventRoleEscalationDenied, events[0].Type)
	require.Equal(t, "u-1", events[0].PrincipalID)

	acc = e.CheckRoleAccess(ctx, principal(RoleHQAdmin, ""), RoleTeacher)
	require.True(t, acc.Allowed)
	require.Len(t, rec.all(), 1, "allowed decision must not audit")
}

func TestCheckResourceAccessCrossBranch(t *testing.T) {
	e, rec := newTestEvaluator(t)
	ctx := context.Background()
	resource := map[string]any{"id": "s-9", "branch_id": "b2", "full_name": "Ana"}

	acc := e.CheckResourceAccess(ctx, principal(RoleBranchAdmin, "b1"), ResourceStudents, resource, ActionRead, nil)
	require.False(t, acc.Allowed)
	require.Equal(t, ReasonCrossBranch, acc.Reason)
	require.Nil(t, acc.Filtered)

	events := rec.all()
	require.Len(t, events, 1)
	require.Equal(t, audit.EventCrossBranchDenied, events[0].Type)
	require.Equal(t, audit.SeverityWarning, events[0].Severity)

	// Organization-wide roles cross branch boundaries freely.
	acc = e.CheckResourceAccess(ctx, principal(RoleHQAdmin, "b1"), ResourceStudents, resource, ActionRead, nil)
	require.True(t, acc.Allowed)
}

func TestCheckResourceAccessBranchCheckPrecedesPermission(t *testing.T) {
	e, _ := newTestEvaluator(t)
	// A teacher without the delete permission, reaching across branches:
	// the denial reason must be the branch, not the missing permission.
	acc := e.CheckResourceAccess(context.Background(), principal(RoleTeacher, "b1"), ResourceStudents,
		map[string]any{"id": "s-1", "branch_id": "b2"}, ActionDelete, nil)
	require.Equal(t, ReasonCrossBranch, acc.Reason)
}

func TestCheckResourceAccessDenyByDefault(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := context.Background()
	resource := map[string]any{"id": "s-1", "branch_id": "b1"}

	inactive := principal(RoleSuperAdmin, "b1")
	inactive.Active = false
	require.Equal(t, ReasonInactive, e.CheckResourceAccess(ctx, inactive, ResourceStudents, resource, ActionRead, nil).Reason)

	require.Equal(t, ReasonUnknownRole, e.CheckResourceAccess(ctx, principal(RoleUnknown, "b1"), ResourceStudents, resource, ActionRead, nil).Reason)

	require.Equal(t, ReasonNoResource, e.CheckResourceAccess(ctx, principal(RoleSuperAdmin, "b1"), ResourceStudents, nil, ActionRead, nil).Reason)

	// Teachers cannot delete students.
	acc := e.CheckResourceAccess(ctx, principal(RoleTeacher, "b1"), ResourceStudents, resource, ActionDelete, nil)
	require.Equal(t, ReasonPermissionDenied, acc.Reason)

	// Unmapped resource/action pairs deny.
	acc = e.CheckResourceAccess(ctx, principal(RoleBranchAdmin, "b1"), ResourceFees, resource, ActionDelete, nil)
	require.Equal(t, ReasonPermissionDenied, acc.Reason)
}

func TestBranchlessSnapshotDeniesScopedRoles(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := context.Background()

	missing := map[string]any{"id": "s-1"}
	acc := e.CheckResourceAccess(ctx, principal(RoleBranchAdmin, "b1"), ResourceStudents, missing, ActionRead, nil)
	require.False(t, acc.Allowed)
	require.Equal(t, ReasonNoResource, acc.Reason)

	// A non-string branch_id is as unusable as a missing one.
	mistyped := map[string]any{"id": "s-1", "branch_id": 42}
	acc = e.CheckResourceAccess(ctx, principal(RoleTeacher, "b1"), ResourceStudents, mistyped, ActionRead, nil)
	require.False(t, acc.Allowed)
	require.Equal(t, ReasonNoResource, acc.Reason)

	// Org-wide roles are not branch constrained and still pass.
	acc = e.CheckResourceAccess(ctx, principal(RoleHQAdmin, ""), ResourceStudents, missing, ActionRead, nil)
	require.True(t, acc.Allowed)
}

func TestSelfAccessException(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := context.Background()

	student := Principal{ID: "u-stu", Role: RoleStudent, BranchID: "b1", Active: true}
	own := map[string]any{"id": "s-1", "branch_id": "b1", "user_id": "u-stu", "full_name": "Ana"}
	other := map[string]any{"id": "s-2", "branch_id": "b1", "user_id": "u-else"}

	require.True(t, e.CheckResourceAccess(ctx, student, ResourceStudents, own, ActionRead, nil).Allowed)
	require.True(t, e.CheckResourceAccess(ctx, student, ResourceStudents, own, ActionUpdate, nil).Allowed)
	require.False(t, e.CheckResourceAccess(ctx, student, ResourceStudents, own, ActionDelete, nil).Allowed)
	require.False(t, e.CheckResourceAccess(ctx, student, ResourceStudents, other, ActionRead, nil).Allowed)

	// Guardians reach records that reference them as parent.
	parent := Principal{ID: "u-par", Role: RoleParent, BranchID: "b1", Active: true}
	child := map[string]any{"id": "s-3", "branch_id": "b1", "user_id": "u-stu", "parent_id": "u-par"}
	require.True(t, e.CheckResourceAccess(ctx, parent, ResourceStudents, child, ActionRead, nil).Allowed)
	require.False(t, e.CheckResourceAccess(ctx, parent, ResourceStudents, other, ActionRead, nil).Allowed)

	// The exception never crosses branches.
	remote := map[string]any{"id": "s-4", "branch_id": "b2", "user_id": "u-stu"}
	require.False(t, e.CheckResourceAccess(ctx, student, ResourceStudents, remote, ActionRead, nil).Allowed)
}

func TestSensitiveFieldFiltering(t *testing.T) {
	e, _ := newTestEvaluator(t)
	ctx := context.Background()
	student := map[string]any{"id": "s-1", "branch_id": "b1", "full_name": "Ana", "medical_info": "asthma"}

	// Teachers are entitled to medical information.
	acc := e.CheckResourceAccess(ctx, principal(RoleTeacher, "b1"), ResourceStudents, student, ActionRead, nil)
	require.True(t, acc.Allowed)
	require.Equal(t, "asthma", acc.Filtered["medical_info"])

	// Accountants hold students.view but are not entitled to it.
	acc = e.CheckResourceAccess(ctx, principal(RoleAccountant, "b1"), ResourceStudents, student, ActionRead, nil)
	require.True(t, acc.Allowed)
	require.NotContains(t, acc.Filtered, "medical_info")
	require.Equal(t, "Ana", acc.Filtered["full_name"])

	staff := map[string]any{"id": "st-1", "branch_id": "b1", "name": "Mr. Diaz", "salary": int64(5000), "bank_account": "xx-1"}

	acc = e.CheckResourceAccess(ctx, principal(RoleBranchAdmin, "b1"), ResourceStaff, staff, ActionRead, nil)
	require.True(t, acc.Allowed)
	require.NotContains(t, acc.Filtered, "salary")
	require.NotContains(t, acc.Filtered, "bank_account")

	acc = e.CheckResourceAccess(ctx, principal(RoleHQAdmin, ""), ResourceStaff, staff, ActionRead, nil)
	require.True(t, acc.Allowed)
	require.Equal(t, int64(5000), acc.Filtered["salary"])
}

func TestRequestedFieldsNarrowResponse(t *testing.T) {
	e, _ := newTestEvaluator(t)
	student := map[string]any{"id": "s-1", "branch_id": "b1", "full_name": "Ana", "medical_info": "asthma"}

	acc := e.CheckResourceAccess(context.Background(), principal(RoleAccountant, "b1"), ResourceStudents, student,
		ActionRead, []string{"full_name", "medical_info", "nonexistent"})
	require.True(t, acc.Allowed)
	// Selection intersects the resource and the restriction still applies.
	require.Equal(t, map[string]any{"full_name": "Ana"}, acc.Filtered)

	// An entitled role asking for the restricted field gets it.
	acc = e.CheckResourceAccess(context.Background(), principal(RoleTeacher, "b1"), ResourceStudents, student,
		ActionRead, []string{"full_name", "medical_info"})
	require.True(t, acc.Allowed)
	require.Equal(t, map[string]any{"full_name": "Ana", "medical_info": "asthma"}, acc.Filtered)
}

func TestFilteringDoesNotMutateResource(t *testing.T) {
	e, _ := newTestEvaluator(t)
	student := map[string]any{"id": "s-1", "branch_id": "b1", "medical_info": "asthma"}

	acc := e.CheckResourceAccess(context.Background(), principal(RoleAccountant, "b1"), ResourceStudents, student, ActionRead, nil)
	require.True(t, acc.Allowed)
	require.Equal(t, "asthma", student["medical_info"], "source snapshot must stay intact")
	require.NotContains(t, acc.Filtered, "medical_info")
}
