package authz

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arcadia-sms/arcadia/internal/audit"
)

// Denial reasons surfaced to callers.
const (
	ReasonCrossBranch      = "cross-branch access denied"
	ReasonRoleEscalation   = "role escalation denied"
	ReasonPermissionDenied = "permission denied"
	ReasonInactive         = "principal inactive"
	ReasonUnknownRole      = "unknown role"
	ReasonNoResource       = "resource unavailable"
)

// Access is the outcome of a resource authorization check. Denials are
// values, never errors, so a caller cannot mistake a failure for "allowed".
type Access struct {
	Allowed  bool
	Filtered map[string]any
	Reason   string
}

func deny(reason string) Access {
	return Access{Reason: reason}
}

// Evaluator answers authorization questions against an immutable Registry.
// It is read-only after construction and safe for concurrent use.
type Evaluator struct {
	reg    *Registry
	audit  audit.Recorder
	logger *slog.Logger
}

// NewEvaluator builds an Evaluator. The recorder may be nil, in which case
// security events are only logged.
func NewEvaluator(reg *Registry, recorder audit.Recorder, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{reg: reg, audit: recorder, logger: logger}
}

// Registry exposes the underlying lookup table.
func (e *Evaluator) Registry() *Registry {
	return e.reg
}

// HasPermission reports whether role holds perm. Unknown, empty, or
// malformed role values resolve to false; the call never fails.
func (e *Evaluator) HasPermission(role Role, perm Permission) bool {
	return e.reg.Grants(role, perm)
}

// HasRoleLevel reports whether role sits at or above the required hierarchy
// level.
func (e *Evaluator) HasRoleLevel(role Role, requiredLevel int) bool {
	return e.reg.HierarchyLevel(role) >= requiredLevel
}

// CanAccessRole reports whether actingRole may administer accounts of
// targetRole. The acting level must be strictly greater, so no role can
// manage peers or itself.
func (e *Evaluator) CanAccessRole(actingRole, targetRole Role) bool {
	if actingRole == RoleUnknown {
		return false
	}
	return e.reg.HierarchyLevel(actingRole) > e.reg.HierarchyLevel(targetRole)
}

// CheckRoleAccess evaluates whether p may administer an account of
// targetRole, emitting an audit event on refusal.
func (e *Evaluator) CheckRoleAccess(ctx context.Context, p Principal, targetRole Role) Access {
	if !p.Active {
		return deny(ReasonInactive)
	}
	if e.CanAccessRole(p.Role, targetRole) {
		return Access{Allowed: true}
	}
	e.emit(ctx, audit.Event{
		Type:        audit.EventRoleEscalationDenied,
		PrincipalID: p.ID,
		Role:        string(p.Role),
		Action:      "manage_role",
		Detail:      fmt.Sprintf("target role %q at level %d, acting level %d", targetRole, e.reg.HierarchyLevel(targetRole), e.reg.HierarchyLevel(p.Role)),
		Severity:    audit.SeverityWarning,
	})
	return deny(ReasonRoleEscalation)
}

// CheckResourceAccess decides whether p may perform action on the resource
// snapshot. Branch isolation is applied before any permission lookup; the
// self/guardian exception lets students and parents read or update records
// they own. Filtered holds the resource with restricted fields removed and,
// when requestedFields is non-empty, only those fields.
func (e *Evaluator) CheckResourceAccess(ctx context.Context, p Principal, rt ResourceType, resource map[string]any, action Action, requestedFields []string) Access {
	if !p.Active {
		return deny(ReasonInactive)
	}
	if p.Role == RoleUnknown {
		return deny(ReasonUnknownRole)
	}
	if resource == nil {
		return deny(ReasonNoResource)
	}

	if !e.reg.IsOrgWide(p.Role) {
		branch := stringField(resource, "branch_id")
		if branch == "" {
			// A snapshot without a usable branch cannot be proven to be
			// in the principal's branch.
			return deny(ReasonNoResource)
		}
		if branch != p.BranchID {
			e.emit(ctx, audit.Event{
				Type:        audit.EventCrossBranchDenied,
				PrincipalID: p.ID,
				Role:        string(p.Role),
				Action:      fmt.Sprintf("%s %s", action, rt),
				Detail:      fmt.Sprintf("resource %s in branch %q, principal in branch %q", stringField(resource, "id"), branch, p.BranchID),
				Severity:    audit.SeverityWarning,
			})
			return deny(ReasonCrossBranch)
		}
	}

	allowed := false
	if e.reg.IsSelfAccess(p.Role) && (action == ActionRead || action == ActionUpdate) && ownsResource(p, resource) {
		allowed = true
	}
	if !allowed {
		if perm, ok := e.reg.PermissionFor(rt, action); ok {
			allowed = e.HasPermission(p.Role, perm)
		}
	}
	if !allowed {
		return deny(ReasonPermissionDenied)
	}

	return Access{Allowed: true, Filtered: e.filterFields(p.Role, rt, resource, requestedFields)}
}

// ownsResource reports whether the resource belongs to the principal, either
// directly (user_id) or through a guardian reference (parent_id).
func ownsResource(p Principal, resource map[string]any) bool {
	if p.ID == "" {
		return false
	}
	if stringField(resource, "user_id") == p.ID {
		return true
	}
	return stringField(resource, "parent_id") == p.ID
}

func (e *Evaluator) filterFields(role Role, rt ResourceType, resource map[string]any, requestedFields []string) map[string]any {
	filtered := make(map[string]any, len(resource))
	if len(requestedFields) > 0 {
		for _, name := range requestedFields {
			if v, ok := resource[name]; ok {
				filtered[name] = v
			}
		}
	} else {
		for name, v := range resource {
			filtered[name] = v
		}
	}
	for _, name := range e.reg.SensitiveFields(rt, role) {
		delete(filtered, name)
	}
	return filtered
}

// emit records a security event, isolating sink failures from the decision.
func (e *Evaluator) emit(ctx context.Context, ev audit.Event) {
	ev.At = time.Now().UTC()
	if e.audit == nil {
		e.logger.Warn("audit event (no sink)", slog.String("type", ev.Type), slog.String("detail", ev.Detail))
		return
	}
	if err := e.audit.Record(ctx, ev); err != nil {
		e.logger.Warn("audit record failed", slog.Any("error", err), slog.String("type", ev.Type))
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
