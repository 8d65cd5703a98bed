// Package audit records security-relevant authorization decisions for later
// review. Recording is best effort: a failing or slow sink must never delay
// or fail the decision that triggered the event.
package audit

import (
	"context"
	"time"
)

// Severity ranks how alarming an event is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event types emitted by the authorization core.
const (
	EventCrossBranchDenied    = "authz.cross_branch_denied"
	EventRoleEscalationDenied = "authz.role_escalation_denied"
	EventCrossBranchReference = "authz.cross_branch_reference"
	EventRateLimitBlocked     = "ratelimit.blocked"
)

// Event is one structured audit record.
type Event struct {
	Type        string
	PrincipalID string
	Role        string
	Action      string
	Detail      string
	Severity    Severity
	At          time.Time
}

// Recorder persists audit events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
