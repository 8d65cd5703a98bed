package authz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arcadia-sms/arcadia/internal/audit"
)

// BranchAll is the sentinel branch id requesting unscoped, all-branch
// results. It is honored only for organization-wide roles.
const BranchAll = "all"

// Filter is a set of field/value equality constraints applied to a listing
// query.
type Filter map[string]any

// DocumentFetcher retrieves a stored document by collection and id. Used to
// resolve indirect references during cross-branch validation.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, collection, id string) (map[string]any, error)
}

// AddBranchFilter returns a copy of filter constrained to the branch the
// principal may see. Organization-wide roles pass through unchanged, or
// narrowed to an explicitly requested concrete branch. For branch-scoped
// roles the principal's own branch always wins, overriding any requested
// branch including the BranchAll sentinel.
func (e *Evaluator) AddBranchFilter(filter Filter, requestedBranch string, p Principal) Filter {
	scoped := make(Filter, len(filter)+1)
	for k, v := range filter {
		scoped[k] = v
	}
	if e.reg.IsOrgWide(p.Role) {
		if requestedBranch != "" && requestedBranch != BranchAll {
			scoped["branch_id"] = requestedBranch
		}
		return scoped
	}
	scoped["branch_id"] = p.BranchID
	return scoped
}

// ValidateCrossBranchReference fetches the referenced document and verifies
// it belongs to expectedBranch. Mismatches and lookup failures deny, and a
// mismatch emits a security audit event.
func (e *Evaluator) ValidateCrossBranchReference(ctx context.Context, store DocumentFetcher, collection, resourceID, expectedBranch string, p Principal) bool {
	if store == nil || resourceID == "" {
		return false
	}
	doc, err := store.FetchDocument(ctx, collection, resourceID)
	if err != nil {
		e.logger.Warn("cross-branch reference lookup failed",
			slog.Any("error", err), slog.String("collection", collection), slog.String("resource_id", resourceID))
		return false
	}
	branch := stringField(doc, "branch_id")
	if branch == expectedBranch {
		return true
	}
	e.emit(ctx, audit.Event{
		Type:        audit.EventCrossBranchReference,
		PrincipalID: p.ID,
		Role:        string(p.Role),
		Action:      "reference " + collection,
		Detail:      fmt.Sprintf("resource %s in branch %q, expected branch %q", resourceID, branch, expectedBranch),
		Severity:    audit.SeverityWarning,
	})
	return false
}
