package staff

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/arcadia-sms/arcadia/internal/authz"
	"github.com/arcadia-sms/arcadia/internal/platform/httpx"
)

// Service applies authorization around staff records.
type Service struct {
	repo      Repository
	evaluator *authz.Evaluator
	logger    *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, evaluator *authz.Evaluator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, evaluator: evaluator, logger: logger}
}

// Get returns the staff record as a field map with compensation fields
// removed unless the principal's role is entitled to them.
func (s *Service) Get(ctx context.Context, p authz.Principal, id string, requestedFields []string) (map[string]any, error) {
	member, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	acc := s.evaluator.CheckResourceAccess(ctx, p, authz.ResourceStaff, member.Doc(), authz.ActionRead, requestedFields)
	if !acc.Allowed {
		return nil, fmt.Errorf("%w: %s", httpx.ErrForbidden, acc.Reason)
	}
	return acc.Filtered, nil
}

// List returns staff records visible to the principal, each filtered through
// the same field restrictions as Get.
func (s *Service) List(ctx context.Context, p authz.Principal, requestedBranch, position string) ([]map[string]any, error) {
	if !s.evaluator.HasPermission(p.Role, authz.PermStaffView) {
		return nil, fmt.Errorf("%w: %s", httpx.ErrForbidden, authz.ReasonPermissionDenied)
	}
	filter := authz.Filter{}
	if position != "" {
		filter["position"] = position
	}
	filter = s.evaluator.AddBranchFilter(filter, requestedBranch, p)

	members, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, 0, len(members))
	for _, m := range members {
		acc := s.evaluator.CheckResourceAccess(ctx, p, authz.ResourceStaff, m.Doc(), authz.ActionRead, nil)
		if !acc.Allowed {
			continue
		}
		docs = append(docs, acc.Filtered)
	}
	return docs, nil
}

// Create registers a staff member in the principal's branch.
func (s *Service) Create(ctx context.Context, p authz.Principal, input CreateMemberInput) (string, error) {
	if !s.evaluator.HasPermission(p.Role, authz.PermStaffCreate) {
		return "", fmt.Errorf("%w: %s", httpx.ErrForbidden, authz.ReasonPermissionDenied)
	}
	branch := input.BranchID
	if !s.evaluator.Registry().IsOrgWide(p.Role) {
		branch = p.BranchID
	}
	if branch == "" {
		return "", fmt.Errorf("%w: branch_id is required", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, Member{
		BranchID:    branch,
		UserID:      input.UserID,
		FullName:    input.FullName,
		Position:    input.Position,
		Salary:      input.Salary,
		BankAccount: input.BankAccount,
	})
}
