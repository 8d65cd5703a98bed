package students

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arcadia-sms/arcadia/internal/authz"
	"github.com/arcadia-sms/arcadia/internal/platform/httpx"
)

// Service applies authorization and branch isolation around student records.
type Service struct {
	repo      Repository
	evaluator *authz.Evaluator
	docs      authz.DocumentFetcher
	logger    *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, evaluator *authz.Evaluator, docs authz.DocumentFetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, evaluator: evaluator, docs: docs, logger: logger}
}

// Get returns the student as a field map with restricted fields removed.
// requestedFields narrows the response when non-empty.
func (s *Service) Get(ctx context.Context, p authz.Principal, id string, requestedFields []string) (map[string]any, error) {
	student, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	acc := s.evaluator.CheckResourceAccess(ctx, p, authz.ResourceStudents, student.Doc(), authz.ActionRead, requestedFields)
	if !acc.Allowed {
		return nil, fmt.Errorf("%w: %s", httpx.ErrForbidden, acc.Reason)
	}
	return acc.Filtered, nil
}

// ListResult wraps a page of students with the total row count.
type ListResult struct {
	Students []Student
	Total    int
}

// List returns students constrained to the branches the principal may see.
// requestedBranch may be a concrete branch id or the all-branches sentinel;
// it only takes effect for organization-wide roles.
func (s *Service) List(ctx context.Context, p authz.Principal, requestedBranch, classID string, page, pageSize int) (ListResult, error) {
	if !s.evaluator.HasPermission(p.Role, authz.PermStudentsView) {
		return ListResult{}, fmt.Errorf("%w: %s", httpx.ErrForbidden, authz.ReasonPermissionDenied)
	}
	filter := authz.Filter{}
	if classID != "" {
		filter["class_id"] = classID
	}
	filter = s.evaluator.AddBranchFilter(filter, requestedBranch, p)

	items, total, err := s.repo.List(ctx, filter, page, pageSize)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Students: items, Total: total}, nil
}

// Create registers a student in the principal's branch. Organization-wide
// roles may target any branch; everyone else is pinned to their own. A class
// reference must resolve inside the target branch.
func (s *Service) Create(ctx context.Context, p authz.Principal, input CreateStudentInput) (string, error) {
	if !s.evaluator.HasPermission(p.Role, authz.PermStudentsCreate) {
		return "", fmt.Errorf("%w: %s", httpx.ErrForbidden, authz.ReasonPermissionDenied)
	}
	branch := input.BranchID
	if !s.evaluator.Registry().IsOrgWide(p.Role) {
		branch = p.BranchID
	}
	if branch == "" {
		return "", fmt.Errorf("%w: branch_id is required", httpx.ErrValidation)
	}
	if input.ClassID != nil {
		if !s.evaluator.ValidateCrossBranchReference(ctx, s.docs, "classes", *input.ClassID, branch, p) {
			return "", fmt.Errorf("%w: class reference outside branch", httpx.ErrForbidden)
		}
	}

	id, err := s.repo.Create(ctx, Student{
		BranchID:    branch,
		Number:      input.Number,
		FullName:    input.FullName,
		UserID:      input.UserID,
		ParentID:    input.ParentID,
		ClassID:     input.ClassID,
		MedicalInfo: input.MedicalInfo,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return "", fmt.Errorf("%w: student number taken", httpx.ErrDuplicate)
		}
		return "", err
	}
	return id, nil
}

// Update applies partial changes after a resource access check.
func (s *Service) Update(ctx context.Context, p authz.Principal, id string, input UpdateStudentInput) error {
	student, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	acc := s.evaluator.CheckResourceAccess(ctx, p, authz.ResourceStudents, student.Doc(), authz.ActionUpdate, nil)
	if !acc.Allowed {
		return fmt.Errorf("%w: %s", httpx.ErrForbidden, acc.Reason)
	}

	if input.FullName != nil {
		student.FullName = *input.FullName
	}
	if input.ParentID != nil {
		student.ParentID = input.ParentID
	}
	if input.ClassID != nil {
		if !s.evaluator.ValidateCrossBranchReference(ctx, s.docs, "classes", *input.ClassID, student.BranchID, p) {
			return fmt.Errorf("%w: class reference outside branch", httpx.ErrForbidden)
		}
		student.ClassID = input.ClassID
	}
	if input.MedicalInfo != nil {
		student.MedicalInfo = input.MedicalInfo
	}
	return s.repo.Update(ctx, *student)
}

// Delete removes the record after a resource access check.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id string) error {
	student, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	acc := s.evaluator.CheckResourceAccess(ctx, p, authz.ResourceStudents, student.Doc(), authz.ActionDelete, nil)
	if !acc.Allowed {
		return fmt.Errorf("%w: %s", httpx.ErrForbidden, acc.Reason)
	}
	return s.repo.Delete(ctx, id)
}

// ImportResult summarises a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Import registers a batch of students, continuing past individual failures.
func (s *Service) Import(ctx context.Context, p authz.Principal, inputs []CreateStudentInput) (ImportResult, error) {
	if !s.evaluator.HasPermission(p.Role, authz.PermStudentsCreate) {
		return ImportResult{}, fmt.Errorf("%w: %s", httpx.ErrForbidden, authz.ReasonPermissionDenied)
	}
	var result ImportResult
	for i, input := range inputs {
		if _, err := s.Create(ctx, p, input); err != nil {
			result.Failed++
			if len(result.Errors) < 20 {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			}
			continue
		}
		result.Imported++
	}
	return result, nil
}
