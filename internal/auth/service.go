package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/arcadia-sms/arcadia/internal/authz"
)

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrNotAllowed indicates the acting principal may not perform the
	// administrative operation.
	ErrNotAllowed = errors.New("auth: not allowed")
	// ErrUnknownRole indicates an unrecognized role value was submitted.
	ErrUnknownRole = errors.New("auth: unknown role")
)

// Service wraps authentication and account-administration rules.
type Service struct {
	repo      Repository
	tokens    *TokenStore
	evaluator *authz.Evaluator
	logger    *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenStore, evaluator *authz.Evaluator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, evaluator: evaluator, logger: logger}
}

// Login validates credentials and issues a bearer token. Inactive accounts
// and unknown emails fail identically to avoid account probing.
func (s *Service) Login(ctx context.Context, email, password string) (authz.Principal, string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return authz.Principal{}, "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return authz.Principal{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return authz.Principal{}, "", ErrInvalidCredentials
	}

	principal := PrincipalFor(user)
	token, err := s.tokens.Issue(ctx, principal)
	if err != nil {
		return authz.Principal{}, "", fmt.Errorf("issue token: %w", err)
	}
	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("touch last login", slog.Any("error", err))
	}
	return principal, token, nil
}

// Logout revokes the bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// ChangeRole moves the target account to newRole. The acting principal needs
// the user-management permission and a hierarchy level strictly above both
// the target's current role and the requested one.
func (s *Service) ChangeRole(ctx context.Context, acting authz.Principal, targetUserID, newRole string) error {
	if !s.evaluator.HasPermission(acting.Role, authz.PermUsersManage) {
		return ErrNotAllowed
	}
	requested := authz.ParseRole(newRole)
	if requested == authz.RoleUnknown {
		return fmt.Errorf("%w: %q", ErrUnknownRole, newRole)
	}

	target, err := s.repo.FindByID(ctx, targetUserID)
	if err != nil {
		return err
	}
	if acc := s.evaluator.CheckRoleAccess(ctx, acting, authz.ParseRole(target.Role)); !acc.Allowed {
		return ErrNotAllowed
	}
	if acc := s.evaluator.CheckRoleAccess(ctx, acting, requested); !acc.Allowed {
		return ErrNotAllowed
	}
	return s.repo.UpdateRole(ctx, targetUserID, string(requested))
}

// PrincipalFor builds the request principal from a stored user account.
func PrincipalFor(user *User) authz.Principal {
	branch := ""
	if user.BranchID != nil {
		branch = *user.BranchID
	}
	return authz.Principal{
		ID:       user.ID,
		Role:     authz.ParseRole(user.Role),
		BranchID: branch,
		Active:   user.IsActive,
	}
}
