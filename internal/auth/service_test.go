package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arcadia-sms/arcadia/internal/authz"
)

type stubRepo struct {
	users       map[string]*User
	roleUpdates map[string]string
}

func newStubRepo(users ...*User) *stubRepo {
	r := &stubRepo{users: make(map[string]*User), roleUpdates: make(map[string]string)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *stubRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *stubRepo) FindByID(_ context.Context, id string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *stubRepo) UpdateRole(_ context.Context, id, role string) error {
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	r.roleUpdates[id] = role
	return nil
}

func (r *stubRepo) TouchLastLogin(_ context.Context, _ string) error { return nil }

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	evaluator := authz.NewEvaluator(authz.NewRegistry(authz.DefaultConfig()), nil, logger)
	return NewService(repo, NewTokenStore(client, time.Hour), evaluator, logger)
}

func TestLoginIssuesToken(t *testing.T) {
	branch := "b1"
	repo := newStubRepo(&User{
		ID:           "u-1",
		Email:        "ana@school.test",
		PasswordHash: hash(t, "correct horse"),
		Role:         "teacher",
		BranchID:     &branch,
		IsActive:     true,
	})
	svc := newTestService(t, repo)
	ctx := context.Background()

	principal, token, err := svc.Login(ctx, "ana@school.test", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, authz.RoleTeacher, principal.Role)
	require.Equal(t, "b1", principal.BranchID)

	resolved, err := svc.tokens.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, principal, resolved)

	require.NoError(t, svc.Logout(ctx, token))
	_, err = svc.tokens.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLoginFailsIdentically(t *testing.T) {
	repo := newStubRepo(
		&User{ID: "u-1", Email: "ana@school.test", PasswordHash: hash(t, "secret-pass"), Role: "teacher", IsActive: true},
		&User{ID: "u-2", Email: "gone@school.test", PasswordHash: hash(t, "secret-pass"), Role: "teacher", IsActive: false},
	)
	svc := newTestService(t, repo)
	ctx := context.Background()

	// Wrong password, unknown account, and disabled account all return the
	// same error so callers cannot probe which accounts exist.
	_, _, err := svc.Login(ctx, "ana@school.test", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@school.test", "secret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "gone@school.test", "secret-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangeRole(t *testing.T) {
	repo := newStubRepo(&User{ID: "u-t", Email: "t@school.test", Role: "teacher", IsActive: true})
	svc := newTestService(t, repo)
	ctx := context.Background()
	admin := authz.Principal{ID: "u-a", Role: authz.RoleBranchAdmin, BranchID: "b1", Active: true}

	require.NoError(t, svc.ChangeRole(ctx, admin, "u-t", "registrar"))
	require.Equal(t, "registrar", repo.roleUpdates["u-t"])
}

func TestChangeRoleDeniesEscalation(t *testing.T) {
	repo := newStubRepo(
		&User{ID: "u-t", Email: "t@school.test", Role: "teacher", IsActive: true},
		&User{ID: "u-h", Email: "h@school.test", Role: "hq_admin", IsActive: true},
	)
	svc := newTestService(t, repo)
	ctx := context.Background()
	admin := authz.Principal{ID: "u-a", Role: authz.RoleBranchAdmin, BranchID: "b1", Active: true}

	// Promoting above the acting level is refused even when the target's
	// current role is manageable.
	err := svc.ChangeRole(ctx, admin, "u-t", "hq_admin")
	require.ErrorIs(t, err, ErrNotAllowed)

	// Demoting an account above the acting level is refused outright.
	err = svc.ChangeRole(ctx, admin, "u-h", "teacher")
	require.ErrorIs(t, err, ErrNotAllowed)

	// Roles outside the enumeration are rejected before any lookup.
	err = svc.ChangeRole(ctx, admin, "u-t", "deity")
	require.ErrorIs(t, err, ErrUnknownRole)

	// A principal without user management gets nothing.
	teacher := authz.Principal{ID: "u-x", Role: authz.RoleTeacher, BranchID: "b1", Active: true}
	err = svc.ChangeRole(ctx, teacher, "u-t", "student")
	require.ErrorIs(t, err, ErrNotAllowed)

	err = svc.ChangeRole(ctx, admin, "missing", "teacher")
	require.ErrorIs(t, err, ErrNotFound)

	require.Empty(t, repo.roleUpdates)
}
