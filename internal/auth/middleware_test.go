package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/arcadia-sms/arcadia/internal/authz"
)

func TestRequireAuth(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tokens := NewTokenStore(client, time.Hour)

	active, err := tokens.Issue(context.Background(), authz.Principal{ID: "u-1", Role: authz.RoleTeacher, BranchID: "b1", Active: true})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	disabled, err := tokens.Issue(context.Background(), authz.Principal{ID: "u-2", Role: authz.RoleTeacher, Active: false})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var got authz.Principal
	handler := RequireAuth(tokens, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = authz.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	do := func(authHeader string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/students", nil)
		if authHeader != "" {
			r.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	if w := do(""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status = %d, want 401", w.Code)
	}
	if w := do("Basic abc"); w.Code != http.StatusUnauthorized {
		t.Fatalf("non-bearer: status = %d, want 401", w.Code)
	}
	if w := do("Bearer bogus"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token: status = %d, want 401", w.Code)
	}
	if w := do("Bearer " + disabled); w.Code != http.StatusForbidden {
		t.Fatalf("disabled account: status = %d, want 403", w.Code)
	}

	if w := do("Bearer " + active); w.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", w.Code)
	}
	if got.ID != "u-1" || got.Role != authz.RoleTeacher || got.BranchID != "b1" {
		t.Fatalf("principal not attached: %+v", got)
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	if got := TokenFromRequest(r); got != "" {
		t.Fatalf("TokenFromRequest = %q, want empty", got)
	}
	r.Header.Set("Authorization", "Bearer abc123")
	if got := TokenFromRequest(r); got != "abc123" {
		t.Fatalf("TokenFromRequest = %q, want abc123", got)
	}
}
