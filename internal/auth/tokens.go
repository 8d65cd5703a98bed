package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arcadia-sms/arcadia/internal/authz"
)

// ErrTokenInvalid indicates a missing, expired, or revoked token.
var ErrTokenInvalid = errors.New("auth: token invalid")

// TokenStore issues opaque bearer tokens backed by redis. Each token maps to
// a principal snapshot taken at login; the snapshot expires with the token.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

type tokenPayload struct {
	PrincipalID string `json:"principal_id"`
	Role        string `json:"role"`
	BranchID    string `json:"branch_id,omitempty"`
	Active      bool   `json:"active"`
	IssuedAt    int64  `json:"issued_at"`
}

// NewTokenStore constructs a TokenStore with the given token lifetime.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Issue creates a new token for the principal.
func (s *TokenStore) Issue(ctx context.Context, p authz.Principal) (string, error) {
	token := uuid.NewString()
	payload := tokenPayload{
		PrincipalID: p.ID,
		Role:        string(p.Role),
		BranchID:    p.BranchID,
		Active:      p.Active,
		IssuedAt:    time.Now().Unix(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), data, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the principal snapshot for a token.
func (s *TokenStore) Resolve(ctx context.Context, token string) (authz.Principal, error) {
	if token == "" {
		return authz.Principal{}, ErrTokenInvalid
	}
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authz.Principal{}, ErrTokenInvalid
		}
		return authz.Principal{}, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return authz.Principal{}, ErrTokenInvalid
	}
	return authz.Principal{
		ID:       payload.PrincipalID,
		Role:     authz.ParseRole(payload.Role),
		BranchID: payload.BranchID,
		Active:   payload.Active,
	}, nil
}

// Revoke deletes the token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

func (s *TokenStore) key(token string) string {
	return "token:" + token
}
