package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/greenbasket/storefront/internal/domain/auth"
	"github.com/greenbasket/storefront/internal/ports"
)

var _ ports.PendingSignupStore = (*PendingSignupStore)(nil)

// ErrPendingNotFound is returned when a pending signup is absent or expired.
var ErrPendingNotFound = ports.ErrPendingSignupNotFound

// PendingSignupStore holds verified federated identities between the
// provider callback and the role-selection step. Entries expire with the
// key TTL; an expired entry simply abandons the signup and forces the user
// back through the provider.
type PendingSignupStore struct {
	client redis.UniversalClient
	prefix string
}

// NewPendingSignupStore creates a Redis-backed pending-signup store.
func NewPendingSignupStore(client redis.UniversalClient) *PendingSignupStore {
	return &PendingSignupStore{client: client, prefix: "pending_signup:"}
}

func (s *PendingSignupStore) Save(ctx context.Context, p domainauth.PendingSignup) error {
	if p.ID == "" {
		return errors.New("pending signup ID cannot be empty")
	}

	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return errors.New("pending signup is already expired")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending signup: %w", err)
	}

	return s.client.Set(ctx, s.prefix+p.ID, data, ttl).Err()
}

func (s *PendingSignupStore) Get(ctx context.Context, id string) (domainauth.PendingSignup, error) {
	if id == "" {
		return domainauth.PendingSignup{}, ErrPendingNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.PendingSignup{}, ErrPendingNotFound
		}
		return domainauth.PendingSignup{}, fmt.Errorf("redis get: %w", err)
	}

	var p domainauth.PendingSignup
	if unmarshalErr := json.Unmarshal([]byte(data), &p); unmarshalErr != nil {
		return domainauth.PendingSignup{}, fmt.Errorf("unmarshal pending signup: %w", unmarshalErr)
	}

	// The key TTL normally expires entries; clock skew can leave a stale one.
	if time.Now().After(p.ExpiresAt) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.PendingSignup{}, fmt.Errorf("cleanup expired pending signup: %w", deleteErr)
		}
		return domainauth.PendingSignup{}, ErrPendingNotFound
	}

	return p, nil
}

func (s *PendingSignupStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil // Nothing to delete
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}
