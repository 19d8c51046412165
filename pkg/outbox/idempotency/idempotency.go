package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

// Guard remembers which outbox events a publisher already delivered, so a row
// whose published_at write was lost is not sent to Pub/Sub twice.
// Keys follow `od:idempotency:evt:<scope>:<event_id>`.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewGuard builds a guard whose marks expire after ttl.
func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim marks the event for scope and reports whether this caller is the first.
func (g *Guard) Claim(ctx context.Context, scope string, eventID uuid.UUID) (bool, error) {
	key, err := g.key(scope, eventID)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
}

// Release forgets a claim, used when delivery failed after Claim.
func (g *Guard) Release(ctx context.Context, scope string, eventID uuid.UUID) error {
	key, err := g.key(scope, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(scope string, eventID uuid.UUID) (string, error) {
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(fmt.Sprintf("evt:%s", scope), eventID.String()), nil
}
