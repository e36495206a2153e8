package service

import (
	"context"
	"time"
)

type IdempotencyState string

const (
	IdempotencyStateNew        IdempotencyState = "new"
	IdempotencyStateReplay     IdempotencyState = "replay"
	IdempotencyStateConflict   IdempotencyState = "conflict"
	IdempotencyStateInProgress IdempotencyState = "in_progress"
)

type CachedHTTPResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type IdempotencyBeginResult struct {
	State  IdempotencyState
	Cached *CachedHTTPResponse
}

// IdempotencyStore guards at-most-one execution per (scope, key). Begin
// atomically claims an unseen key; a claimed-but-unfinished key reports
// in_progress, a finished one replays the recorded response, and the same
// key with a different request fingerprint reports conflict. A claim whose
// request never completes expires via the TTL, so the key can never stay
// permanently claimed without an outcome.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error)
	Complete(ctx context.Context, scope, key, fingerprint string, response CachedHTTPResponse, ttl time.Duration) error
	CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int64, error)
}
