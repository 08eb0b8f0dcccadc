package port

import "context"

type IdempotencyRepository interface {
	// SetIdempotency marks key as seen, returns false if it was already marked
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
