package ports

import "context"

// StoredResponse contains the response data to replay for a reused key.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	ResourceID int64
}

// IdempotencyStore ensures create operations can be retried safely: a client
// resending the same Idempotency-Key gets the original response instead of a
// second order or a second gateway intent.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response StoredResponse) error
}
