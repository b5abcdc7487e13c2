package sequence

import "context"

// Repository provides persistence for number sequences. NextNumber and
// ReuseNumber must run inside the caller's write scope so no two concurrent
// scopes can observe the same sequence state.
type Repository interface {
	// FindOrCreate returns the sequence for the given key, creating an
	// empty one on first use
	FindOrCreate(ctx context.Context, sequenceKey string) (*NumberSequence, error)

	// Save persists the sequence together with its reuse pool
	Save(ctx context.Context, seq *NumberSequence) error

	// NextNumber atomically obtains the next number for the given key
	NextNumber(ctx context.Context, sequenceKey string) (int64, error)

	// ReuseNumber atomically releases a number back to the given key's pool
	ReuseNumber(ctx context.Context, sequenceKey string, number int64) error
}
