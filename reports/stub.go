package reports

import (
	"context"
	"time"
)

// StubStore keeps nothing. List answers with an empty list after a fixed
// delay, like the listing endpoint it stands in for.
type StubStore struct {
	delay time.Duration
}

// NewStubStore returns a StubStore whose List waits delay.
func NewStubStore(delay time.Duration) *StubStore {
	return &StubStore{delay: delay}
}

// Save discards s.
func (s *StubStore) Save(ctx context.Context, _ *Summary) error {
	return ctx.Err()
}

// List returns an empty list once the delay has passed.
func (s *StubStore) List(ctx context.Context, _ int) ([]Summary, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return []Summary{}, nil
}

func (s *StubStore) Close() error {
	return nil
}
