package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

type sweepCountingStore struct {
	sweeps chan struct{}
}

func (s *sweepCountingStore) Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	return nil, nil
}

func (s *sweepCountingStore) Get(ctx context.Context, token string) (*Session, error) {
	return nil, nil
}

func (s *sweepCountingStore) Delete(ctx context.Context, token string) error { return nil }

func (s *sweepCountingStore) DeleteExpired(ctx context.Context) (int64, error) {
	select {
	case s.sweeps <- struct{}{}:
	default:
	}
	return 1, nil
}

func TestReap_SweepsUntilCancelled(t *testing.T) {
	store := &sweepCountingStore{sweeps: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Reap(ctx, store, time.Millisecond, zap.NewNop())
		close(done)
	}()

	select {
	case <-store.sweeps:
	case <-time.After(time.Second):
		t.Fatal("no sweep ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop on cancel")
	}
}
