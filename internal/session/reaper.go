package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reap deletes expired sessions every interval until ctx is cancelled.
// Run it in its own goroutine; the TTL check in Get already hides
// expired rows, so the sweep only reclaims storage.
func Reap(ctx context.Context, s Store, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.DeleteExpired(ctx)
			if err != nil {
				logger.Error("delete expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired sessions deleted", zap.Int64("count", n))
			}
		}
	}
}
