package cart

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/logger"
)

// Sweeper deletes expired carts on an interval for stores without native
// expiry.
type Sweeper struct {
	repo     Repository
	ttl      time.Duration
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewSweeper(repo Repository, ttl, interval time.Duration, log *zap.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{repo: repo, ttl: ttl, interval: interval, log: logger.OrNop(log), now: func() time.Time { return time.Now().UTC() }}
}

// SweepOnce removes carts created more than ttl ago.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().Add(-s.ttl))
}

// Run sweeps until ctx is cancelled. Failures are logged and retried on the
// next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			n, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Warn("cart sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired carts removed", zap.Int64("count", n))
			}
		}
	}
}
