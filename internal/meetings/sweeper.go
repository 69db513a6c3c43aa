package meetings

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const sweepLockKey = "meeting:sweep"

// Sweeper periodically demotes expired pending meetings to timeout. Multiple
// worker instances may run; a Redis lock elects one sweep per tick, and the
// per-record conditional transition makes an accidental double sweep
// harmless anyway.
type Sweeper struct {
	svc      *Service
	locks    Locker
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a timeout sweeper.
func NewSweeper(svc *Service, locks Locker, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{svc: svc, locks: locks, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if s.locks != nil {
		ok, err := s.locks.Acquire(ctx, sweepLockKey, s.interval)
		if err != nil {
			s.logger.Warn("sweep lock unavailable", zap.Error(err))
			return
		}
		if !ok {
			// another instance holds this tick
			return
		}
	}
	if _, err := s.svc.Sweep(ctx); err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
	}
}
