package service

import (
	"context"
	"log/slog"
	"time"
)

// staleExpirer is the slice of EnrollmentCoordinator the reaper needs.
type staleExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// EnrollmentReaper periodically fails handshakes stuck past the enrollment
// timeout, which is the only path that clears a stale registration flag on a
// device that crashed mid-enrollment. Stop via its context or Stop.
type EnrollmentReaper struct {
	expirer  staleExpirer
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewEnrollmentReaper creates a reaper but does not start it. An interval
// of 0 defaults to 15s.
func NewEnrollmentReaper(e staleExpirer, interval time.Duration, logger *slog.Logger) *EnrollmentReaper {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EnrollmentReaper{
		expirer:  e,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval, until ctx is
// cancelled or Stop is called.
func (r *EnrollmentReaper) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
	r.logger.Info("enrollment reaper started", "interval", r.interval.String())
}

// Stop signals the loop to exit and waits for it.
func (r *EnrollmentReaper) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *EnrollmentReaper) loop(ctx context.Context) {
	defer close(r.done)

	r.sweep(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *EnrollmentReaper) sweep(ctx context.Context) {
	n, err := r.expirer.ExpireStale(ctx)
	if err != nil && ctx.Err() == nil {
		r.logger.Error("enrollment reaper sweep failed", "err", err)
	}
	if n > 0 {
		r.logger.Info("enrollment reaper expired stale handshakes", "count", n)
	}
}
