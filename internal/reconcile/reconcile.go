package reconcile

import (
	"context"
	"errors"
	"log"
	"time"

	"gate-checkin-backend/config"
	"gate-checkin-backend/internal/model"
	"gate-checkin-backend/internal/store"
)

// Service closes sessions that were never signed out, such as a badge that
// left through an unstaffed exit.
type Service struct {
	cfg      *config.ReconcileConfig
	store    store.Store
	now      func() time.Time
	onClosed func(n int64)
}

// NewService creates a reconciliation service. onClosed may be nil.
func NewService(cfg *config.ReconcileConfig, s store.Store, onClosed func(n int64)) *Service {
	if onClosed == nil {
		onClosed = func(int64) {}
	}
	return &Service{
		cfg:      cfg,
		store:    s,
		now:      func() time.Time { return time.Now().UTC() },
		onClosed: onClosed,
	}
}

// Run reconciles once and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Reconciliation is disabled. Not starting.")
		return
	}
	log.Println("Starting reconciliation service...")

	s.ReconcileOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Reconciliation service shutting down.")
			return
		case <-timer.C:
			s.ReconcileOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// ReconcileOnce closes every open session signed in longer than MaxOpen ago,
// stamping the sign-out at the moment of reconciliation.
func (s *Service) ReconcileOnce(ctx context.Context) int64 {
	now := s.now()
	stale, err := s.store.ListOpenCheckInsBefore(ctx, now.Add(-s.cfg.MaxOpen))
	if err != nil {
		log.Printf("Error listing stale sessions: %v", err)
		return 0
	}

	var closed int64
	for _, rec := range stale {
		err := s.store.CloseCheckIn(ctx, rec.ID, now, model.ClosedByReconcile)
		switch {
		case errors.Is(err, store.ErrSessionClosed):
			// Signed out by a scan since the listing.
		case err != nil:
			log.Printf("Error closing stale session %s: %v", rec.ID, err)
		default:
			closed++
		}
	}
	if closed > 0 {
		log.Printf("Reconciliation closed %d stale sessions", closed)
	}
	s.onClosed(closed)
	return closed
}
