package stats

import (
	"context"

	"golang.org/x/sync/errgroup"

	"gate-checkin-backend/internal/model"
	"gate-checkin-backend/internal/store"
)

// EventStats summarizes attendance for one event.
type EventStats struct {
	EventID    string `json:"event_id"`
	Booked     int    `json:"booked"`
	Rostered   int    `json:"rostered"`
	Verified   int    `json:"verified"`
	// Duplicates counts stored rows flagged is_duplicate. Gate scans rejected
	// as duplicates are never written, so they do not show up here.
	Duplicates int    `json:"duplicates"`
	Unverified int    `json:"unverified"`
	OnSite     int    `json:"on_site"`
	SignedOut  int    `json:"signed_out"`
}

// Aggregator recomputes event statistics from the store on every call.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates a statistics aggregator.
func NewAggregator(s store.Store) *Aggregator {
	return &Aggregator{store: s}
}

// EventStats reads bookings, roster and check-ins concurrently and counts them.
func (a *Aggregator) EventStats(ctx context.Context, eventID string) (*EventStats, error) {
	var (
		assignments []model.Assignment
		badges      []string
		records     []model.CheckInRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		assignments, err = a.store.ListAssignments(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		badges, err = a.store.ListRosterBadges(gctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		records, err = a.store.ListCheckIns(gctx, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &EventStats{EventID: eventID, Rostered: len(badges)}
	for _, as := range assignments {
		s.Booked += as.StaffRequested
	}
	for i := range records {
		rec := &records[i]
		switch {
		case rec.IsDuplicate:
			s.Duplicates++
		case rec.Verified:
			s.Verified++
		default:
			s.Unverified++
		}
		if rec.IsOpen() {
			s.OnSite++
		} else {
			s.SignedOut++
		}
	}
	return s, nil
}
