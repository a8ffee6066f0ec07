package checkin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gate-checkin-backend/internal/model"
	"gate-checkin-backend/internal/parse"
	"gate-checkin-backend/internal/registry"
	"gate-checkin-backend/internal/store"
)

var (
	// ErrStorage marks scans that could not be durably recorded.
	ErrStorage = errors.New("check-in storage failure")
	// ErrStewardName is returned when a steward check-in carries no name.
	ErrStewardName = errors.New("steward name is required")
	// ErrReservedBadge is returned when a scan carries the steward sentinel.
	ErrReservedBadge = errors.New("badge is reserved for steward check-ins")
)

// DuplicatePolicy selects what the duplicate window is measured against.
type DuplicatePolicy string

const (
	// DuplicateByCheckInTime suppresses any scan within the window of the
	// badge's last check_in_time, whether or not that session was since closed.
	DuplicateByCheckInTime DuplicatePolicy = "check_in_time"
	// DuplicateByLastActivity measures the window from the most recent of the
	// sign-in and sign-out times, so a double-fired sign-out is suppressed too.
	DuplicateByLastActivity DuplicatePolicy = "last_activity"
)

const (
	DefaultDuplicateWindow = 5 * time.Minute
	DefaultRegistryWait    = 8 * time.Second
)

// Enricher runs registry lookups off the request path. Submit must not block;
// a nil channel means the lookup was not accepted.
type Enricher interface {
	Submit(licence string) <-chan registry.Result
}

// Options configures an Engine.
type Options struct {
	DuplicateWindow time.Duration
	DuplicatePolicy DuplicatePolicy
	// RegistryWait bounds how long a scan response waits for enrichment.
	RegistryWait time.Duration
	Now          func() time.Time
}

// Engine turns badge scans into recorded gate decisions.
type Engine struct {
	store    store.Store
	enricher Enricher
	opts     Options
}

// NewEngine creates an engine. enricher may be nil to disable registry checks.
func NewEngine(s store.Store, enricher Enricher, opts Options) *Engine {
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = DefaultDuplicateWindow
	}
	if opts.DuplicatePolicy == "" {
		opts.DuplicatePolicy = DuplicateByCheckInTime
	}
	if opts.RegistryWait <= 0 {
		opts.RegistryWait = DefaultRegistryWait
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{store: s, enricher: enricher, opts: opts}
}

// Scan records one badge presentation. Business outcomes (duplicate, unlisted,
// signed out) are ordinary results; a non-nil error is returned together with
// a StatusError result only when the scan could not be recorded. The steward
// sentinel is rejected with ErrReservedBadge before the store is touched.
func (e *Engine) Scan(ctx context.Context, req ScanRequest) (*Result, error) {
	scan := parse.NormalizeScan(req.Raw, req.Method)
	if scan.BadgeID == model.StewardBadge {
		return nil, ErrReservedBadge
	}
	now := e.opts.Now()

	dup, err := e.findDuplicate(ctx, req.EventID, scan.BadgeID, now)
	if err != nil {
		return e.fail(scan.BadgeID, err)
	}
	if dup != nil {
		e.loadIdentity(ctx, dup)
		return e.duplicateResult(dup), nil
	}

	open, err := e.store.FindOpenCheckIn(ctx, req.EventID, scan.BadgeID)
	if err != nil {
		return e.fail(scan.BadgeID, err)
	}

	var res *Result
	if open != nil {
		res, err = e.signOut(ctx, open, now)
	} else {
		res, err = e.signIn(ctx, req.EventID, scan, now)
	}
	if err != nil {
		return e.fail(scan.BadgeID, err)
	}

	e.enrich(ctx, res)
	return res, nil
}

func (e *Engine) findDuplicate(ctx context.Context, eventID, badgeID string, now time.Time) (*model.CheckInRecord, error) {
	since := now.Add(-e.opts.DuplicateWindow)
	if e.opts.DuplicatePolicy == DuplicateByLastActivity {
		return e.store.LatestActivitySince(ctx, eventID, badgeID, since)
	}
	return e.store.LatestCheckInSince(ctx, eventID, badgeID, since)
}

func (e *Engine) duplicateResult(dup *model.CheckInRecord) *Result {
	original := dup.CheckInTime
	if e.opts.DuplicatePolicy == DuplicateByLastActivity {
		original = dup.LastActivity()
	}
	name, provider, role := Identity(dup)
	return &Result{
		Status:      StatusDuplicate,
		Message:     fmt.Sprintf("Already scanned at %s", original.Format("15:04:05")),
		RecordID:    dup.ID,
		BadgeID:     dup.BadgeID,
		Name:        name,
		Provider:    provider,
		Role:        role,
		Verified:    dup.Verified,
		CheckInTime: &original,
	}
}

// signOut closes the open session. Identity is resolved before the record is
// mutated.
func (e *Engine) signOut(ctx context.Context, open *model.CheckInRecord, now time.Time) (*Result, error) {
	e.loadIdentity(ctx, open)
	name, provider, role := Identity(open)

	if err := e.store.CloseCheckIn(ctx, open.ID, now, model.ClosedByScan); err != nil {
		if errors.Is(err, store.ErrSessionClosed) {
			// A concurrent scan closed the session between our read and write.
			return &Result{
				Status:      StatusDuplicate,
				Message:     "Already signed out",
				RecordID:    open.ID,
				BadgeID:     open.BadgeID,
				Name:        name,
				Provider:    provider,
				Role:        role,
				Verified:    open.Verified,
				CheckInTime: &open.CheckInTime,
			}, nil
		}
		return nil, err
	}

	return &Result{
		Status:      StatusSignedOut,
		Message:     fmt.Sprintf("Signed out at %s", now.Format("15:04:05")),
		RecordID:    open.ID,
		BadgeID:     open.BadgeID,
		Name:        name,
		Provider:    provider,
		Role:        role,
		Verified:    open.Verified,
		CheckInTime: &open.CheckInTime,
		SignInTime:  &open.SignInTime,
		SignOutTime: &now,
	}, nil
}

// loadIdentity attaches the roster line or provider referenced by rec. Lookup
// failures only degrade the display name.
func (e *Engine) loadIdentity(ctx context.Context, rec *model.CheckInRecord) {
	if rec.StaffDetailID != nil {
		detail, err := e.store.FindStaffDetail(ctx, *rec.StaffDetailID)
		if err != nil {
			log.Printf("Warning: could not resolve staff detail for record %s: %v", rec.ID, err)
		}
		rec.StaffDetail = detail
	}
	if rec.StaffDetail == nil && rec.ProviderID != nil {
		provider, err := e.store.FindProvider(ctx, *rec.ProviderID)
		if err != nil {
			log.Printf("Warning: could not resolve provider for record %s: %v", rec.ID, err)
		}
		rec.Provider = provider
	}
}

func (e *Engine) signIn(ctx context.Context, eventID string, scan parse.Scan, now time.Time) (*Result, error) {
	entries, err := e.store.FindRosterEntries(ctx, eventID, scan.BadgeID)
	if err != nil {
		return nil, err
	}
	entry := pickRosterEntry(eventID, scan.BadgeID, entries)

	rec := &model.CheckInRecord{
		EventID:       eventID,
		BadgeID:       scan.BadgeID,
		StaffName:     UnknownStaff,
		CheckInMethod: scan.Method,
		CheckInTime:   now,
		SignInTime:    now,
	}
	res := &Result{
		Status:   StatusUnlisted,
		Message:  "Not on the event roster",
		BadgeID:  scan.BadgeID,
		Name:     UnknownStaff,
		Provider: UnknownProvider,
	}

	if entry != nil {
		providerID := entry.Assignment.ProviderID
		rec.StaffDetailID = &entry.ID
		rec.ProviderID = &providerID
		rec.StaffName = entry.Name
		rec.Verified = true

		res.Status = StatusVerified
		res.Message = "Verified"
		res.Name = entry.Name
		res.Provider = providerName(entry)
		res.Role = entry.Role
		res.Verified = true
		res.Shift = e.expectedShift(ctx, entry.AssignmentID)
	}

	if err := e.store.CreateCheckIn(ctx, rec); err != nil {
		return nil, err
	}

	res.RecordID = rec.ID
	res.CheckInTime = &rec.CheckInTime
	res.SignInTime = &rec.SignInTime
	return res, nil
}

// expectedShift is informational only; a failed lookup leaves it empty.
func (e *Engine) expectedShift(ctx context.Context, assignmentID int64) *Shift {
	shift, err := e.store.EarliestShift(ctx, assignmentID)
	if err != nil {
		log.Printf("Warning: %v", err)
		return nil
	}
	if shift == nil {
		return nil
	}
	return &Shift{
		RoleType:    shift.RoleType,
		ShiftNumber: shift.ShiftNumber,
		StartTime:   shift.StartTime,
		EndTime:     shift.EndTime,
	}
}

// CheckInSteward records a steward by name. Duplicate and session rules do not
// apply: every call creates a new, verified record.
func (e *Engine) CheckInSteward(ctx context.Context, req StewardRequest) (*Result, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrStewardName
	}
	now := e.opts.Now()

	method := req.Method
	if method == "" {
		method = model.MethodManualEntry
	}
	rec := &model.CheckInRecord{
		EventID:       req.EventID,
		BadgeID:       model.StewardBadge,
		Verified:      true,
		CheckInMethod: parse.StoredMethod(method),
		CheckInTime:   now,
		SignInTime:    now,
	}

	provider, err := e.store.FindProviderByName(ctx, req.Provider)
	if err != nil {
		log.Printf("Warning: steward provider lookup failed, storing packed name: %v", err)
	}
	displayProvider := strings.TrimSpace(req.Provider)
	if provider != nil {
		rec.StaffName = name
		rec.ProviderID = &provider.ID
		displayProvider = provider.Name
	} else {
		rec.StaffName = parse.PackStewardName(name, req.Provider)
	}
	if displayProvider == "" {
		displayProvider = UnknownProvider
	}

	if err := e.store.CreateCheckIn(ctx, rec); err != nil {
		return e.fail(model.StewardBadge, err)
	}

	return &Result{
		Status:      StatusVerified,
		Message:     "Steward checked in",
		RecordID:    rec.ID,
		BadgeID:     model.StewardBadge,
		Name:        name,
		Provider:    displayProvider,
		Role:        StewardRole,
		Verified:    true,
		CheckInTime: &rec.CheckInTime,
		SignInTime:  &rec.SignInTime,
	}, nil
}

// enrich attaches a registry answer to res when the badge is a licence number
// and the answer arrives within RegistryWait. Lookup failures leave res as is.
func (e *Engine) enrich(ctx context.Context, res *Result) {
	if e.enricher == nil || !parse.IsLicenceNumber(res.BadgeID) {
		return
	}
	ch := e.enricher.Submit(res.BadgeID)
	if ch == nil {
		return
	}

	timer := time.NewTimer(e.opts.RegistryWait)
	defer timer.Stop()

	select {
	case r, ok := <-ch:
		if !ok {
			return
		}
		if r.Error != "" {
			log.Printf("Registry lookup for %s failed: %s", res.BadgeID, r.Error)
			return
		}
		res.Registry = &r
	case <-timer.C:
		log.Printf("Registry lookup for %s still running after %s; responding without it", res.BadgeID, e.opts.RegistryWait)
	case <-ctx.Done():
	}
}

func (e *Engine) fail(badgeID string, err error) (*Result, error) {
	log.Printf("Error recording scan of %s: %v", badgeID, err)
	return &Result{
		Status:  StatusError,
		Message: "Check-in could not be recorded",
		BadgeID: badgeID,
	}, fmt.Errorf("%w: %w", ErrStorage, err)
}
