package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"gate-checkin-backend/internal/model"
)

// ErrSessionClosed is returned when a sign-out targets a record that is no
// longer open, typically because a concurrent scan closed it first.
var ErrSessionClosed = errors.New("check-in session already closed")

// Store defines the interface for all database operations of the gate.
// Every query is an equality, order or limit query; nothing spans a
// multi-statement transaction.
type Store interface {
	LatestCheckInSince(ctx context.Context, eventID, badgeID string, since time.Time) (*model.CheckInRecord, error)
	LatestActivitySince(ctx context.Context, eventID, badgeID string, since time.Time) (*model.CheckInRecord, error)
	FindOpenCheckIn(ctx context.Context, eventID, badgeID string) (*model.CheckInRecord, error)
	FindRosterEntries(ctx context.Context, eventID, badgeID string) ([]model.StaffDetail, error)
	FindStaffDetail(ctx context.Context, id int64) (*model.StaffDetail, error)
	FindProvider(ctx context.Context, id int64) (*model.Provider, error)
	FindProviderByName(ctx context.Context, name string) (*model.Provider, error)
	EarliestShift(ctx context.Context, assignmentID int64) (*model.ShiftTime, error)

	CreateCheckIn(ctx context.Context, rec *model.CheckInRecord) error
	CloseCheckIn(ctx context.Context, id string, at time.Time, closedBy string) error

	ListCheckIns(ctx context.Context, eventID string) ([]model.CheckInRecord, error)
	ListAssignments(ctx context.Context, eventID string) ([]model.Assignment, error)
	ListRosterBadges(ctx context.Context, eventID string) ([]string, error)
	ListOpenCheckInsBefore(ctx context.Context, cutoff time.Time) ([]model.CheckInRecord, error)
	DeleteCheckIns(ctx context.Context, ids []string) (int64, error)

	ListPackedStewardRecords(ctx context.Context) ([]model.CheckInRecord, error)
	ResolveStewardProvider(ctx context.Context, id, name string, providerID int64) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for health checks and migrations.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// LatestCheckInSince returns the newest record of the badge at the event whose
// check_in_time is after since, or nil.
func (s *gormStore) LatestCheckInSince(ctx context.Context, eventID, badgeID string, since time.Time) (*model.CheckInRecord, error) {
	var records []model.CheckInRecord
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND badge_id = ? AND check_in_time > ?", eventID, badgeID, since).
		Order("check_in_time DESC").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent check-ins for %s at %s: %w", badgeID, eventID, err)
	}
	return first(records), nil
}

// LatestActivitySince is LatestCheckInSince keyed on the most recent of the
// sign-in and sign-out times.
func (s *gormStore) LatestActivitySince(ctx context.Context, eventID, badgeID string, since time.Time) (*model.CheckInRecord, error) {
	var records []model.CheckInRecord
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND badge_id = ?", eventID, badgeID).
		Where("(check_in_time > ? OR sign_out_time > ?)", since, since).
		Order("check_in_time DESC").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent activity for %s at %s: %w", badgeID, eventID, err)
	}
	return first(records), nil
}

// FindOpenCheckIn returns the record still waiting for its sign-out, or nil.
func (s *gormStore) FindOpenCheckIn(ctx context.Context, eventID, badgeID string) (*model.CheckInRecord, error) {
	var records []model.CheckInRecord
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND badge_id = ? AND sign_out_time IS NULL", eventID, badgeID).
		Order("check_in_time DESC").
		Limit(1).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query open check-in for %s at %s: %w", badgeID, eventID, err)
	}
	return first(records), nil
}

// FindRosterEntries returns every roster line for the badge whose assignment
// belongs to the event. The lookup is never global.
func (s *gormStore) FindRosterEntries(ctx context.Context, eventID, badgeID string) ([]model.StaffDetail, error) {
	var entries []model.StaffDetail
	err := s.db.WithContext(ctx).
		Joins("JOIN assignments ON assignments.id = staff_details.assignment_id").
		Where("assignments.event_id = ? AND staff_details.badge_id = ?", eventID, badgeID).
		Preload("Assignment.Provider").
		Order("staff_details.id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query roster for %s at %s: %w", badgeID, eventID, err)
	}
	return entries, nil
}

// FindStaffDetail loads a roster line with its assignment and provider, or nil.
func (s *gormStore) FindStaffDetail(ctx context.Context, id int64) (*model.StaffDetail, error) {
	var entries []model.StaffDetail
	err := s.db.WithContext(ctx).
		Preload("Assignment.Provider").
		Where("id = ?", id).
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load staff detail %d: %w", id, err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

// FindProvider returns the provider with the given id, or nil.
func (s *gormStore) FindProvider(ctx context.Context, id int64) (*model.Provider, error) {
	var providers []model.Provider
	if err := s.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&providers).Error; err != nil {
		return nil, fmt.Errorf("failed to load provider %d: %w", id, err)
	}
	if len(providers) == 0 {
		return nil, nil
	}
	return &providers[0], nil
}

// FindProviderByName matches a provider name case-insensitively, or returns nil.
func (s *gormStore) FindProviderByName(ctx context.Context, name string) (*model.Provider, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var providers []model.Provider
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Order("id").
		Limit(1).
		Find(&providers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up provider %q: %w", name, err)
	}
	if len(providers) == 0 {
		return nil, nil
	}
	return &providers[0], nil
}

// EarliestShift returns the lowest-numbered shift of the assignment, or nil.
func (s *gormStore) EarliestShift(ctx context.Context, assignmentID int64) (*model.ShiftTime, error) {
	var shifts []model.ShiftTime
	err := s.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("shift_number").
		Limit(1).
		Find(&shifts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts for assignment %d: %w", assignmentID, err)
	}
	if len(shifts) == 0 {
		return nil, nil
	}
	return &shifts[0], nil
}

// CreateCheckIn inserts a new sign-in record.
func (s *gormStore) CreateCheckIn(ctx context.Context, rec *model.CheckInRecord) error {
	if err := s.db.WithContext(ctx).Omit("StaffDetail", "Provider").Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create check-in for %s at %s: %w", rec.BadgeID, rec.EventID, err)
	}
	return nil
}

// CloseCheckIn stamps the sign-out time on an open record.
func (s *gormStore) CloseCheckIn(ctx context.Context, id string, at time.Time, closedBy string) error {
	res := s.db.WithContext(ctx).
		Model(&model.CheckInRecord{}).
		Where("id = ? AND sign_out_time IS NULL", id).
		Updates(map[string]any{"sign_out_time": at, "closed_by": closedBy})
	if res.Error != nil {
		return fmt.Errorf("failed to close check-in %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSessionClosed
	}
	return nil
}

// ListCheckIns returns every record of the event, newest first, with the
// roster line and provider needed for display.
func (s *gormStore) ListCheckIns(ctx context.Context, eventID string) ([]model.CheckInRecord, error) {
	var records []model.CheckInRecord
	err := s.db.WithContext(ctx).
		Preload("StaffDetail.Assignment.Provider").
		Preload("Provider").
		Where("event_id = ?", eventID).
		Order("check_in_time DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins for %s: %w", eventID, err)
	}
	return records, nil
}

// ListAssignments returns the provider bookings of the event.
func (s *gormStore) ListAssignments(ctx context.Context, eventID string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for %s: %w", eventID, err)
	}
	return assignments, nil
}

// ListRosterBadges returns the badge of every roster line uploaded for the event.
func (s *gormStore) ListRosterBadges(ctx context.Context, eventID string) ([]string, error) {
	var badges []string
	err := s.db.WithContext(ctx).
		Model(&model.StaffDetail{}).
		Joins("JOIN assignments ON assignments.id = staff_details.assignment_id").
		Where("assignments.event_id = ?", eventID).
		Pluck("staff_details.badge_id", &badges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roster for %s: %w", eventID, err)
	}
	return badges, nil
}

// ListOpenCheckInsBefore returns open records signed in before cutoff.
func (s *gormStore) ListOpenCheckInsBefore(ctx context.Context, cutoff time.Time) ([]model.CheckInRecord, error) {
	var records []model.CheckInRecord
	err := s.db.WithContext(ctx).
		Where("sign_out_time IS NULL AND sign_in_time < ?", cutoff).
		Order("sign_in_time").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	return records, nil
}

// DeleteCheckIns removes records by id and reports how many were deleted.
func (s *gormStore) DeleteCheckIns(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.CheckInRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete %d check-ins: %w", len(ids), res.Error)
	}
	return res.RowsAffected, nil
}

// ListPackedStewardRecords returns steward records still carrying a packed
// "Name | Provider" display name and no provider reference.
func (s *gormStore) ListPackedStewardRecords(ctx context.Context) ([]model.CheckInRecord, error) {
	var records []model.CheckInRecord
	err := s.db.WithContext(ctx).
		Where("badge_id = ? AND provider_id IS NULL AND staff_name LIKE ?", model.StewardBadge, "%|%").
		Order("check_in_time").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list packed steward records: %w", err)
	}
	return records, nil
}

// ResolveStewardProvider replaces a packed steward name with the bare name and
// a provider reference.
func (s *gormStore) ResolveStewardProvider(ctx context.Context, id, name string, providerID int64) error {
	res := s.db.WithContext(ctx).
		Model(&model.CheckInRecord{}).
		Where("id = ? AND provider_id IS NULL", id).
		Updates(map[string]any{"staff_name": name, "provider_id": providerID})
	if res.Error != nil {
		return fmt.Errorf("failed to resolve provider for steward record %s: %w", id, res.Error)
	}
	return nil
}

func first(records []model.CheckInRecord) *model.CheckInRecord {
	if len(records) == 0 {
		return nil
	}
	return &records[0]
}
