package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckInMethod records how a badge reached the gate.
type CheckInMethod string

const (
	MethodQRScan      CheckInMethod = "qr_scan"
	MethodManualEntry CheckInMethod = "manual_entry"
	// MethodOCRScan is accepted as input only; it is stored as MethodQRScan.
	MethodOCRScan CheckInMethod = "ocr_scan"
)

// StewardBadge is the badge sentinel for staff checked in by name only.
const StewardBadge = "STEWARD"

// Values of CheckInRecord.ClosedBy.
const (
	ClosedByScan      = "scan"
	ClosedByReconcile = "reconcile"
)

// CheckInRecord is one sign-in at an event gate, closed by the paired sign-out.
// At most one record per (event_id, badge_id) has a nil SignOutTime; the engine
// enforces this by reading before it writes.
type CheckInRecord struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	EventID       string        `gorm:"size:64;not null;index:idx_checkin_event_badge,priority:1" json:"event_id"`
	BadgeID       string        `gorm:"size:64;not null;index:idx_checkin_event_badge,priority:2" json:"badge_id"`
	StaffDetailID *int64        `gorm:"index" json:"staff_detail_id"`
	StaffName     string        `gorm:"size:256;not null" json:"staff_name"`
	ProviderID    *int64        `gorm:"index" json:"provider_id"`
	Verified      bool          `gorm:"not null" json:"verified"`
	IsDuplicate   bool          `gorm:"not null" json:"is_duplicate"`
	CheckInMethod CheckInMethod `gorm:"size:16;not null" json:"check_in_method"`
	CheckInTime   time.Time     `gorm:"not null;index" json:"check_in_time"`
	SignInTime    time.Time     `gorm:"not null" json:"sign_in_time"`
	SignOutTime   *time.Time    `json:"sign_out_time"`
	ClosedBy      string        `gorm:"size:16" json:"closed_by,omitempty"`

	// Associations
	StaffDetail *StaffDetail `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Provider    *Provider    `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

// BeforeCreate assigns a random identifier to new records.
func (r *CheckInRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsOpen reports whether the record is still waiting for its sign-out.
func (r *CheckInRecord) IsOpen() bool {
	return r.SignOutTime == nil
}

// LastActivity is the most recent of the sign-in and sign-out times.
func (r *CheckInRecord) LastActivity() time.Time {
	if r.SignOutTime != nil && r.SignOutTime.After(r.SignInTime) {
		return *r.SignOutTime
	}
	return r.SignInTime
}
