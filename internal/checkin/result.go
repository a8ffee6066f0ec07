package checkin

import (
	"time"

	"gate-checkin-backend/internal/model"
	"gate-checkin-backend/internal/registry"
)

// Status is the outcome of one gate scan.
type Status string

const (
	StatusVerified  Status = "verified"
	StatusUnlisted  Status = "unlisted"
	StatusDuplicate Status = "duplicate"
	StatusSignedOut Status = "signed_out"
	StatusError     Status = "error"
)

const (
	UnknownStaff    = "Unknown Staff"
	UnknownProvider = "Unknown Provider"
)

// ScanRequest is one badge presented at a gate.
type ScanRequest struct {
	EventID string
	Raw     string
	Method  model.CheckInMethod
}

// StewardRequest checks in a steward by name.
type StewardRequest struct {
	EventID  string
	Name     string
	Provider string
	Method   model.CheckInMethod
}

// Shift is the informational expected shift shown to the operator.
type Shift struct {
	RoleType    string `json:"role_type,omitempty"`
	ShiftNumber int    `json:"shift_number"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// Result is returned to the gate operator for every scan.
type Result struct {
	Status      Status           `json:"status"`
	Message     string           `json:"message"`
	RecordID    string           `json:"record_id,omitempty"`
	BadgeID     string           `json:"badge_id"`
	Name        string           `json:"name,omitempty"`
	Provider    string           `json:"provider,omitempty"`
	Role        string           `json:"role,omitempty"`
	Verified    bool             `json:"verified"`
	CheckInTime *time.Time       `json:"check_in_time,omitempty"`
	SignInTime  *time.Time       `json:"sign_in_time,omitempty"`
	SignOutTime *time.Time       `json:"sign_out_time,omitempty"`
	Shift       *Shift           `json:"shift,omitempty"`
	Registry    *registry.Result `json:"registry,omitempty"`
}
