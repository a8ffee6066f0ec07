package model

import "time"

// Provider is a staffing company supplying personnel to events.
type Provider struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:256;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment books a provider onto one event.
type Assignment struct {
	ID             int64  `gorm:"primaryKey" json:"id"`
	EventID        string `gorm:"size:64;not null;index" json:"event_id"`
	ProviderID     int64  `gorm:"not null;index" json:"provider_id"`
	StaffRequested int    `gorm:"not null;default:0" json:"staff_requested"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Associations
	Provider Provider `gorm:"constraint:OnDelete:CASCADE" json:"provider"`
}

// StaffDetail is one roster line uploaded by a provider for an assignment.
type StaffDetail struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	AssignmentID int64  `gorm:"not null;index" json:"assignment_id"`
	BadgeID      string `gorm:"size:64;not null;index" json:"badge_id"`
	Name         string `gorm:"size:256;not null" json:"name"`
	Role         string `gorm:"size:64" json:"role"`
	CreatedAt    time.Time

	// Associations
	Assignment Assignment `gorm:"constraint:OnDelete:CASCADE" json:"assignment"`
}
