package model

// ShiftTime is one scheduled shift of an assignment. Times are wall-clock
// strings ("18:00") as entered by the event office.
type ShiftTime struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	AssignmentID int64  `gorm:"not null;index" json:"assignment_id"`
	RoleType     string `gorm:"size:64" json:"role_type"`
	ShiftNumber  int    `gorm:"not null" json:"shift_number"`
	StartTime    string `gorm:"size:16" json:"start_time"`
	EndTime      string `gorm:"size:16" json:"end_time"`

	// Associations
	Assignment Assignment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
