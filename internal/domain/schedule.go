package domain

import "time"

// WorkingHours holds the institute's opening hours for one weekday
// (0 = Sunday ... 6 = Saturday). Times are "HH:MM" wall-clock values.
type WorkingHours struct {
	ID        int64     `json:"id"`
	Weekday   int       `json:"weekday" gorm:"uniqueIndex" validate:"gte=0,lte=6"`
	IsOpen    bool      `json:"is_open"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BlockedSlot marks a whole day or a single slot as unbookable.
// Time is nil iff AllDay is set. Created and deleted by admin action only.
type BlockedSlot struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date" validate:"required"` // YYYY-MM-DD
	AllDay    bool      `json:"all_day"`
	Time      *string   `json:"time,omitempty"` // HH:MM, nil for all-day blocks
	Reason    string    `json:"reason,omitempty"`
	CreatedBy int64     `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Slot is one bookable position in a day's schedule.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"

	SlotDurationMinutes = 30
)
