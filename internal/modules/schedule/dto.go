package schedule

import "institut/internal/domain"

type SlotsResponse struct {
	Date  string        `json:"date"`
	Slots []domain.Slot `json:"slots"`
}

type UpsertWorkingHoursRequest struct {
	IsOpen    bool   `json:"is_open"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type CreateBlockRequest struct {
	Date   string  `json:"date" binding:"required"`
	AllDay bool    `json:"all_day"`
	Time   *string `json:"time"`
	Reason string  `json:"reason"`
}
