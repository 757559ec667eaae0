package domain

import "time"

type ServiceKind string

const (
	ServiceIndividual ServiceKind = "individual"
	ServicePackage    ServiceKind = "package"
)

// Service is a bookable catalog entry (facial, manicure, a multi-session
// package, ...). Prices feed reservation totals; Kind feeds loyalty counters.
type Service struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name" validate:"required"`
	Description     string      `json:"description,omitempty" gorm:"type:text"`
	Price           float64     `json:"price" validate:"required,gte=0"`
	Kind            ServiceKind `json:"kind"`
	DurationMinutes int         `json:"duration_minutes"`
	IsActive        bool        `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
