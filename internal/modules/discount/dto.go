package discount

import (
	"time"

	"institut/internal/domain"
)

type GrantDiscountRequest struct {
	UserID    int64      `json:"user_id" binding:"required"`
	Type      string     `json:"type" binding:"required"`
	Amount    float64    `json:"amount" binding:"required,gt=0"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type PostponeDiscountRequest struct {
	NewExpiry time.Time `json:"new_expiry" binding:"required"`
}

type DiscountResponse struct {
	ID            string  `json:"id"`
	UserID        int64   `json:"user_id"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	ExpiresAt     *string `json:"expires_at,omitempty"`
	PostponedFrom *string `json:"postponed_from,omitempty"`
	PostponedTo   *string `json:"postponed_to,omitempty"`
}

func toResponse(d *domain.Discount, now time.Time) DiscountResponse {
	out := DiscountResponse{
		ID:     d.ID.String(),
		UserID: d.UserID,
		Type:   string(d.Type),
		Amount: d.Amount,
		Status: string(EffectiveStatus(d, now)),
	}
	if d.ExpiresAt != nil {
		v := d.ExpiresAt.Format(time.RFC3339)
		out.ExpiresAt = &v
	}
	if d.PostponedFrom != nil {
		v := d.PostponedFrom.String()
		out.PostponedFrom = &v
	}
	if d.PostponedTo != nil {
		v := d.PostponedTo.String()
		out.PostponedTo = &v
	}
	return out
}
