package reservation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"institut/internal/domain"
)

type CreateReservationRequest struct {
	Date         string     `json:"date" binding:"required"`
	Time         string     `json:"time" binding:"required"`
	ServiceIDs   []int64    `json:"service_ids" binding:"required,min=1"`
	GiftCardCode string     `json:"gift_card_code"`
	DiscountID   *uuid.UUID `json:"discount_id"`
	Notes        string     `json:"notes"`
}

type ModifyReservationRequest struct {
	Date       *string `json:"date"`
	Time       *string `json:"time"`
	ServiceIDs []int64 `json:"service_ids"`
	Notes      *string `json:"notes"`
}

type PaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ReservationResponse struct {
	ID                 int64    `json:"id"`
	UserID             int64    `json:"user_id"`
	Date               string   `json:"date"`
	Time               string   `json:"time"`
	ServiceIDs         []int64  `json:"service_ids"`
	TotalPrice         float64  `json:"total_price"`
	Status             string   `json:"status"`
	PaymentStatus      string   `json:"payment_status"`
	GiftCardUsedAmount float64  `json:"gift_card_used_amount,omitempty"`
	DiscountID         *string  `json:"discount_id,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	CreatedAt          string   `json:"created_at"`
	Warnings           []string `json:"warnings,omitempty"`
}

func toResponse(r *domain.Reservation, warnings []string) ReservationResponse {
	out := ReservationResponse{
		ID:                 r.ID,
		UserID:             r.UserID,
		Date:               r.Date,
		Time:               r.Time,
		TotalPrice:         r.TotalPrice,
		Status:             string(r.Status),
		PaymentStatus:      string(r.PaymentStatus),
		GiftCardUsedAmount: r.GiftCardUsedAmount,
		Notes:              r.Notes,
		CreatedAt:          r.CreatedAt.Format(time.RFC3339),
		Warnings:           warnings,
	}
	_ = json.Unmarshal(r.Services, &out.ServiceIDs)
	if r.DiscountID != nil {
		v := r.DiscountID.String()
		out.DiscountID = &v
	}
	return out
}
