package giftcard

import "institut/internal/domain"

type IssueGiftCardRequest struct {
	Amount         float64 `json:"amount" binding:"required,gt=0"`
	PurchasedFor   string  `json:"purchased_for"`
	RecipientEmail string  `json:"recipient_email"`
}

type AdjustGiftCardRequest struct {
	Balance float64 `json:"balance"`
}

type GiftCardResponse struct {
	Code          string  `json:"code"`
	InitialAmount float64 `json:"initial_amount"`
	Balance       float64 `json:"balance"`
	Status        string  `json:"status"`
	ExpiryDate    string  `json:"expiry_date"`
}

func toResponse(card *domain.GiftCard) GiftCardResponse {
	return GiftCardResponse{
		Code:          card.Code,
		InitialAmount: card.InitialAmount,
		Balance:       card.Balance,
		Status:        string(card.Status),
		ExpiryDate:    card.ExpiryDate.Format(domain.DateFormat),
	}
}
