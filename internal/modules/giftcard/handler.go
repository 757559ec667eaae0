package giftcard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"institut/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/giftcards", h.Issue)
	rg.GET("/giftcards/:code", h.GetByCode)
	rg.GET("/users/me/giftcards", h.ListMine)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/giftcards/:code/balance", h.Adjust)
	rg.PATCH("/giftcards/:code/cancel", h.Cancel)
}

func (h *Handler) Issue(c *gin.Context) {
	var req IssueGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	purchaserID := c.GetInt64("user_id")
	card, err := h.service.Issue(c.Request.Context(), IssueRequest{
		Amount:         req.Amount,
		PurchaserID:    &purchaserID,
		PurchasedFor:   req.PurchasedFor,
		RecipientEmail: req.RecipientEmail,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Amount must be positive")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue gift card")
		return
	}

	response.Success(c, http.StatusCreated, toResponse(card))
}

func (h *Handler) GetByCode(c *gin.Context) {
	card, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Gift card not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load gift card")
		return
	}
	response.Success(c, http.StatusOK, toResponse(card))
}

func (h *Handler) ListMine(c *gin.Context) {
	cards, err := h.service.ListByPurchaser(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load gift cards")
		return
	}

	out := make([]GiftCardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, toResponse(&cards[i]))
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Adjust(c *gin.Context) {
	var req AdjustGiftCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	card, err := h.service.AdminAdjust(c.Request.Context(), c.Param("code"), req.Balance)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Gift card not found")
		case errors.Is(err, ErrInvalidAmount):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Balance out of range")
		case errors.Is(err, ErrInvalidCard):
			response.Error(c, http.StatusConflict, "GIFTCARD_INVALID", "Gift card cannot be adjusted")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to adjust gift card")
		}
		return
	}

	response.Success(c, http.StatusOK, toResponse(card))
}

func (h *Handler) Cancel(c *gin.Context) {
	card, err := h.service.Cancel(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Gift card not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel gift card")
		return
	}
	response.Success(c, http.StatusOK, toResponse(card))
}
