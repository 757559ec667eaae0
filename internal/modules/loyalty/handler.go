package loyalty

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
	rg.GET("/users/me/loyalty", h.GetMyProfile)
	rg.POST("/referrals/redeem", h.RedeemReferral)
}

func (h *Handler) GetMyProfile(c *gin.Context) {
	profile, err := h.service.GetProfile(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load loyalty profile")
		return
	}
	response.Success(c, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) RedeemReferral(c *gin.Context) {
	var req RedeemReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	_, reward, err := h.service.RedeemReferralCode(c.Request.Context(), c.GetInt64("user_id"), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyReferred):
			response.Error(c, http.StatusConflict, "ALREADY_REFERRED", "User already has a referrer")
		case errors.Is(err, ErrInvalidCode):
			response.Error(c, http.StatusBadRequest, "INVALID_CODE", "Invalid referral code")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to redeem referral code")
		}
		return
	}

	response.Success(c, http.StatusCreated, RedeemReferralResponse{
		DiscountID: reward.ID.String(),
		Amount:     reward.Amount,
		Status:     string(reward.Status),
	})
}
