package discount

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"institut/internal/domain"
	"institut/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me/discounts", h.ListMine)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/discounts", h.Grant)
	rg.POST("/discounts/:id/postpone", h.Postpone)
	rg.POST("/discounts/:id/activate", h.Activate)
}

func (h *Handler) ListMine(c *gin.Context) {
	discounts, err := h.service.ListForUser(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load discounts")
		return
	}

	now := time.Now()
	out := make([]DiscountResponse, 0, len(discounts))
	for i := range discounts {
		out = append(out, toResponse(&discounts[i], now))
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Grant(c *gin.Context) {
	var req GrantDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	status := domain.DiscountStatus(req.Status)
	if req.Status == "" {
		status = domain.DiscountAvailable
	}

	d, err := h.service.Grant(c.Request.Context(), req.UserID, domain.DiscountType(req.Type), req.Amount, status, req.ExpiresAt)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidStatus):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to grant discount")
		}
		return
	}

	response.Success(c, http.StatusCreated, toResponse(d, time.Now()))
}

func (h *Handler) Postpone(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid discount ID")
		return
	}

	var req PostponeDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	successor, err := h.service.Postpone(c.Request.Context(), id, req.NewExpiry)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Discount not found")
		case errors.Is(err, ErrInvalidTransition):
			response.Error(c, http.StatusConflict, "DISCOUNT_INVALID", "Only available discounts can be postponed")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to postpone discount")
		}
		return
	}

	response.Success(c, http.StatusCreated, toResponse(successor, time.Now()))
}

func (h *Handler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid discount ID")
		return
	}

	d, err := h.service.Activate(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Discount not found")
		case errors.Is(err, ErrInvalidTransition):
			response.Error(c, http.StatusConflict, "DISCOUNT_INVALID", "Only pending discounts can be activated")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to activate discount")
		}
		return
	}

	response.Success(c, http.StatusOK, toResponse(d, time.Now()))
}
