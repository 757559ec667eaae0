package reservation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

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
	rg.POST("/reservations", h.Create)
	rg.GET("/reservations", h.ListMine)
	rg.GET("/reservations/:id", h.Get)
	rg.PATCH("/reservations/:id", h.Modify)
	rg.POST("/reservations/:id/cancel", h.Cancel)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/reservations", h.ListByDate)
	rg.POST("/reservations/:id/complete", h.Complete)
	rg.POST("/reservations/:id/cancel", h.AdminCancel)
}

// RegisterPaymentRoutes mounts the payment-provider callback. It sits
// behind the internal token, not user auth.
func (h *Handler) RegisterPaymentRoutes(rg *gin.RouterGroup) {
	rg.POST("/reservations/:id/payment", h.SetPaymentStatus)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, warnings, err := h.service.Create(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toResponse(res, warnings))
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.service.GetByID(c.Request.Context(), id, c.GetInt64("user_id"), isAdmin(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(res, nil))
}

func (h *Handler) ListMine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.service.ListByUser(c.Request.Context(), c.GetInt64("user_id"), limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load reservations")
		return
	}
	response.Success(c, http.StatusOK, toResponseList(list))
}

func (h *Handler) ListByDate(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "date query parameter is required")
		return
	}
	list, err := h.service.ListByDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load reservations")
		return
	}
	response.Success(c, http.StatusOK, toResponseList(list))
}

func (h *Handler) Modify(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req ModifyReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.Modify(c.Request.Context(), id, c.GetInt64("user_id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(res, nil))
}

func (h *Handler) Cancel(c *gin.Context) {
	h.cancel(c, false)
}

func (h *Handler) AdminCancel(c *gin.Context) {
	h.cancel(c, true)
}

func (h *Handler) cancel(c *gin.Context, admin bool) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.service.Cancel(c.Request.Context(), id, c.GetInt64("user_id"), admin)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(res, nil))
}

func (h *Handler) SetPaymentStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.SetPaymentStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(res, nil))
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	res, err := h.service.Complete(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toResponse(res, nil))
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSlotUnavailable):
		response.Error(c, http.StatusConflict, "SLOT_UNAVAILABLE", "The requested slot is not available")
	case errors.Is(err, ErrDiscountAlreadyUsed):
		response.Error(c, http.StatusConflict, "DISCOUNT_ALREADY_USED", "The discount has already been used")
	case errors.Is(err, ErrDiscountInvalid):
		response.Error(c, http.StatusUnprocessableEntity, "DISCOUNT_INVALID", "The discount cannot be applied")
	case errors.Is(err, ErrGiftCardInvalid):
		response.Error(c, http.StatusUnprocessableEntity, "GIFT_CARD_INVALID", "The gift card cannot be applied")
	case errors.Is(err, ErrUnknownService):
		response.Error(c, http.StatusUnprocessableEntity, "UNKNOWN_SERVICE", "One or more services are unknown or inactive")
	case errors.Is(err, ErrNotModifiable):
		response.Error(c, http.StatusConflict, "NOT_MODIFIABLE", "The reservation can no longer be changed")
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Reservation not found")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process reservation")
	}
}

func toResponseList(list []domain.Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i], nil))
	}
	return out
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid reservation ID")
		return 0, false
	}
	return id, true
}

func isAdmin(c *gin.Context) bool {
	return c.GetString("role") == string(domain.RoleAdmin)
}
