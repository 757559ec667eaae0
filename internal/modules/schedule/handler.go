package schedule

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
	rg.GET("/schedule/slots", h.GetSlots)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/schedule/working-hours", h.ListWorkingHours)
	rg.PUT("/schedule/working-hours/:weekday", h.UpsertWorkingHours)
	rg.GET("/schedule/blocks", h.ListBlocks)
	rg.POST("/schedule/blocks", h.CreateBlock)
	rg.DELETE("/schedule/blocks/:id", h.DeleteBlock)
}

func (h *Handler) GetSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "date query parameter is required")
		return
	}

	slots, err := h.service.GetAvailableSlots(c.Request.Context(), date)
	if err != nil {
		if errors.Is(err, ErrInvalidDate) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid date, expected YYYY-MM-DD")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load slots")
		return
	}

	response.Success(c, http.StatusOK, SlotsResponse{Date: date, Slots: slots})
}

func (h *Handler) ListWorkingHours(c *gin.Context) {
	hours, err := h.service.ListWorkingHours(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load working hours")
		return
	}
	response.Success(c, http.StatusOK, hours)
}

func (h *Handler) UpsertWorkingHours(c *gin.Context) {
	weekday, err := strconv.Atoi(c.Param("weekday"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid weekday")
		return
	}

	var req UpsertWorkingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	hours, err := h.service.UpsertWorkingHours(c.Request.Context(), weekday, req.IsOpen, req.StartTime, req.EndTime)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidTime), errors.Is(err, ErrInvalidRange):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save working hours")
		}
		return
	}

	response.Success(c, http.StatusOK, hours)
}

func (h *Handler) ListBlocks(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "date query parameter is required")
		return
	}

	blocks, err := h.service.ListBlocks(c.Request.Context(), date)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load blocks")
		return
	}
	response.Success(c, http.StatusOK, blocks)
}

func (h *Handler) CreateBlock(c *gin.Context) {
	var req CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	block := domain.BlockedSlot{
		Date:      req.Date,
		AllDay:    req.AllDay,
		Time:      req.Time,
		Reason:    req.Reason,
		CreatedBy: c.GetInt64("user_id"),
	}
	if err := h.service.CreateBlock(c.Request.Context(), &block); err != nil {
		switch {
		case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidTime):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		case errors.Is(err, ErrDayAlreadyBlocked):
			response.Error(c, http.StatusConflict, "DAY_ALREADY_BLOCKED", "Day already has an all-day block")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create block")
		}
		return
	}

	response.Success(c, http.StatusCreated, block)
}

func (h *Handler) DeleteBlock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid block ID")
		return
	}

	if err := h.service.DeleteBlock(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Block not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete block")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
