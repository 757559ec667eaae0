package notification

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"institut/internal/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	service *Service
	hub     *Hub
}

func NewHandler(service *Service, hub *Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// RegisterDispatcherRoutes mounts the dispatcher surface. The group is
// expected to carry the internal-token middleware.
func (h *Handler) RegisterDispatcherRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	{
		g.GET("/ws", h.Stream)
		g.GET("/pending", h.ListPending)
		g.PATCH("/dispatched", h.Ack)
	}
}

func (h *Handler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("notification: websocket upgrade failed: %v", err)
		return
	}

	id := h.hub.Register(conn)
	log.Printf("notification: dispatcher %d connected", id)

	defer func() {
		h.hub.Unregister(id)
		log.Printf("notification: dispatcher %d disconnected", id)
	}()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})
	go pingLoop(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}
	}
}

func (h *Handler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	list, err := h.service.ListPending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load pending notifications")
		return
	}
	response.Success(c, http.StatusOK, list)
}

type ackRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

func (h *Handler) Ack(c *gin.Context) {
	var req ackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.Ack(c.Request.Context(), req.IDs); err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to mark notifications dispatched")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"acked": len(req.IDs)})
}
