package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/slotswap-backend/internal/domain"
	"github.com/yungbote/slotswap-backend/internal/http/response"
	"github.com/yungbote/slotswap-backend/internal/services"
)

// EventHandler serves the caller's calendar events (slots).
type EventHandler struct {
	slotService services.SlotService
}

func NewEventHandler(slotService services.SlotService) *EventHandler {
	return &EventHandler{slotService: slotService}
}

// GET /api/events
func (eh *EventHandler) List(c *gin.Context) {
	slots, err := eh.slotService.ListMine(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": slots})
}

// POST /api/events
func (eh *EventHandler) Create(c *gin.Context) {
	var req struct {
		Title     string           `json:"title"`
		StartTime time.Time        `json:"start_time"`
		EndTime   time.Time        `json:"end_time"`
		Status    types.SlotStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	slot, err := eh.slotService.Create(c.Request.Context(), services.CreateSlotInput{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"event": slot})
}

// PATCH /api/events/:id
func (eh *EventHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title     *string           `json:"title"`
		StartTime *time.Time        `json:"start_time"`
		EndTime   *time.Time        `json:"end_time"`
		Status    *types.SlotStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	slot, err := eh.slotService.Update(c.Request.Context(), id, services.UpdateSlotInput{
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    req.Status,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"event": slot})
}

// DELETE /api/events/:id
func (eh *EventHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := eh.slotService.Delete(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
