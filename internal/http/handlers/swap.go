package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/slotswap-backend/internal/http/response"
	"github.com/yungbote/slotswap-backend/internal/services"
)

type SwapHandler struct {
	swapService services.SwapService
}

func NewSwapHandler(swapService services.SwapService) *SwapHandler {
	return &SwapHandler{swapService: swapService}
}

// GET /api/swappable-slots
func (sh *SwapHandler) SwappableSlots(c *gin.Context) {
	slots, err := sh.swapService.AvailableSlots(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"slots": slots})
}

// POST /api/swap-requests
// body: { "mySlotId": "...", "theirSlotId": "..." }
func (sh *SwapHandler) Create(c *gin.Context) {
	var req struct {
		MySlotID    string `json:"mySlotId"`
		TheirSlotID string `json:"theirSlotId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mine, err := uuid.Parse(req.MySlotID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	theirs, err := uuid.Parse(req.TheirSlotID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	out, err := sh.swapService.CreateRequest(c.Request.Context(), mine, theirs)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"swap_request": out})
}

// GET /api/swap-requests/incoming
func (sh *SwapHandler) Incoming(c *gin.Context) {
	rows, err := sh.swapService.Incoming(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"swap_requests": rows})
}

// GET /api/swap-requests/outgoing
func (sh *SwapHandler) Outgoing(c *gin.Context) {
	rows, err := sh.swapService.Outgoing(c.Request.Context())
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"swap_requests": rows})
}

// POST /api/swap-requests/:id/accept
func (sh *SwapHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := sh.swapService.Accept(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"swap_request": out})
}

// POST /api/swap-requests/:id/reject
func (sh *SwapHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	out, err := sh.swapService.Reject(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"swap_request": out})
}

// DELETE /api/swap-requests/:id
func (sh *SwapHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := sh.swapService.Cancel(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "message": "swap request cancelled"})
}

// GET /api/swap-requests/:id/events
func (sh *SwapHandler) Events(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	evs, err := sh.swapService.Events(c.Request.Context(), id)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": evs})
}
