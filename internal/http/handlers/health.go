package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/slotswap-backend/internal/data/txn"
)

type HealthHandler struct {
	capability *txn.Capability
	driver     string
}

func NewHealthHandler(capability *txn.Capability, driver string) *HealthHandler {
	return &HealthHandler{capability: capability, driver: driver}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	out := gin.H{"status": "ok", "driver": h.driver}
	if h.capability != nil {
		st := h.capability.Status()
		tx := gin.H{"mode": st.Mode, "probed": st.Probed}
		if !st.ProbedAt.IsZero() {
			tx["probed_at"] = st.ProbedAt.UTC().Format(time.RFC3339)
		}
		if st.Reason != "" {
			tx["reason"] = st.Reason
		}
		out["transactions"] = tx
	}
	c.JSON(http.StatusOK, out)
}
