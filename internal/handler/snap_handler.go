package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrace/replay-backend-go/internal/service"
	"github.com/fieldtrace/replay-backend-go/internal/snapcache"
	"github.com/fieldtrace/replay-backend-go/pkg/response"
)

// SnapHandler handles HTTP requests for road snapping
type SnapHandler struct {
	replayService *service.ReplayService
	snapService   *snapcache.Service
}

// NewSnapHandler creates a new snap handler
func NewSnapHandler(replayService *service.ReplayService, snapService *snapcache.Service) *SnapHandler {
	return &SnapHandler{
		replayService: replayService,
		snapService:   snapService,
	}
}

// SnapSessionRequest selects which sources of a session to snap
type SnapSessionRequest struct {
	SourceFilter string `json:"sourceFilter"`
}

// SnapSession handles POST /api/v1/replay/sessions/:id/snap
func (h *SnapHandler) SnapSession(c *gin.Context) {
	var req SnapSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "Invalid snap body")
		return
	}

	stats, err := h.replayService.Snap(c.Request.Context(), c.Param("id"), req.SourceFilter)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, stats)
}

// Stats handles GET /api/v1/snap/stats
func (h *SnapHandler) Stats(c *gin.Context) {
	response.Success(c, h.snapService.Stats())
}
