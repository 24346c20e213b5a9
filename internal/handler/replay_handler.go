package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/service"
	"github.com/fieldtrace/replay-backend-go/pkg/response"
)

// ReplayHandler handles HTTP requests for replay sessions
type ReplayHandler struct {
	replayService *service.ReplayService
}

// NewReplayHandler creates a new replay handler
func NewReplayHandler(replayService *service.ReplayService) *ReplayHandler {
	return &ReplayHandler{
		replayService: replayService,
	}
}

// OpenRequest is the body of a session-open call
type OpenRequest struct {
	SubjectID   string  `json:"subjectId" binding:"required"`
	Date        string  `json:"date" binding:"required"`
	RateSeconds float64 `json:"rateSeconds"`
}

// Open handles POST /api/v1/replay/sessions
func (h *ReplayHandler) Open(c *gin.Context) {
	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid session body")
		return
	}

	view, err := h.replayService.Open(c.Request.Context(), req.SubjectID, req.Date, req.RateSeconds)
	if err != nil {
		if strings.Contains(err.Error(), "no points stored") {
			response.NotFound(c, err.Error())
			return
		}
		response.InternalError(c, err.Error())
		return
	}

	response.Created(c, view)
}

// Get handles GET /api/v1/replay/sessions/:id
func (h *ReplayHandler) Get(c *gin.Context) {
	view, err := h.replayService.Get(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, view)
}

// State handles GET /api/v1/replay/sessions/:id/state
func (h *ReplayHandler) State(c *gin.Context) {
	state, err := h.replayService.State(c.Param("id"))
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, state)
}

// Command handles POST /api/v1/replay/sessions/:id/commands
func (h *ReplayHandler) Command(c *gin.Context) {
	var req service.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid command body")
		return
	}

	state, err := h.replayService.Command(c.Param("id"), req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			response.NotFound(c, err.Error())
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, state)
}

// ConfirmFraming handles POST /api/v1/replay/sessions/:id/framing-done
func (h *ReplayHandler) ConfirmFraming(c *gin.Context) {
	if err := h.replayService.ConfirmFraming(c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, gin.H{"confirmed": true})
}

// RenderPolicies handles GET /api/v1/replay/render-policies
func (h *ReplayHandler) RenderPolicies(c *gin.Context) {
	response.Success(c, models.RenderPolicies)
}

// Close handles DELETE /api/v1/replay/sessions/:id
func (h *ReplayHandler) Close(c *gin.Context) {
	if err := h.replayService.Close(c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, gin.H{"closed": true})
}
