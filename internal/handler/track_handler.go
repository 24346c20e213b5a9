package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/fieldtrace/replay-backend-go/internal/models"
	"github.com/fieldtrace/replay-backend-go/internal/service"
	"github.com/fieldtrace/replay-backend-go/pkg/response"
)

// TrackHandler handles HTTP requests for trace ingestion and retrieval
type TrackHandler struct {
	trackService *service.TrackService
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(trackService *service.TrackService) *TrackHandler {
	return &TrackHandler{
		trackService: trackService,
	}
}

// IngestRequest is the body of a day-trace ingestion call
type IngestRequest struct {
	SubjectID string            `json:"subjectId" binding:"required"`
	Date      string            `json:"date" binding:"required"`
	Points    []models.GeoPoint `json:"points" binding:"required"`
}

// Ingest handles POST /api/v1/tracks
func (h *TrackHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid ingestion body")
		return
	}

	stored, dropped, err := h.trackService.IngestDay(req.SubjectID, req.Date, req.Points)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Created(c, gin.H{
		"stored":  stored,
		"dropped": dropped,
	})
}

// GetPoints handles GET /api/v1/tracks/points
func (h *TrackHandler) GetPoints(c *gin.Context) {
	var filter models.PointFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.trackService.GetPoints(filter)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, result)
}

// ListDates handles GET /api/v1/tracks/:subjectId/dates
func (h *TrackHandler) ListDates(c *gin.Context) {
	subjectID := c.Param("subjectId")
	if subjectID == "" {
		response.BadRequest(c, "Missing subject ID")
		return
	}

	dates, err := h.trackService.ListDates(subjectID)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"dates": dates,
		"count": len(dates),
	})
}

// Summary handles GET /api/v1/tracks/:subjectId/summary?date=YYYY-MM-DD
func (h *TrackHandler) Summary(c *gin.Context) {
	subjectID := c.Param("subjectId")
	date := c.Query("date")
	if subjectID == "" || date == "" {
		response.BadRequest(c, "Missing subject ID or date")
		return
	}

	summary, err := h.trackService.Summarize(subjectID, date)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}

	response.Success(c, summary)
}

// BreaksRequest is the body of an authoritative break list upload
type BreaksRequest struct {
	SubjectID string               `json:"subjectId" binding:"required"`
	Date      string               `json:"date" binding:"required"`
	Breaks    []models.BreakPeriod `json:"breaks"`
}

// SaveBreaks handles PUT /api/v1/tracks/breaks
func (h *TrackHandler) SaveBreaks(c *gin.Context) {
	var req BreaksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid breaks body")
		return
	}

	if err := h.trackService.SaveBreaks(req.SubjectID, req.Date, req.Breaks); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, gin.H{"saved": len(req.Breaks)})
}
