package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldtrace/replay-backend-go/internal/handler"
	"github.com/fieldtrace/replay-backend-go/internal/middleware"
)

// Handlers groups the handlers the router wires up
type Handlers struct {
	Track  *handler.TrackHandler
	Replay *handler.ReplayHandler
	Snap   *handler.SnapHandler
}

// SetupRouter builds the gin engine with middleware and all routes
func SetupRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Replay Backend API is running",
		})
	})

	api := r.Group("/api/v1")
	{
		tracks := api.Group("/tracks")
		{
			tracks.POST("", middleware.RateLimit(30, time.Minute), h.Track.Ingest)
			tracks.GET("/points", h.Track.GetPoints)
			tracks.GET("/:subjectId/dates", h.Track.ListDates)
			tracks.GET("/:subjectId/summary", h.Track.Summary)
			tracks.PUT("/breaks", h.Track.SaveBreaks)
		}

		replay := api.Group("/replay")
		{
			replay.GET("/render-policies", h.Replay.RenderPolicies)
			replay.POST("/sessions", h.Replay.Open)
			replay.GET("/sessions/:id", h.Replay.Get)
			replay.GET("/sessions/:id/state", h.Replay.State)
			replay.POST("/sessions/:id/commands", h.Replay.Command)
			replay.POST("/sessions/:id/framing-done", h.Replay.ConfirmFraming)
			replay.POST("/sessions/:id/snap", middleware.RateLimit(10, time.Minute), h.Snap.SnapSession)
			replay.DELETE("/sessions/:id", h.Replay.Close)
		}

		api.GET("/snap/stats", h.Snap.Stats)
	}

	return r
}
