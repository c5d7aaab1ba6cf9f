package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akira-syou/computeproof/internal/api/handler"
	"github.com/akira-syou/computeproof/internal/event"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": deps.ServiceName,
			"version": deps.Version,
		})
	})

	// Initialize job handler
	jobHandler := handler.NewJobHandler(deps)

	api := r.Group("/api")
	{
		jobs := api.Group("/jobs")
		{
			// POST /api/jobs/submit - Register job asset and commit submission
			jobs.POST("/submit", jobHandler.SubmitJob)

			// GET /api/jobs - Dashboard sample listing
			jobs.GET("", jobHandler.ListJobs)

			// POST /api/jobs/:nid/<transition> - Commit one lifecycle event
			jobs.POST("/:nid/scheduled", jobHandler.RecordTransition(event.KindJobScheduled))
			jobs.POST("/:nid/started", jobHandler.RecordTransition(event.KindJobStarted))
			jobs.POST("/:nid/progress", jobHandler.RecordTransition(event.KindJobProgressUpdate))
			jobs.POST("/:nid/completed", jobHandler.RecordTransition(event.KindJobCompleted))
			jobs.POST("/:nid/failed", jobHandler.RecordTransition(event.KindJobFailed))

			// POST /api/jobs/:nid/events - Queue a transition for the relay
			jobs.POST("/:nid/events", jobHandler.EnqueueTransition)

			// GET /api/jobs/:nid/history - Reconstructed timeline and metrics
			jobs.GET("/:nid/history", jobHandler.GetHistory)
		}
	}

	return r
}
