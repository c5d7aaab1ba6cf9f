package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akira-syou/computeproof/internal/api/dto"
	"github.com/akira-syou/computeproof/internal/event"
	"github.com/akira-syou/computeproof/internal/ledger"
	"github.com/akira-syou/computeproof/internal/lifecycle"
)

// SubmitJob handles POST /api/jobs/submit
// Registers a new job asset on the ledger and commits its submission event.
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	result, err := h.orchestrator.SubmitJob(c.Request.Context(), req.ToInput())
	if err != nil {
		h.respondError(c, "Failed to submit job", err)
		return
	}

	h.logger.Info("Job submitted",
		slog.String("job_nid", result.AssetID),
		slog.String("job_id", req.JobID),
	)

	c.JSON(http.StatusOK, dto.SubmitJobResponse{
		Success:     true,
		JobNid:      result.AssetID,
		JobID:       req.JobID,
		TxHash:      result.Receipt.TxReference,
		ExplorerURL: result.Receipt.ExplorerURL,
		Message:     "Job submitted and registered on-chain",
	})
}

// RecordTransition handles POST /api/jobs/:nid/{scheduled,started,progress,completed,failed}
// Commits one lifecycle event against an already registered job asset.
func (h *JobHandler) RecordTransition(kind event.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		nid := c.Param("nid")

		var req dto.TransitionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body",
				slog.String("job_nid", nid),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid request body",
			})
			return
		}

		receipt, err := h.orchestrator.RecordTransition(c.Request.Context(), nid, kind, req.ToInput())
		if err != nil {
			h.respondError(c, "Failed to record transition", err)
			return
		}

		h.logger.Info("Transition recorded",
			slog.String("job_nid", nid),
			slog.String("event_type", kind.String()),
			slog.String("tx_hash", receipt.TxReference),
		)

		c.JSON(http.StatusOK, dto.TransitionResponse{
			Success:     true,
			TxHash:      receipt.TxReference,
			ExplorerURL: receipt.ExplorerURL,
			Message:     kind.String() + " event committed",
		})
	}
}

// EnqueueTransition handles POST /api/jobs/:nid/events
// Publishes a transition message to RabbitMQ for the relay service to apply.
func (h *JobHandler) EnqueueTransition(c *gin.Context) {
	nid := c.Param("nid")

	var req dto.EnqueueTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body",
			slog.String("job_nid", nid),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
		})
		return
	}

	if !event.Kind(req.EventType).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Unrecognized event type: " + req.EventType,
		})
		return
	}

	msg := dto.TransitionMessage{
		AssetID:   nid,
		EventType: req.EventType,
		Input:     req.Input,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to encode transition message",
		})
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish transition message",
			slog.String("job_nid", nid),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "Failed to queue transition",
		})
		return
	}

	h.logger.Info("Transition queued",
		slog.String("job_nid", nid),
		slog.String("event_type", req.EventType),
	)

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"status":  "queued",
	})
}

// GetHistory handles GET /api/jobs/:nid/history
// Reconstructs the job timeline and derived metrics from ledger commits.
func (h *JobHandler) GetHistory(c *gin.Context) {
	nid := c.Param("nid")

	result, err := h.history.GetHistory(c.Request.Context(), nid)
	if err != nil {
		h.respondError(c, "Failed to fetch job history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"jobNid":      result.JobNid,
		"events":      result.Events,
		"metrics":     result.Metrics,
		"totalEvents": result.TotalEvents,
	})
}

// ListJobs handles GET /api/jobs
// Returns a static dashboard sample; there is deliberately no job database.
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs := []dto.JobSummary{
		{
			JobNid:      "bafybeigdyrzt5sample1",
			JobID:       "job-001",
			JobType:     "training",
			Status:      "completed",
			SubmittedBy: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb1",
		},
		{
			JobNid:      "bafybeigdyrzt5sample2",
			JobID:       "job-002",
			JobType:     "inference",
			Status:      "running",
			SubmittedBy: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb2",
		},
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Success: true,
		Jobs:    jobs,
		Total:   len(jobs),
	})
}

// respondError maps domain errors onto HTTP status codes: validation failures
// to 400, ledger failures to 502, everything else to 500.
func (h *JobHandler) respondError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, slog.String("error", err.Error()))

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lifecycle.ErrMissingAsset), errors.Is(err, event.ErrUnknownKind):
		status = http.StatusBadRequest
	case isLedgerError(err):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func isLedgerError(err error) bool {
	var regErr *ledger.RegistrationError
	var commitErr *ledger.CommitError
	var fetchErr *ledger.HistoryFetchError
	return errors.As(err, &regErr) || errors.As(err, &commitErr) || errors.As(err, &fetchErr)
}
