package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hempies/catalogsync/internal/domain"
	"github.com/hempies/catalogsync/internal/runner"
)

// SyncController is the run control used by the handlers. *runner.Runner satisfies it.
type SyncController interface {
	Start(trigger string) (string, error)
	Stop() error
	Pause() error
	Resume() error
	Status() runner.Status
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sync    SyncController
	version string
}

// NewHandler creates a new HTTP handler
func NewHandler(sync SyncController, version string) *Handler {
	return &Handler{sync: sync, version: version}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "catalogsync",
		"version": h.version,
	})
}

// SyncStatus returns the current run status
func (h *Handler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.sync.Status())
}

// StartSync starts a manual run in the background
func (h *Handler) StartSync(c *gin.Context) {
	runID, err := h.sync.Start(runner.TriggerManual)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "sync started",
		"run_id":  runID,
		"status":  h.sync.Status(),
	})
}

// StopSync requests cancellation of the active run
func (h *Handler) StopSync(c *gin.Context) {
	h.control(c, h.sync.Stop, "stop requested")
}

// PauseSync pauses the active run at the next record
func (h *Handler) PauseSync(c *gin.Context) {
	h.control(c, h.sync.Pause, "sync paused")
}

// ResumeSync resumes a paused run
func (h *Handler) ResumeSync(c *gin.Context) {
	h.control(c, h.sync.Resume, "sync resumed")
}

func (h *Handler) control(c *gin.Context, action func() error, message string) {
	if err := action(); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"status":  h.sync.Status(),
	})
}

// respondError maps run control errors to status codes
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrRunInProgress),
		errors.Is(err, domain.ErrNoActiveRun),
		errors.Is(err, domain.ErrRunPaused),
		errors.Is(err, domain.ErrRunNotPaused):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
