package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmarket/internal/jobs"
)

type JobHandler struct {
	expiry *jobs.TaskExpiryJob
}

func NewJobHandler(expiry *jobs.TaskExpiryJob) *JobHandler {
	return &JobHandler{expiry: expiry}
}

// POST /admin/jobs/task-expiry/run
func (h *JobHandler) RunTaskExpiry(c *gin.Context) {
	userID, _ := getUserAndMode(c)
	log.Printf("[job][task-expiry] manual run by userID=%d", userID)

	res, err := h.expiry.RunOnce(c.Request.Context())
	if errors.Is(err, jobs.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("[job][task-expiry][err] manual run: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed", "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /admin/jobs/task-expiry
func (h *JobHandler) TaskExpiryStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.expiry.Stats())
}
