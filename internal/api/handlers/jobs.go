package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/posprint/printbridge/internal/core"
)

type JobHandler struct {
	queue *core.Queue
}

func NewJobHandler(queue *core.Queue) *JobHandler {
	return &JobHandler{queue: queue}
}

func (h *JobHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/jobs/queue", h.GetQueue)
	r.GET("/jobs/:id", h.GetJob)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	record, err := h.queue.Job(c.Param("id"))
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "No such job (records are in-memory and evicted over time)",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "queue_error",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *JobHandler) GetQueue(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.Stats())
}
