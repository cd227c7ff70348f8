package handlers

import (
	"net/http"
	"strconv"

	"taskboard/internal/deadline"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/services"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService services.TaskService
}

func NewTaskHandler(taskService services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_id",
			"message": "route parameter must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}

	var input services.TaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid task data",
			"details": err.Error(),
		})
		return
	}

	view, err := h.taskService.CreateTask(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *TaskHandler) Get(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	view, err := h.taskService.GetTask(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// List supports ?status=, ?priority= and ?urgency= filters. Unknown filter
// values return an empty list rather than an error.
func (h *TaskHandler) List(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}

	filter := services.TaskFilter{
		Status:   models.TaskStatus(c.Query("status")),
		Priority: models.TaskPriority(c.Query("priority")),
		Urgency:  deadline.Urgency(c.Query("urgency")),
	}

	views := h.taskService.ListTasks(actor, filter)
	c.JSON(http.StatusOK, gin.H{
		"tasks": views,
		"count": len(views),
	})
}

func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var patch services.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid task data",
			"details": err.Error(),
		})
		return
	}

	view, err := h.taskService.UpdateTask(c.Request.Context(), actor, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}
