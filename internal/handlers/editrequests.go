package handlers

import (
	"errors"
	"io"
	"net/http"

	"taskboard/internal/middleware"
	"taskboard/internal/services"

	"github.com/gin-gonic/gin"
)

type EditRequestHandler struct {
	editRequestService services.EditRequestService
}

func NewEditRequestHandler(editRequestService services.EditRequestService) *EditRequestHandler {
	return &EditRequestHandler{editRequestService: editRequestService}
}

type SubmitEditRequestInput struct {
	TaskID int64  `json:"task_id" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

func (h *EditRequestHandler) Submit(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}

	var input SubmitEditRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid edit request data",
			"details": err.Error(),
		})
		return
	}

	request, err := h.editRequestService.Submit(c.Request.Context(), actor, input.TaskID, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *EditRequestHandler) List(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}

	requests := h.editRequestService.ListForUser(actor)
	c.JSON(http.StatusOK, gin.H{
		"edit_requests": requests,
		"count":         len(requests),
	})
}

func (h *EditRequestHandler) Approve(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	request, err := h.editRequestService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Edit request approved",
		"edit_request": request,
	})
}

type RejectEditRequestInput struct {
	Notes string `json:"notes"`
}

func (h *EditRequestHandler) Reject(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	// The notes body is optional; an empty body rejects without notes.
	var input RejectEditRequestInput
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	request, err := h.editRequestService.Reject(c.Request.Context(), actor, id, input.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Edit request rejected",
		"edit_request": request,
	})
}
