package handlers

import (
	"net/http"

	"taskboard/internal/services"

	"github.com/gin-gonic/gin"
)

type RegisterHandler struct {
	registerService services.RegisterService
}

func NewRegisterHandler(registerService services.RegisterService) *RegisterHandler {
	return &RegisterHandler{registerService: registerService}
}

func (h *RegisterHandler) Register(c *gin.Context) {
	var req services.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid registration data",
			"details": err.Error(),
		})
		return
	}

	user, err := h.registerService.RegisterUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user":    profileOf(user),
	})
}
