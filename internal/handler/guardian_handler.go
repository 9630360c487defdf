package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/rakshaapp/raksha-api/internal/service"
)

// GuardianHandler handles Guardian Mode endpoints
type GuardianHandler struct {
	guardianService *service.GuardianService
}

func NewGuardianHandler(guardianService *service.GuardianService) *GuardianHandler {
	return &GuardianHandler{guardianService: guardianService}
}

// Toggle godoc
// @Summary Arm or disarm Guardian Mode
// @Tags Guardian
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.GuardianToggleRequest true "Toggle request"
// @Success 200 {object} model.GuardianStatusResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /guardian/toggle [post]
func (h *GuardianHandler) Toggle(c *gin.Context) {
	var req model.GuardianToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	glog, err := h.guardianService.Toggle(req.UserID, *req.Activate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.GuardianStatusResponse{
		IsActive:      glog.IsActive,
		ActivatedAt:   glog.ActivatedAt,
		DeactivatedAt: glog.DeactivatedAt,
	})
}

// Status godoc
// @Summary Get a user's Guardian Mode state
// @Tags Guardian
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {object} model.GuardianStatusResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /guardian/status/{userId} [get]
func (h *GuardianHandler) Status(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	glog, err := h.guardianService.Status(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.GuardianStatusResponse{
		IsActive:      glog.IsActive,
		ActivatedAt:   glog.ActivatedAt,
		DeactivatedAt: glog.DeactivatedAt,
	})
}
