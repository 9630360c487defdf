package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/rakshaapp/raksha-api/internal/service"
)

// 20 MB cap on uploaded audio clips
const maxAudioSize = 20 << 20

// SOSHandler handles the SOS alert lifecycle endpoints
type SOSHandler struct {
	alertService *service.AlertService
}

func NewSOSHandler(alertService *service.AlertService) *SOSHandler {
	return &SOSHandler{alertService: alertService}
}

// Trigger godoc
// @Summary Raise an SOS alert from the panic button
// @Tags SOS
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param user_id formData string true "User ID"
// @Param lat formData string true "Latitude"
// @Param lng formData string true "Longitude"
// @Param audio formData file true "Audio recording"
// @Success 201 {object} model.TriggerSOSResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /sos/trigger [post]
func (h *SOSHandler) Trigger(c *gin.Context) {
	userID, err := uuid.Parse(c.PostForm("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid or missing user_id"})
		return
	}

	lat := c.PostForm("lat")
	lng := c.PostForm("lng")
	if lat == "" || lng == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "lat and lng are required"})
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Audio file is required"})
		return
	}
	if fileHeader.Size > maxAudioSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Audio file too large (max 20MB)"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Failed to read audio file"})
		return
	}
	defer file.Close()

	alert, report, err := h.alertService.Trigger(c.Request.Context(), userID, lat, lng, file, fileHeader.Size, fileHeader.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, model.TriggerSOSResponse{
		Message:  "SOS alert sent",
		SOS:      alert,
		Dispatch: report,
	})
}

// Classify godoc
// @Summary Classify an audio sample and raise an SOS only on a danger verdict
// @Tags SOS
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param user_id formData string true "User ID"
// @Param lat formData string true "Latitude"
// @Param lng formData string true "Longitude"
// @Param audio formData file true "Audio sample"
// @Success 200 {object} model.ClassifySOSResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /sos/classify [post]
func (h *SOSHandler) Classify(c *gin.Context) {
	userID, err := uuid.Parse(c.PostForm("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid or missing user_id"})
		return
	}

	lat := c.PostForm("lat")
	lng := c.PostForm("lng")
	if lat == "" || lng == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "lat and lng are required"})
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Audio file is required"})
		return
	}
	if fileHeader.Size > maxAudioSize {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Audio file too large (max 20MB)"})
		return
	}

	// The classifier reads from disk, so spool the sample to a temp file
	tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to store audio sample"})
		return
	}
	defer os.Remove(tmpPath)

	resp, err := h.alertService.Classify(c.Request.Context(), userID, lat, lng, tmpPath, fileHeader.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Resend godoc
// @Summary Re-dispatch an existing alert to the owner's contacts
// @Tags SOS
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.ResendSOSRequest true "Resend request"
// @Success 200 {object} model.TriggerSOSResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /sos/resend [post]
func (h *SOSHandler) Resend(c *gin.Context) {
	var req model.ResendSOSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	report, err := h.alertService.Resend(c.Request.Context(), req.SOSID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.TriggerSOSResponse{
		Message:  "SOS alert resent",
		Dispatch: report,
	})
}

// FalseVote godoc
// @Summary Record an emergency contact's false-alarm vote
// @Tags SOS
// @Accept json
// @Produce json
// @Param body body model.FalseVoteRequest true "False vote request"
// @Success 200 {object} model.FalseVoteResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /sos/false-vote [post]
func (h *SOSHandler) FalseVote(c *gin.Context) {
	var req model.FalseVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	resp, err := h.alertService.RecordFalseVote(c.Request.Context(), req.SOSID, req.VoterPhone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// History godoc
// @Summary List a user's alerts, newest first
// @Tags SOS
// @Produce json
// @Security BearerAuth
// @Param userId path string true "User ID"
// @Success 200 {array} model.Alert
// @Failure 400 {object} model.ErrorResponse
// @Router /sos/user/{userId} [get]
func (h *SOSHandler) History(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	alerts, err := h.alertService.History(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}
