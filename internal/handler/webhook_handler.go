package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rakshaapp/raksha-api/internal/service"
	"github.com/rakshaapp/raksha-api/pkg/messaging"
)

// WebhookHandler receives inbound WhatsApp replies from Twilio
type WebhookHandler struct {
	alertService *service.AlertService
	countryCode  string
}

func NewWebhookHandler(alertService *service.AlertService, countryCode string) *WebhookHandler {
	return &WebhookHandler{
		alertService: alertService,
		countryCode:  countryCode,
	}
}

// InboundMessage godoc
// @Summary Twilio webhook for inbound WhatsApp messages
// @Tags Webhook
// @Accept x-www-form-urlencoded
// @Produce plain
// @Param From formData string true "Sender address (whatsapp:+<number>)"
// @Param Body formData string true "Message text"
// @Success 200 {string} string "ack"
// @Router /webhook/inbound-message [post]
func (h *WebhookHandler) InboundMessage(c *gin.Context) {
	from := c.PostForm("From")
	body := c.PostForm("Body")

	// Twilio addresses arrive as "whatsapp:+<cc><number>"; contacts are
	// stored as local numbers
	phone := messaging.LocalNumber(from, h.countryCode)

	reply, err := h.alertService.HandleInboundMessage(c.Request.Context(), phone, body)
	if err != nil {
		log.Printf("⚠️ Inbound message handling failed (from=%s): %v", from, err)
		// Always 200 so Twilio does not retry
		c.String(http.StatusOK, "error")
		return
	}

	c.String(http.StatusOK, reply)
}
