package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSendWhatsAppHonorsExpiredContext(t *testing.T) {
	m := NewTwilio(Config{
		AccountSID:  "ACtest",
		AuthToken:   "token",
		From:        "whatsapp:+14155238886",
		CountryCode: "+91",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An expired per-contact deadline must skip the attempt entirely
	err := m.SendWhatsApp(ctx, "9000000001", "test")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWhatsAppAddress(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"bare local number", "9000000001", "whatsapp:+919000000001"},
		{"already international", "+919000000001", "whatsapp:+919000000001"},
		{"already a whatsapp address", "whatsapp:+919000000001", "whatsapp:+919000000001"},
		{"surrounding whitespace", " 9000000001 ", "whatsapp:+919000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WhatsAppAddress(tt.phone, "+91"))
		})
	}
}

func TestLocalNumber(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"twilio inbound address", "whatsapp:+919000000001", "9000000001"},
		{"bare international", "+919000000001", "9000000001"},
		{"already local", "9000000001", "9000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalNumber(tt.address, "+91"))
		})
	}
}

func TestLocalNumberRoundTripsWhatsAppAddress(t *testing.T) {
	phone := "9000000001"
	assert.Equal(t, phone, LocalNumber(WhatsAppAddress(phone, "+91"), "+91"))
}
