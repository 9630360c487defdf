package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Messenger sends outbound WhatsApp messages. Abstracted so the dispatcher
// and OTP delivery can be tested without Twilio.
type Messenger interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// Config holds Twilio credentials and addressing
type Config struct {
	AccountSID  string
	AuthToken   string
	From        string // "whatsapp:+14155238886"
	CountryCode string // default prefix for bare local numbers, e.g. "+91"
}

// TwilioMessenger implements Messenger via the Twilio REST API
type TwilioMessenger struct {
	client      *twilio.RestClient
	from        string
	countryCode string
}

// NewTwilio creates a Twilio-backed messenger
func NewTwilio(cfg Config) *TwilioMessenger {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioMessenger{
		client:      client,
		from:        cfg.From,
		countryCode: cfg.CountryCode,
	}
}

// SendWhatsApp delivers one message to a single recipient. The Twilio SDK
// has no context plumbing; ctx is honored before the call so an expired
// dispatch deadline skips the attempt.
func (m *TwilioMessenger) SendWhatsApp(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(m.from)
	params.SetTo(WhatsAppAddress(to, m.countryCode))
	params.SetBody(body)

	if _, err := m.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send to %s failed: %w", to, err)
	}
	return nil
}

// WhatsAppAddress turns a stored contact phone into a Twilio WhatsApp
// address, prefixing bare local numbers with the configured country code
func WhatsAppAddress(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "whatsapp:") {
		return phone
	}
	if !strings.HasPrefix(phone, "+") {
		phone = countryCode + phone
	}
	return "whatsapp:" + phone
}

// LocalNumber reverses WhatsAppAddress for inbound webhooks: it strips the
// "whatsapp:" scheme and the configured country code so the result matches
// phones as stored on emergency contacts
func LocalNumber(address, countryCode string) string {
	address = strings.TrimSpace(address)
	address = strings.TrimPrefix(address, "whatsapp:")
	address = strings.TrimPrefix(address, countryCode)
	return address
}
