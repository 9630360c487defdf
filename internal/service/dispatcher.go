package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/rakshaapp/raksha-api/pkg/messaging"
)

// Dispatcher fans an alert out to a user's emergency contacts over
// WhatsApp. Contacts are messaged in list order; every attempt is
// isolated, so one failing contact never blocks the rest, and the report
// says exactly who got the alert and who did not.
type Dispatcher struct {
	messenger       messaging.Messenger
	contactTimeout  time.Duration
	dispatchTimeout time.Duration
}

func NewDispatcher(messenger messaging.Messenger, contactTimeout, dispatchTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		messenger:       messenger,
		contactTimeout:  contactTimeout,
		dispatchTimeout: dispatchTimeout,
	}
}

// Dispatch sends the alert message to every emergency contact
func (d *Dispatcher) Dispatch(ctx context.Context, user *model.User, alert *model.Alert) model.DispatchReport {
	ctx, cancel := context.WithTimeout(ctx, d.dispatchTimeout)
	defer cancel()

	body := ComposeAlertMessage(user, alert)
	report := model.DispatchReport{
		Sent:   []model.ContactDelivery{},
		Failed: []model.ContactDelivery{},
	}

	for _, contact := range user.EmergencyContacts {
		contactCtx, contactCancel := context.WithTimeout(ctx, d.contactTimeout)
		err := d.messenger.SendWhatsApp(contactCtx, contact.Phone, body)
		contactCancel()

		delivery := model.ContactDelivery{Name: contact.Name, Phone: contact.Phone}
		if err != nil {
			log.Printf("⚠️ Alert %s: failed to notify %s (%s): %v", alert.ID, contact.Name, contact.Phone, err)
			delivery.Error = err.Error()
			report.Failed = append(report.Failed, delivery)
			continue
		}
		report.Sent = append(report.Sent, delivery)
	}

	log.Printf("📨 Alert %s dispatched: %d sent, %d failed", alert.ID, len(report.Sent), len(report.Failed))
	return report
}

// ComposeAlertMessage builds the WhatsApp alert text. The alert ID is
// embedded so an inbound reply can be correlated back to this exact alert.
func ComposeAlertMessage(user *model.User, alert *model.Alert) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚨 *SOS Alert from %s* 🚨\n\n", user.Name)
	fmt.Fprintf(&b, "📍 *Location:*\nhttps://www.google.com/maps?q=%s,%s\n\n", alert.Lat, alert.Lng)
	fmt.Fprintf(&b, "🔊 *Audio Proof:*\n%s\n\n", alert.AudioURL)

	if alert.DetectedLabel != nil && alert.Confidence != nil {
		fmt.Fprintf(&b, "🔎 *Detected:* %s (%.1f%%)\n\n", *alert.DetectedLabel, *alert.Confidence*100)
	}

	fmt.Fprintf(&b, "🆔 Ref: %s\n\n", alert.ID)
	b.WriteString("🛡️ _This is an auto-generated WhatsApp alert from Raksha. If this is a false alarm, reply \"false alarm\" to this message._")

	return b.String()
}
