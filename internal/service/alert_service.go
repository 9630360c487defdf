package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/config"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/rakshaapp/raksha-api/pkg/classifier"
	"github.com/rakshaapp/raksha-api/pkg/storage"
	"gorm.io/gorm"
)

const audioFolder = "raksha-sos"

var alertRefRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// AlertNotifier pushes alert lifecycle notifications to the owner's
// devices; nil-safe so push can be disabled
type AlertNotifier interface {
	SendAlertNotification(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error
}

// AlertService owns the SOS alert lifecycle: raising alerts (manual and
// classifier-gated), resending, and the false-alarm consensus.
type AlertService struct {
	alerts     AlertStore
	users      UserStore
	guardian   *GuardianService
	storage    storage.Storage
	classifier classifier.Runner
	dispatcher *Dispatcher
	notifier   AlertNotifier
	events     EventSink
	policy     config.AlertConfig
}

func NewAlertService(
	alerts AlertStore,
	users UserStore,
	guardian *GuardianService,
	store storage.Storage,
	runner classifier.Runner,
	dispatcher *Dispatcher,
	notifier AlertNotifier,
	events EventSink,
	policy config.AlertConfig,
) *AlertService {
	return &AlertService{
		alerts:     alerts,
		users:      users,
		guardian:   guardian,
		storage:    store,
		classifier: runner,
		dispatcher: dispatcher,
		notifier:   notifier,
		events:     events,
		policy:     policy,
	}
}

// ==================== Manual trigger ====================

// Trigger raises an alert from the panic button: upload the audio,
// persist the record, fan out to contacts.
func (s *AlertService) Trigger(ctx context.Context, userID uuid.UUID, lat, lng string, audio io.Reader, size int64, filename string) (*model.Alert, model.DispatchReport, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.DispatchReport{}, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, model.DispatchReport{}, err
	}

	upload, err := s.storage.Upload(ctx, audio, size, filename, audioFolder)
	if err != nil {
		return nil, model.DispatchReport{}, fmt.Errorf("%w: audio upload failed: %v", ErrUpstream, err)
	}

	alert := &model.Alert{
		ID:       uuid.New(),
		UserID:   user.ID,
		AudioURL: upload.URL,
		AudioKey: upload.Key,
		Lat:      lat,
		Lng:      lng,
	}

	if err := s.alerts.Create(alert); err != nil {
		// The uploaded clip is orphaned at this point; cleanup is
		// best-effort but the persistence failure must surface
		if delErr := s.storage.Delete(ctx, upload.Key); delErr != nil {
			log.Printf("⚠️ Failed to clean up orphaned audio %s: %v", upload.Key, delErr)
		}
		return nil, model.DispatchReport{}, fmt.Errorf("failed to persist alert: %w", err)
	}

	report := s.dispatchAndNotify(ctx, user, alert)
	return alert, report, nil
}

// ==================== Classified trigger ====================

// Classify runs Guardian Mode's automatic path: the audio sample is
// classified first, and an alert is raised only when the verdict is a
// danger label above the confidence threshold. Guardian Mode must be
// armed; otherwise the sample is discarded unstored.
func (s *AlertService) Classify(ctx context.Context, userID uuid.UUID, lat, lng, audioPath, filename string) (*model.ClassifySOSResponse, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}

	active, err := s.guardian.IsActive(userID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, fmt.Errorf("%w: guardian mode is not active", ErrForbidden)
	}

	prediction, err := s.classifier.Classify(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if !s.isThreat(prediction) {
		return &model.ClassifySOSResponse{
			Message:    "No threat detected",
			Label:      prediction.Label,
			Confidence: prediction.Confidence,
		}, nil
	}

	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen audio sample: %w", err)
	}
	defer audio.Close()

	info, err := audio.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat audio sample: %w", err)
	}

	upload, err := s.storage.Upload(ctx, audio, info.Size(), filename, audioFolder)
	if err != nil {
		return nil, fmt.Errorf("%w: audio upload failed: %v", ErrUpstream, err)
	}

	label := prediction.Label
	confidence := prediction.Confidence
	alert := &model.Alert{
		ID:            uuid.New(),
		UserID:        user.ID,
		AudioURL:      upload.URL,
		AudioKey:      upload.Key,
		Lat:           lat,
		Lng:           lng,
		DetectedLabel: &label,
		Confidence:    &confidence,
	}

	if err := s.alerts.Create(alert); err != nil {
		if delErr := s.storage.Delete(ctx, upload.Key); delErr != nil {
			log.Printf("⚠️ Failed to clean up orphaned audio %s: %v", upload.Key, delErr)
		}
		return nil, fmt.Errorf("failed to persist alert: %w", err)
	}

	report := s.dispatchAndNotify(ctx, user, alert)

	return &model.ClassifySOSResponse{
		Message:    "SOS triggered",
		Label:      prediction.Label,
		Confidence: prediction.Confidence,
		SOS:        alert,
		Dispatch:   &report,
	}, nil
}

// ==================== Resend / history ====================

// Resend re-dispatches a persisted alert to the owner's current contacts
func (s *AlertService) Resend(ctx context.Context, alertID uuid.UUID) (model.DispatchReport, error) {
	alert, err := s.alerts.FindByID(alertID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DispatchReport{}, fmt.Errorf("%w: alert not found", ErrNotFound)
		}
		return model.DispatchReport{}, err
	}

	user, err := s.users.FindByID(alert.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DispatchReport{}, fmt.Errorf("%w: alert owner not found", ErrNotFound)
		}
		return model.DispatchReport{}, err
	}

	return s.dispatcher.Dispatch(ctx, user, alert), nil
}

// History returns all of a user's alerts, newest first
func (s *AlertService) History(userID uuid.UUID) ([]model.Alert, error) {
	return s.alerts.ListByUser(userID)
}

// ==================== False-alarm consensus ====================

// RecordFalseVote adds a voter to the alert's false-alarm vote set.
// Voting is idempotent per voter; at quorum the alert flips to false
// alarm and stays there, later votes are acknowledged no-ops.
func (s *AlertService) RecordFalseVote(ctx context.Context, alertID uuid.UUID, voterPhone string) (*model.FalseVoteResponse, error) {
	alert, err := s.alerts.FindByID(alertID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: alert not found", ErrNotFound)
		}
		return nil, err
	}

	wasFalse := alert.IsFalseAlarm

	alert, err = s.alerts.AddFalseVote(alertID, voterPhone, s.policy.Quorum)
	if err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	if alert.IsFalseAlarm && !wasFalse {
		s.notifyResolvedFalse(alert)
	}

	return &model.FalseVoteResponse{
		IsFalseAlarm: alert.IsFalseAlarm,
		Votes:        len(alert.FalseDetectionVotes),
	}, nil
}

// HandleInboundMessage processes a WhatsApp reply from an emergency
// contact. The reply must fuzzily match a dismiss phrase; the alert is
// correlated by the embedded Ref UUID, falling back to the contact's
// user's most recent unresolved alert. Unknown or unmatched messages are
// acknowledged and ignored.
func (s *AlertService) HandleInboundMessage(ctx context.Context, fromPhone, body string) (string, error) {
	if fromPhone == "" || body == "" {
		return "Message ignored", nil
	}

	if !s.matchesDismissPhrase(body) {
		return "Message received", nil
	}

	user, err := s.users.FindByContactPhone(fromPhone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "No user found for this number", nil
		}
		return "", err
	}

	alert, err := s.resolveReferencedAlert(user.ID, body)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "No open SOS found for this number", nil
		}
		return "", err
	}

	if _, err := s.RecordFalseVote(ctx, alert.ID, fromPhone); err != nil {
		return "", err
	}

	return "False alarm vote recorded", nil
}

// ==================== Internal helpers ====================

// isThreat applies the configured danger policy to a classifier verdict
func (s *AlertService) isThreat(p classifier.Prediction) bool {
	if p.Confidence <= s.policy.ConfidenceThreshold {
		return false
	}
	for _, label := range s.policy.DangerLabels {
		if strings.EqualFold(label, p.Label) {
			return true
		}
	}
	return false
}

// matchesDismissPhrase fuzzily matches a reply against the configured
// dismiss phrases (case-insensitive substring, like the WhatsApp bot
// behavior contacts already know)
func (s *AlertService) matchesDismissPhrase(body string) bool {
	lowered := strings.ToLower(body)
	for _, phrase := range s.policy.DismissPhrases {
		if strings.Contains(lowered, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// resolveReferencedAlert picks the alert an inbound reply concerns:
// an embedded Ref UUID belonging to the user wins, otherwise the user's
// most recent unresolved alert
func (s *AlertService) resolveReferencedAlert(userID uuid.UUID, body string) (*model.Alert, error) {
	if ref := alertRefRe.FindString(body); ref != "" {
		if id, err := uuid.Parse(ref); err == nil {
			if alert, err := s.alerts.FindByID(id); err == nil && alert.UserID == userID {
				return alert, nil
			}
		}
	}
	return s.alerts.LatestOpenByUser(userID)
}

// dispatchAndNotify fans out to contacts and pushes realtime/push events
// to the owner
func (s *AlertService) dispatchAndNotify(ctx context.Context, user *model.User, alert *model.Alert) model.DispatchReport {
	report := model.DispatchReport{
		Sent:   []model.ContactDelivery{},
		Failed: []model.ContactDelivery{},
	}
	if len(user.EmergencyContacts) > 0 {
		report = s.dispatcher.Dispatch(ctx, user, alert)
	}

	if s.events != nil {
		s.events.SendToUser(user.ID, &model.WSEvent{
			Type: model.WSEventAlertRaised,
			Payload: model.AlertEvent{
				AlertID:  alert.ID,
				UserID:   user.ID,
				AudioURL: alert.AudioURL,
				Label:    alert.DetectedLabel,
			},
		})
	}

	if s.notifier != nil {
		go func() {
			data := map[string]string{"type": "alert_raised", "alert_id": alert.ID.String()}
			if err := s.notifier.SendAlertNotification(context.Background(), user.ID, "🚨 SOS alert sent", "Your emergency contacts have been alerted.", data); err != nil {
				log.Printf("⚠️ Push notification failed for user %s: %v", user.ID, err)
			}
		}()
	}

	return report
}

// notifyResolvedFalse announces that consensus resolved the alert as a
// false alarm
func (s *AlertService) notifyResolvedFalse(alert *model.Alert) {
	if s.events != nil {
		s.events.SendToUser(alert.UserID, &model.WSEvent{
			Type: model.WSEventAlertFalseAlarm,
			Payload: model.AlertEvent{
				AlertID:      alert.ID,
				UserID:       alert.UserID,
				IsFalseAlarm: true,
			},
		})
	}

	if s.notifier != nil {
		go func() {
			data := map[string]string{"type": "alert_false_alarm", "alert_id": alert.ID.String()}
			if err := s.notifier.SendAlertNotification(context.Background(), alert.UserID, "Alert dismissed", "Your contacts marked the alert as a false alarm.", data); err != nil {
				log.Printf("⚠️ Push notification failed for user %s: %v", alert.UserID, err)
			}
		}()
	}
}
