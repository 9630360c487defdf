package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessenger records sent messages and fails for configured numbers
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []string
	bodies  map[string]string
	failFor map[string]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		bodies:  make(map[string]string),
		failFor: make(map[string]bool),
	}
}

func (m *fakeMessenger) SendWhatsApp(ctx context.Context, to, body string) error {
	// Mirror the real messenger: an expired deadline skips the attempt
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[to] {
		return errors.New("delivery failed")
	}
	m.sent = append(m.sent, to)
	m.bodies[to] = body
	return nil
}

func testUserWithContacts() *model.User {
	return &model.User{
		ID:   uuid.New(),
		Name: "Asha",
		EmergencyContacts: []model.EmergencyContact{
			{Position: 0, Name: "Mom", Phone: "9000000001"},
			{Position: 1, Name: "Dad", Phone: "9000000002"},
			{Position: 2, Name: "Friend", Phone: "9000000003"},
		},
	}
}

func testAlert(userID uuid.UUID) *model.Alert {
	return &model.Alert{
		ID:       uuid.New(),
		UserID:   userID,
		AudioURL: "https://cdn.example.com/audio/clip.wav",
		Lat:      "12.9716",
		Lng:      "77.5946",
	}
}

func TestDispatchAllContactsSucceed(t *testing.T) {
	messenger := newFakeMessenger()
	d := NewDispatcher(messenger, time.Second, 5*time.Second)

	user := testUserWithContacts()
	report := d.Dispatch(context.Background(), user, testAlert(user.ID))

	assert.Len(t, report.Sent, 3)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"9000000001", "9000000002", "9000000003"}, messenger.sent)
}

func TestDispatchOneFailureDoesNotBlockRest(t *testing.T) {
	messenger := newFakeMessenger()
	messenger.failFor["9000000002"] = true
	d := NewDispatcher(messenger, time.Second, 5*time.Second)

	user := testUserWithContacts()
	report := d.Dispatch(context.Background(), user, testAlert(user.ID))

	require.Len(t, report.Failed, 1)
	assert.Equal(t, "9000000002", report.Failed[0].Phone)
	assert.NotEmpty(t, report.Failed[0].Error)

	// The remaining contacts were still attempted
	assert.Len(t, report.Sent, 2)
	assert.Equal(t, []string{"9000000001", "9000000003"}, messenger.sent)
}

func TestDispatchExpiredDeadlineFailsRemainingContacts(t *testing.T) {
	messenger := newFakeMessenger()
	d := NewDispatcher(messenger, time.Second, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	user := testUserWithContacts()
	report := d.Dispatch(ctx, user, testAlert(user.ID))

	// Every contact is still reported, none silently skipped
	assert.Empty(t, report.Sent)
	require.Len(t, report.Failed, 3)
	for _, delivery := range report.Failed {
		assert.NotEmpty(t, delivery.Error)
	}
	assert.Empty(t, messenger.sent)
}

func TestDispatchNoContacts(t *testing.T) {
	messenger := newFakeMessenger()
	d := NewDispatcher(messenger, time.Second, 5*time.Second)

	user := &model.User{ID: uuid.New(), Name: "Asha"}
	report := d.Dispatch(context.Background(), user, testAlert(user.ID))

	assert.Empty(t, report.Sent)
	assert.Empty(t, report.Failed)
}

func TestComposeAlertMessage(t *testing.T) {
	user := testUserWithContacts()
	alert := testAlert(user.ID)

	body := ComposeAlertMessage(user, alert)

	assert.Contains(t, body, "SOS Alert from Asha")
	assert.Contains(t, body, "https://www.google.com/maps?q=12.9716,77.5946")
	assert.Contains(t, body, alert.AudioURL)
	assert.Contains(t, body, "Ref: "+alert.ID.String())
	assert.NotContains(t, body, "Detected:")
}

func TestComposeAlertMessageWithVerdict(t *testing.T) {
	user := testUserWithContacts()
	alert := testAlert(user.ID)
	label := "screaming"
	confidence := 0.523
	alert.DetectedLabel = &label
	alert.Confidence = &confidence

	body := ComposeAlertMessage(user, alert)

	assert.Contains(t, body, "screaming")
	assert.Contains(t, body, "52.3%")
}
