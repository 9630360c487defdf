package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/config"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/rakshaapp/raksha-api/pkg/classifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() config.AlertConfig {
	return config.AlertConfig{
		DangerLabels:        []string{"screaming", "crying"},
		ConfidenceThreshold: 0.3,
		Quorum:              2,
		ContactTimeout:      time.Second,
		DispatchTimeout:     5 * time.Second,
		DismissPhrases:      []string{"false alarm", "ignore", "not real", "no danger", "cancel"},
	}
}

type alertFixture struct {
	svc       *AlertService
	users     *fakeUserStore
	alerts    *fakeAlertStore
	guardians *fakeGuardianStore
	storage   *fakeStorage
	runner    *fakeRunner
	messenger *fakeMessenger
	sink      *fakeEventSink
	user      *model.User
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()

	user := testUserWithContacts()
	users := newFakeUserStore(user)
	alerts := newFakeAlertStore()
	guardians := newFakeGuardianStore()
	store := &fakeStorage{}
	runner := &fakeRunner{}
	messenger := newFakeMessenger()
	sink := &fakeEventSink{}

	guardianSvc := NewGuardianService(guardians, nil)
	dispatcher := NewDispatcher(messenger, time.Second, 5*time.Second)
	svc := NewAlertService(alerts, users, guardianSvc, store, runner, dispatcher, nil, sink, testPolicy())

	return &alertFixture{
		svc:       svc,
		users:     users,
		alerts:    alerts,
		guardians: guardians,
		storage:   store,
		runner:    runner,
		messenger: messenger,
		sink:      sink,
		user:      user,
	}
}

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o600))
	return path
}

// ==================== Trigger ====================

func TestTriggerRaisesAlertAndDispatches(t *testing.T) {
	f := newAlertFixture(t)

	audio := strings.NewReader("audio-bytes")
	alert, report, err := f.svc.Trigger(context.Background(), f.user.ID, "12.9", "77.5", audio, 11, "clip.wav")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, alert.ID)
	assert.Equal(t, f.user.ID, alert.UserID)
	assert.NotEmpty(t, alert.AudioURL)
	assert.Nil(t, alert.DetectedLabel)

	assert.Len(t, report.Sent, 3)
	assert.Empty(t, report.Failed)

	// Persisted and announced
	stored, err := f.alerts.FindByID(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, alert.AudioURL, stored.AudioURL)
	assert.Contains(t, f.sink.eventTypes(), model.WSEventAlertRaised)
}

func TestTriggerUnknownUser(t *testing.T) {
	f := newAlertFixture(t)

	_, _, err := f.svc.Trigger(context.Background(), uuid.New(), "12.9", "77.5", strings.NewReader("x"), 1, "clip.wav")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTriggerUploadFailure(t *testing.T) {
	f := newAlertFixture(t)
	f.storage.failUpload = true

	_, _, err := f.svc.Trigger(context.Background(), f.user.ID, "12.9", "77.5", strings.NewReader("x"), 1, "clip.wav")
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Empty(t, f.messenger.sent)
}

// ==================== Classify ====================

func TestClassifyRequiresGuardianMode(t *testing.T) {
	f := newAlertFixture(t)

	_, err := f.svc.Classify(context.Background(), f.user.ID, "12.9", "77.5", writeTempAudio(t), "sample.wav")
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Zero(t, f.runner.calls)
}

func TestClassifyBenignVerdictDoesNotRaise(t *testing.T) {
	f := newAlertFixture(t)
	_, err := NewGuardianService(f.guardians, nil).Toggle(f.user.ID, true)
	require.NoError(t, err)

	f.runner.prediction = classifier.Prediction{Label: "speech", Confidence: 0.9}

	resp, err := f.svc.Classify(context.Background(), f.user.ID, "12.9", "77.5", writeTempAudio(t), "sample.wav")
	require.NoError(t, err)

	assert.Equal(t, "No threat detected", resp.Message)
	assert.Nil(t, resp.SOS)
	assert.Empty(t, f.storage.uploads)
	assert.Empty(t, f.messenger.sent)
}

func TestClassifyLowConfidenceDoesNotRaise(t *testing.T) {
	f := newAlertFixture(t)
	_, err := NewGuardianService(f.guardians, nil).Toggle(f.user.ID, true)
	require.NoError(t, err)

	// Danger label, but at the threshold rather than above it
	f.runner.prediction = classifier.Prediction{Label: "screaming", Confidence: 0.3}

	resp, err := f.svc.Classify(context.Background(), f.user.ID, "12.9", "77.5", writeTempAudio(t), "sample.wav")
	require.NoError(t, err)
	assert.Nil(t, resp.SOS)
}

func TestClassifyDangerVerdictRaisesAlert(t *testing.T) {
	f := newAlertFixture(t)
	_, err := NewGuardianService(f.guardians, nil).Toggle(f.user.ID, true)
	require.NoError(t, err)

	f.runner.prediction = classifier.Prediction{Label: "Screaming", Confidence: 0.52}

	resp, err := f.svc.Classify(context.Background(), f.user.ID, "12.9", "77.5", writeTempAudio(t), "sample.wav")
	require.NoError(t, err)

	assert.Equal(t, "SOS triggered", resp.Message)
	require.NotNil(t, resp.SOS)
	require.NotNil(t, resp.SOS.DetectedLabel)
	assert.Equal(t, "Screaming", *resp.SOS.DetectedLabel)
	require.NotNil(t, resp.Dispatch)
	assert.Len(t, resp.Dispatch.Sent, 3)
}

func TestClassifyClassifierFailure(t *testing.T) {
	f := newAlertFixture(t)
	_, err := NewGuardianService(f.guardians, nil).Toggle(f.user.ID, true)
	require.NoError(t, err)

	f.runner.err = errors.New("classifier exited with error: model missing")

	_, err = f.svc.Classify(context.Background(), f.user.ID, "12.9", "77.5", writeTempAudio(t), "sample.wav")
	assert.True(t, errors.Is(err, ErrUpstream))
}

// ==================== Resend / history ====================

func TestResendUnknownAlert(t *testing.T) {
	f := newAlertFixture(t)

	_, err := f.svc.Resend(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResendUsesCurrentContacts(t *testing.T) {
	f := newAlertFixture(t)
	alert := testAlert(f.user.ID)
	require.NoError(t, f.alerts.Create(alert))

	report, err := f.svc.Resend(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Len(t, report.Sent, len(f.user.EmergencyContacts))
}

// ==================== False-alarm consensus ====================

func TestFalseVoteBelowQuorum(t *testing.T) {
	f := newAlertFixture(t)
	alert := testAlert(f.user.ID)
	require.NoError(t, f.alerts.Create(alert))

	resp, err := f.svc.RecordFalseVote(context.Background(), alert.ID, "9000000001")
	require.NoError(t, err)

	assert.False(t, resp.IsFalseAlarm)
	assert.Equal(t, 1, resp.Votes)
}

func TestFalseVoteIdempotentPerVoter(t *testing.T) {
	f := newAlertFixture(t)
	alert := testAlert(f.user.ID)
	require.NoError(t, f.alerts.Create(alert))

	for i := 0; i < 3; i++ {
		resp, err := f.svc.RecordFalseVote(context.Background(), alert.ID, "9000000001")
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Votes)
		assert.False(t, resp.IsFalseAlarm)
	}
}

func TestFalseVoteQuorumFlipsAlert(t *testing.T) {
	f := newAlertFixture(t)
	alert := testAlert(f.user.ID)
	require.NoError(t, f.alerts.Create(alert))

	_, err := f.svc.RecordFalseVote(context.Background(), alert.ID, "9000000001")
	require.NoError(t, err)

	resp, err := f.svc.RecordFalseVote(context.Background(), alert.ID, "9000000002")
	require.NoError(t, err)

	assert.True(t, resp.IsFalseAlarm)
	assert.Equal(t, 2, resp.Votes)
	assert.Contains(t, f.sink.eventTypes(), model.WSEventAlertFalseAlarm)
}

func TestFalseVoteAfterQuorumStaysResolved(t *testing.T) {
	f := newAlertFixture(t)
	alert := testAlert(f.user.ID)
	require.NoError(t, f.alerts.Create(alert))

	_, err := f.svc.RecordFalseVote(context.Background(), alert.ID, "9000000001")
	require.NoError(t, err)
	_, err = f.svc.RecordFalseVote(context.Background(), alert.ID, "9000000002")
	require.NoError(t, err)

	resp, err := f.svc.RecordFalseVote(context.Background(), alert.ID, "9000000003")
	require.NoError(t, err)
	assert.True(t, resp.IsFalseAlarm)
	assert.Equal(t, 3, resp.Votes)
}

func TestFalseVoteUnknownAlert(t *testing.T) {
	f := newAlertFixture(t)

	_, err := f.svc.RecordFalseVote(context.Background(), uuid.New(), "9000000001")
	assert.True(t, errors.Is(err, ErrNotFound))
}

// ==================== Inbound WhatsApp replies ====================

func TestInboundMessageWithoutDismissPhrase(t *testing.T) {
	f := newAlertFixture(t)

	reply, err := f.svc.HandleInboundMessage(context.Background(), "9000000001", "ok thanks for letting me know")
	require.NoError(t, err)
	assert.Equal(t, "Message received", reply)
}

func TestInboundMessageUnknownSender(t *testing.T) {
	f := newAlertFixture(t)

	reply, err := f.svc.HandleInboundMessage(context.Background(), "9999999999", "false alarm")
	require.NoError(t, err)
	assert.Equal(t, "No user found for this number", reply)
}

func TestInboundMessageNoOpenAlert(t *testing.T) {
	f := newAlertFixture(t)

	reply, err := f.svc.HandleInboundMessage(context.Background(), "9000000001", "false alarm")
	require.NoError(t, err)
	assert.Equal(t, "No open SOS found for this number", reply)
}

func TestInboundMessageRecordsVoteOnLatestAlert(t *testing.T) {
	f := newAlertFixture(t)
	alert := testAlert(f.user.ID)
	require.NoError(t, f.alerts.Create(alert))

	reply, err := f.svc.HandleInboundMessage(context.Background(), "9000000001", "This was a FALSE ALARM, all good")
	require.NoError(t, err)
	assert.Equal(t, "False alarm vote recorded", reply)

	stored, err := f.alerts.FindByID(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"9000000001"}, []string(stored.FalseDetectionVotes))
}

func TestInboundMessageHonorsEmbeddedRef(t *testing.T) {
	f := newAlertFixture(t)

	older := testAlert(f.user.ID)
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, f.alerts.Create(older))

	newer := testAlert(f.user.ID)
	newer.CreatedAt = time.Now()
	require.NoError(t, f.alerts.Create(newer))

	reply, err := f.svc.HandleInboundMessage(context.Background(), "9000000001", "ignore, Ref: "+older.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "False alarm vote recorded", reply)

	stored, err := f.alerts.FindByID(older.ID)
	require.NoError(t, err)
	assert.Len(t, stored.FalseDetectionVotes, 1)

	untouched, err := f.alerts.FindByID(newer.ID)
	require.NoError(t, err)
	assert.Empty(t, untouched.FalseDetectionVotes)
}

func TestInboundMessageEmpty(t *testing.T) {
	f := newAlertFixture(t)

	reply, err := f.svc.HandleInboundMessage(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "Message ignored", reply)
}
