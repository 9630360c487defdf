package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/rakshaapp/raksha-api/pkg/classifier"
	"github.com/rakshaapp/raksha-api/pkg/storage"
	"gorm.io/gorm"
)

// In-memory fakes for the store interfaces. They mirror the gorm
// repositories' contract: a miss is gorm.ErrRecordNotFound.

type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) Create(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeUserStore) FindByPhone(phone string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeUserStore) FindByContactPhone(phone string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		for _, c := range u.EmergencyContacts {
			if c.Phone == phone {
				return u, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeUserStore) UpdateProfile(userID uuid.UUID, name string, contacts []model.EmergencyContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name != "" {
		u.Name = name
	}
	if contacts != nil {
		u.EmergencyContacts = contacts
	}
	return nil
}

func (s *fakeUserStore) VerifyPhone(userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	u.PhoneVerifiedAt = &now
	return nil
}

func (s *fakeUserStore) AddDevice(userID uuid.UUID, token string, deviceType string) error {
	return nil
}

type fakeGuardianStore struct {
	mu   sync.Mutex
	logs map[uuid.UUID]*model.GuardianLog
}

func newFakeGuardianStore() *fakeGuardianStore {
	return &fakeGuardianStore{logs: make(map[uuid.UUID]*model.GuardianLog)}
}

func (s *fakeGuardianStore) FindByUserID(userID uuid.UUID) (*model.GuardianLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.logs[userID]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeGuardianStore) Save(glog *model.GuardianLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if glog.ID == uuid.Nil {
		glog.ID = uuid.New()
	}
	s.logs[glog.UserID] = glog
	return nil
}

type fakeAlertStore struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*model.Alert
}

func newFakeAlertStore(alerts ...*model.Alert) *fakeAlertStore {
	s := &fakeAlertStore{alerts: make(map[uuid.UUID]*model.Alert)}
	for _, a := range alerts {
		s.alerts[a.ID] = a
	}
	return s
}

func (s *fakeAlertStore) Create(alert *model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	s.alerts[alert.ID] = alert
	return nil
}

func (s *fakeAlertStore) FindByID(id uuid.UUID) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.alerts[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeAlertStore) ListByUser(userID uuid.UUID) ([]model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Alert
	for _, a := range s.alerts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeAlertStore) LatestOpenByUser(userID uuid.UUID) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.Alert
	for _, a := range s.alerts {
		if a.UserID != userID || a.IsFalseAlarm {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

// AddFalseVote mirrors the SQL behavior: deduplicate the voter, flip at
// quorum, never unflip.
func (s *fakeAlertStore) AddFalseVote(alertID uuid.UUID, voterPhone string, quorum int) (*model.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[alertID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	seen := false
	for _, v := range a.FalseDetectionVotes {
		if v == voterPhone {
			seen = true
			break
		}
	}
	if !seen {
		a.FalseDetectionVotes = append(a.FalseDetectionVotes, voterPhone)
		if len(a.FalseDetectionVotes) >= quorum {
			a.IsFalseAlarm = true
		}
	}

	copied := *a
	return &copied, nil
}

// fakeEventSink records emitted WebSocket events
type fakeEventSink struct {
	mu     sync.Mutex
	events []*model.WSEvent
}

func (s *fakeEventSink) SendToUser(userID uuid.UUID, event *model.WSEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeEventSink) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeStorage keeps track of uploads and deletions
type fakeStorage struct {
	mu         sync.Mutex
	uploads    []string
	deleted    []string
	failUpload bool
}

func (s *fakeStorage) Upload(ctx context.Context, reader io.Reader, size int64, filename, folder string) (*storage.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpload {
		return nil, errors.New("upload failed")
	}
	key := folder + "/" + uuid.New().String() + "-" + filename
	s.uploads = append(s.uploads, key)
	return &storage.UploadResult{
		URL:      "https://cdn.example.com/" + key,
		Key:      key,
		FileName: filename,
		FileSize: size,
	}, nil
}

func (s *fakeStorage) Delete(ctx context.Context, objectKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, objectKey)
	return nil
}

func (s *fakeStorage) GetPublicURL(objectName string) string {
	return "https://cdn.example.com/" + objectName
}

// fakeRunner returns a canned prediction
type fakeRunner struct {
	prediction classifier.Prediction
	err        error
	calls      int
}

func (r *fakeRunner) Classify(ctx context.Context, audioPath string) (classifier.Prediction, error) {
	r.calls++
	return r.prediction, r.err
}
