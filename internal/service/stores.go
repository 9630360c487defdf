package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
)

// Persistence interfaces consumed by the services. The gorm repositories
// in internal/repository are the production implementations; tests use
// in-memory fakes.

type UserStore interface {
	Create(user *model.User) error
	FindByID(id uuid.UUID) (*model.User, error)
	FindByPhone(phone string) (*model.User, error)
	FindByContactPhone(phone string) (*model.User, error)
	UpdateProfile(userID uuid.UUID, name string, contacts []model.EmergencyContact) error
	VerifyPhone(userID uuid.UUID) error
	AddDevice(userID uuid.UUID, token string, deviceType string) error
}

type GuardianStore interface {
	FindByUserID(userID uuid.UUID) (*model.GuardianLog, error)
	Save(glog *model.GuardianLog) error
}

type AlertStore interface {
	Create(alert *model.Alert) error
	FindByID(id uuid.UUID) (*model.Alert, error)
	ListByUser(userID uuid.UUID) ([]model.Alert, error)
	LatestOpenByUser(userID uuid.UUID) (*model.Alert, error)
	AddFalseVote(alertID uuid.UUID, voterPhone string, quorum int) (*model.Alert, error)
}

type OTPStore interface {
	Create(otp *model.OTPCode) error
	FindValidOTP(userID uuid.UUID, code string, purpose model.OTPPurpose) (*model.OTPCode, error)
	MarkAsUsed(id uuid.UUID) error
	CountRecentOTPs(userID uuid.UUID, purpose model.OTPPurpose, since time.Time) (int64, error)
	InvalidateAllForUser(userID uuid.UUID, purpose model.OTPPurpose) error
}

// EventSink delivers realtime events to a user's open WebSocket
// connections. The ws.Hub is the production implementation.
type EventSink interface {
	SendToUser(userID uuid.UUID, event *model.WSEvent)
}
