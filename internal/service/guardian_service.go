package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"gorm.io/gorm"
)

// GuardianService handles the per-user Guardian Mode flag
type GuardianService struct {
	guardians GuardianStore
	events    EventSink
}

func NewGuardianService(guardians GuardianStore, events EventSink) *GuardianService {
	return &GuardianService{
		guardians: guardians,
		events:    events,
	}
}

// Toggle arms or disarms Guardian Mode. The log row is created lazily on
// the first toggle. There is no transition guard: re-toggling the same
// state keeps the flag value and refreshes the matching timestamp.
func (s *GuardianService) Toggle(userID uuid.UUID, activate bool) (*model.GuardianLog, error) {
	glog, err := s.guardians.FindByUserID(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		glog = &model.GuardianLog{UserID: userID}
	}

	now := time.Now()
	if activate {
		glog.IsActive = true
		glog.ActivatedAt = &now
		glog.DeactivatedAt = nil
	} else {
		glog.IsActive = false
		glog.DeactivatedAt = &now
	}

	if err := s.guardians.Save(glog); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.SendToUser(userID, &model.WSEvent{
			Type: model.WSEventGuardianToggled,
			Payload: model.GuardianEvent{
				UserID:   userID,
				IsActive: glog.IsActive,
			},
		})
	}

	return glog, nil
}

// Status returns the current Guardian Mode state; NotFound when the user
// has never toggled
func (s *GuardianService) Status(userID uuid.UUID) (*model.GuardianLog, error) {
	glog, err := s.guardians.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no guardian data for user", ErrNotFound)
		}
		return nil, err
	}
	return glog, nil
}

// IsActive reports whether Guardian Mode is armed; a missing log row means
// the user never armed it
func (s *GuardianService) IsActive(userID uuid.UUID) (bool, error) {
	glog, err := s.guardians.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return glog.IsActive, nil
}
