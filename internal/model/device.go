package model

import (
	"time"

	"github.com/google/uuid"
)

// UserDevice stores an FCM registration token for alert push notifications
type UserDevice struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_fcm"`
	FCMToken     string    `json:"fcm_token" gorm:"size:500;not null;uniqueIndex:idx_user_fcm"`
	DeviceType   string    `json:"device_type" gorm:"size:20"` // "android" | "ios"
	LastActiveAt time.Time `json:"last_active_at"`
}
