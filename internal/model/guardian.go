package model

import (
	"time"

	"github.com/google/uuid"
)

// GuardianLog tracks the per-user Guardian Mode flag. One row per user,
// created lazily on the first toggle. ActivatedAt/DeactivatedAt record the
// last transition in each direction; deactivating does not clear ActivatedAt.
type GuardianLog struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	IsActive      bool       `json:"is_active" gorm:"not null;default:false"`
	ActivatedAt   *time.Time `json:"activated_at" gorm:"type:timestamptz"`
	DeactivatedAt *time.Time `json:"deactivated_at" gorm:"type:timestamptz"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
