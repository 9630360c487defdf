package model

import (
	"time"

	"github.com/google/uuid"
)

// OTPPurpose defines what an OTP code is for
type OTPPurpose string

const (
	OTPPurposePhoneVerification OTPPurpose = "phone_verification"
)

// OTPCode is a one-time code delivered to the user's phone over WhatsApp
type OTPCode struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Code      string     `json:"-" gorm:"size:10;not null"`
	Purpose   OTPPurpose `json:"purpose" gorm:"size:30;not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsValid checks if the OTP can still be used
func (o *OTPCode) IsValid() bool {
	return o.UsedAt == nil && time.Now().Before(o.ExpiresAt)
}
