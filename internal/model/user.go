package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxEmergencyContacts bounds the per-user contact list
const MaxEmergencyContacts = 5

// User represents a registered user. Exactly which credentials are set
// varies per user; at least one of PIN, password, or fingerprint hash is
// guaranteed non-empty at registration time. All three are stored as
// bcrypt hashes, never as submitted values.
type User struct {
	ID    uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name  string    `json:"name" gorm:"size:100;not null"`
	Phone string    `json:"phone" gorm:"uniqueIndex;not null;size:20"`

	PinHash         string `json:"-" gorm:"size:255"`
	PasswordHash    string `json:"-" gorm:"size:255"`
	FingerprintHash string `json:"-" gorm:"size:255"`

	EmergencyContacts []EmergencyContact `json:"emergency_contacts" gorm:"constraint:OnDelete:CASCADE"`

	PhoneVerifiedAt *time.Time     `json:"phone_verified_at" gorm:"type:timestamptz"` // NULL = not verified
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// IsPhoneVerified checks whether the user completed OTP verification
func (u *User) IsPhoneVerified() bool {
	return u.PhoneVerifiedAt != nil
}

// EmergencyContact is one entry in a user's ordered contact list
type EmergencyContact struct {
	ID       uint      `json:"-" gorm:"primaryKey"`
	UserID   uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	Position int       `json:"position" gorm:"not null"`
	Name     string    `json:"name" gorm:"size:100;not null"`
	Phone    string    `json:"phone" gorm:"size:20;not null"`
}

// UserResponse is the safe version of User for API responses
type UserResponse struct {
	ID                uuid.UUID          `json:"id"`
	Name              string             `json:"name"`
	Phone             string             `json:"phone"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts"`
	PhoneVerified     bool               `json:"phone_verified"`
	CreatedAt         time.Time          `json:"created_at"`
}

// ToResponse converts User to safe UserResponse
func (u *User) ToResponse() UserResponse {
	contacts := u.EmergencyContacts
	if contacts == nil {
		contacts = []EmergencyContact{}
	}
	return UserResponse{
		ID:                u.ID,
		Name:              u.Name,
		Phone:             u.Phone,
		EmergencyContacts: contacts,
		PhoneVerified:     u.IsPhoneVerified(),
		CreatedAt:         u.CreatedAt,
	}
}
