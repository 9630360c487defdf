package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Auth DTOs ==========

type ContactInput struct {
	Name  string `json:"name" binding:"required,min=2,max=100"`
	Phone string `json:"phone" binding:"required,min=6,max=20"`
}

type RegisterRequest struct {
	Name              string         `json:"name" binding:"required,min=2,max=100"`
	Phone             string         `json:"phone" binding:"required,min=6,max=20"`
	Pin               string         `json:"pin"`
	Password          string         `json:"password"`
	FingerprintHash   string         `json:"fingerprint_hash"`
	EmergencyContacts []ContactInput `json:"emergency_contacts" binding:"omitempty,max=5,dive"`
}

type LoginRequest struct {
	Phone           string `json:"phone" binding:"required"`
	Pin             string `json:"pin"`
	Password        string `json:"password"`
	FingerprintHash string `json:"fingerprint_hash"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UpdateProfileRequest struct {
	Name              string         `json:"name" binding:"omitempty,min=2,max=100"`
	EmergencyContacts []ContactInput `json:"emergency_contacts" binding:"omitempty,min=1,max=5,dive"`
}

type RegisterDeviceRequest struct {
	FCMToken   string `json:"fcm_token" binding:"required"`
	DeviceType string `json:"device_type" binding:"required,oneof=android ios"`
}

// ========== OTP DTOs ==========

type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required,len=6"`
}

type ResendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type OTPSentResponse struct {
	Message   string `json:"message"`
	Phone     string `json:"phone"`
	ExpiresIn int    `json:"expires_in"` // seconds until code expires
}

// ========== Guardian DTOs ==========

type GuardianToggleRequest struct {
	UserID   uuid.UUID `json:"user_id" binding:"required"`
	Activate *bool     `json:"activate" binding:"required"`
}

type GuardianStatusResponse struct {
	IsActive      bool       `json:"is_active"`
	ActivatedAt   *time.Time `json:"activated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// ========== SOS DTOs ==========

type ResendSOSRequest struct {
	SOSID uuid.UUID `json:"sos_id" binding:"required"`
}

type FalseVoteRequest struct {
	SOSID      uuid.UUID `json:"sos_id" binding:"required"`
	VoterPhone string    `json:"voter_phone" binding:"required"`
}

type FalseVoteResponse struct {
	IsFalseAlarm bool `json:"is_false_alarm"`
	Votes        int  `json:"votes"`
}

// ContactDelivery reports one contact's dispatch outcome
type ContactDelivery struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Error string `json:"error,omitempty"`
}

// DispatchReport aggregates a fan-out: a single failed contact does not
// fail the dispatch as a whole
type DispatchReport struct {
	Sent   []ContactDelivery `json:"sent"`
	Failed []ContactDelivery `json:"failed"`
}

type TriggerSOSResponse struct {
	Message  string         `json:"message"`
	SOS      *Alert         `json:"sos"`
	Dispatch DispatchReport `json:"dispatch"`
}

type ClassifySOSResponse struct {
	Message    string          `json:"message"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	SOS        *Alert          `json:"sos,omitempty"`
	Dispatch   *DispatchReport `json:"dispatch,omitempty"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocket event types
const (
	WSEventAlertRaised     = "alert_raised"
	WSEventAlertFalseAlarm = "alert_false_alarm"
	WSEventGuardianToggled = "guardian_toggled"
)

type AlertEvent struct {
	AlertID      uuid.UUID `json:"alert_id"`
	UserID       uuid.UUID `json:"user_id"`
	AudioURL     string    `json:"audio_url,omitempty"`
	Label        *string   `json:"label,omitempty"`
	IsFalseAlarm bool      `json:"is_false_alarm"`
}

type GuardianEvent struct {
	UserID   uuid.UUID `json:"user_id"`
	IsActive bool      `json:"is_active"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
