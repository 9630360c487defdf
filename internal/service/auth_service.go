package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"github.com/rakshaapp/raksha-api/pkg/auth"
	"github.com/rakshaapp/raksha-api/pkg/messaging"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	otpLength        = 6
	otpExpiryMinutes = 5
	otpRateLimit     = 3 // max OTPs per hour
)

// AuthService handles registration, login, and profile management.
// Credentials are bcrypt-hashed at rest; the original app compared plain
// values, which is deliberately not preserved.
type AuthService struct {
	users      UserStore
	otps       OTPStore
	jwtManager *auth.JWTManager
	messenger  messaging.Messenger
	rdb        *redis.Client
}

func NewAuthService(
	users UserStore,
	otps OTPStore,
	jwtManager *auth.JWTManager,
	messenger messaging.Messenger,
	rdb *redis.Client,
) *AuthService {
	return &AuthService{
		users:      users,
		otps:       otps,
		jwtManager: jwtManager,
		messenger:  messenger,
		rdb:        rdb,
	}
}

// ==================== Register ====================

// Register creates a new user. At least one of PIN, password, or
// fingerprint hash must be present; the phone number must be unused.
// A phone-verification OTP is sent over WhatsApp asynchronously.
func (s *AuthService) Register(req model.RegisterRequest) (*model.UserResponse, error) {
	if req.Pin == "" && req.Password == "" && req.FingerprintHash == "" {
		return nil, fmt.Errorf("%w: at least one of PIN, password, or fingerprint must be provided", ErrValidation)
	}
	if len(req.EmergencyContacts) > model.MaxEmergencyContacts {
		return nil, fmt.Errorf("%w: at most %d emergency contacts allowed", ErrValidation, model.MaxEmergencyContacts)
	}

	if _, err := s.users.FindByPhone(req.Phone); err == nil {
		return nil, fmt.Errorf("%w: user already exists with this phone number", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &model.User{
		Name:  req.Name,
		Phone: req.Phone,
	}

	var err error
	if user.PinHash, err = hashCredential(req.Pin); err != nil {
		return nil, err
	}
	if user.PasswordHash, err = hashCredential(req.Password); err != nil {
		return nil, err
	}
	if user.FingerprintHash, err = hashCredential(req.FingerprintHash); err != nil {
		return nil, err
	}

	for i, c := range req.EmergencyContacts {
		user.EmergencyContacts = append(user.EmergencyContacts, model.EmergencyContact{
			Position: i,
			Name:     c.Name,
			Phone:    c.Phone,
		})
	}

	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// Phone verification is advisory: delivery failure never fails the
	// registration
	go func() {
		if _, err := s.sendOTP(user); err != nil {
			log.Printf("⚠️ Failed to send verification OTP to %s: %v", user.Phone, err)
		}
	}()

	resp := user.ToResponse()
	return &resp, nil
}

// ==================== Login ====================

// Login authenticates with phone plus any one matching credential
func (s *AuthService) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	if req.Pin == "" && req.Password == "" && req.FingerprintHash == "" {
		return nil, fmt.Errorf("%w: provide at least one credential (PIN, password, or fingerprint)", ErrValidation)
	}

	user, err := s.users.FindByPhone(req.Phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}

	if !credentialMatches(user.PinHash, req.Pin) &&
		!credentialMatches(user.PasswordHash, req.Password) &&
		!credentialMatches(user.FingerprintHash, req.FingerprintHash) {
		return nil, ErrUnauthorized
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Phone, user.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	}, nil
}

// ==================== Phone verification (OTP) ====================

// VerifyOTP consumes a valid code and marks the phone verified
func (s *AuthService) VerifyOTP(req model.VerifyOTPRequest) (*model.SuccessResponse, error) {
	user, err := s.users.FindByPhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	otp, err := s.otps.FindValidOTP(user.ID, req.Code, model.OTPPurposePhoneVerification)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired OTP code", ErrValidation)
	}

	if err := s.otps.MarkAsUsed(otp.ID); err != nil {
		return nil, fmt.Errorf("failed to consume OTP: %w", err)
	}

	if err := s.users.VerifyPhone(user.ID); err != nil {
		return nil, fmt.Errorf("failed to verify phone: %w", err)
	}

	return &model.SuccessResponse{Message: "Phone number verified"}, nil
}

// ResendOTP generates and sends a new verification code
func (s *AuthService) ResendOTP(req model.ResendOTPRequest) (*model.OTPSentResponse, error) {
	user, err := s.users.FindByPhone(req.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}

	if user.IsPhoneVerified() {
		return nil, fmt.Errorf("%w: phone already verified", ErrValidation)
	}

	return s.sendOTP(user)
}

// ==================== Profile ====================

// GetProfile returns the user's profile without credentials
func (s *AuthService) GetProfile(userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	resp := user.ToResponse()
	return &resp, nil
}

// UpdateProfile updates the name and/or replaces the emergency contacts
func (s *AuthService) UpdateProfile(userID uuid.UUID, req model.UpdateProfileRequest) (*model.UserResponse, error) {
	if req.Name == "" && req.EmergencyContacts == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	var contacts []model.EmergencyContact
	if req.EmergencyContacts != nil {
		for i, c := range req.EmergencyContacts {
			contacts = append(contacts, model.EmergencyContact{
				Position: i,
				Name:     c.Name,
				Phone:    c.Phone,
			})
		}
	}

	if err := s.users.UpdateProfile(userID, req.Name, contacts); err != nil {
		return nil, err
	}
	return s.GetProfile(userID)
}

// RegisterDevice registers a device token for alert push notifications
func (s *AuthService) RegisterDevice(userID uuid.UUID, req model.RegisterDeviceRequest) error {
	return s.users.AddDevice(userID, req.FCMToken, req.DeviceType)
}

// Logout blacklists the token until its natural expiry
func (s *AuthService) Logout(tokenString string) error {
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		return err
	}

	expiresIn := time.Until(claims.ExpiresAt.Time)
	if expiresIn <= 0 {
		return nil
	}

	return s.rdb.Set(context.Background(), "blacklist:"+tokenString, "revoked", expiresIn).Err()
}

// ==================== Internal Helpers ====================

// sendOTP generates a code, saves it, and delivers it over WhatsApp
func (s *AuthService) sendOTP(user *model.User) (*model.OTPSentResponse, error) {
	// Rate limiting: max 3 OTPs per hour
	count, _ := s.otps.CountRecentOTPs(user.ID, model.OTPPurposePhoneVerification, time.Now().Add(-1*time.Hour))
	if count >= int64(otpRateLimit) {
		return nil, fmt.Errorf("%w: too many OTP requests, please try again later", ErrValidation)
	}

	// Invalidate old codes
	_ = s.otps.InvalidateAllForUser(user.ID, model.OTPPurposePhoneVerification)

	code, err := generateOTPCode(otpLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	otp := &model.OTPCode{
		UserID:    user.ID,
		Code:      code,
		Purpose:   model.OTPPurposePhoneVerification,
		ExpiresAt: time.Now().Add(time.Duration(otpExpiryMinutes) * time.Minute),
	}
	if err := s.otps.Create(otp); err != nil {
		return nil, fmt.Errorf("failed to save OTP: %w", err)
	}

	body := fmt.Sprintf("🛡️ Your Raksha verification code is *%s*. It expires in %d minutes.", code, otpExpiryMinutes)
	if err := s.messenger.SendWhatsApp(context.Background(), user.Phone, body); err != nil {
		return nil, fmt.Errorf("%w: OTP delivery failed: %v", ErrUpstream, err)
	}

	return &model.OTPSentResponse{
		Message:   "Verification code sent to your phone",
		Phone:     user.Phone,
		ExpiresIn: otpExpiryMinutes * 60,
	}, nil
}

// hashCredential bcrypt-hashes a non-empty credential; empty stays empty
func hashCredential(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(value), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(hashed), nil
}

// credentialMatches compares a submitted credential against a stored hash.
// A credential only counts when both sides are present.
func credentialMatches(storedHash, submitted string) bool {
	if storedHash == "" || submitted == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(submitted)) == nil
}

// generateOTPCode generates a cryptographically secure random numeric code
func generateOTPCode(length int) (string, error) {
	code := ""
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code += fmt.Sprintf("%d", n.Int64())
	}
	return code, nil
}
