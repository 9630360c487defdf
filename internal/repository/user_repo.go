package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles database operations for User
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user along with their emergency contacts
func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by UUID, contacts included
func (r *UserRepository) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.Preload("EmergencyContacts", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByPhone finds a user by their own phone number
func (r *UserRepository) FindByPhone(phone string) (*model.User, error) {
	var user model.User
	err := r.db.Preload("EmergencyContacts", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("phone = ?", phone).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByContactPhone finds the user that lists the given phone number as
// an emergency contact. Used by the inbound webhook to map a reply back
// to the protected user.
func (r *UserRepository) FindByContactPhone(phone string) (*model.User, error) {
	var user model.User
	err := r.db.
		Joins("JOIN emergency_contacts ON emergency_contacts.user_id = users.id").
		Where("emergency_contacts.phone = ?", phone).
		Preload("EmergencyContacts", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile updates the user's name and, when contacts are given,
// replaces the whole contact list in one transaction
func (r *UserRepository) UpdateProfile(userID uuid.UUID, name string, contacts []model.EmergencyContact) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if name != "" {
			if err := tx.Model(&model.User{}).Where("id = ?", userID).Update("name", name).Error; err != nil {
				return err
			}
		}
		if contacts != nil {
			if err := tx.Where("user_id = ?", userID).Delete(&model.EmergencyContact{}).Error; err != nil {
				return err
			}
			for i := range contacts {
				contacts[i].UserID = userID
				contacts[i].Position = i
			}
			if err := tx.Create(&contacts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// VerifyPhone marks the user's phone as verified
func (r *UserRepository) VerifyPhone(userID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("phone_verified_at", now).Error
}

// AddDevice adds or refreshes an FCM device token
func (r *UserRepository) AddDevice(userID uuid.UUID, token string, deviceType string) error {
	device := model.UserDevice{
		UserID:       userID,
		FCMToken:     token,
		DeviceType:   deviceType,
		LastActiveAt: time.Now(),
	}
	// Upsert: on conflict do update
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "fcm_token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_active_at": time.Now(),
			"device_type":    deviceType,
		}),
	}).Create(&device).Error
}

// GetUserDevices gets all devices for a user
func (r *UserRepository) GetUserDevices(userID uuid.UUID) ([]model.UserDevice, error) {
	var devices []model.UserDevice
	err := r.db.Where("user_id = ?", userID).Find(&devices).Error
	return devices, err
}
