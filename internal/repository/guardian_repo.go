package repository

import (
	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"gorm.io/gorm"
)

// GuardianRepository handles database operations for GuardianLog
type GuardianRepository struct {
	db *gorm.DB
}

func NewGuardianRepository(db *gorm.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// FindByUserID returns the user's guardian log, gorm.ErrRecordNotFound if
// the user never toggled
func (r *GuardianRepository) FindByUserID(userID uuid.UUID) (*model.GuardianLog, error) {
	var glog model.GuardianLog
	err := r.db.Where("user_id = ?", userID).First(&glog).Error
	if err != nil {
		return nil, err
	}
	return &glog, nil
}

// Save creates or updates a guardian log row
func (r *GuardianRepository) Save(glog *model.GuardianLog) error {
	return r.db.Save(glog).Error
}
