package repository

import (
	"github.com/google/uuid"
	"github.com/rakshaapp/raksha-api/internal/model"
	"gorm.io/gorm"
)

// AlertRepository handles database operations for SOS alerts
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert
func (r *AlertRepository) Create(alert *model.Alert) error {
	return r.db.Create(alert).Error
}

// FindByID finds an alert by UUID
func (r *AlertRepository) FindByID(id uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	err := r.db.Where("id = ?", id).First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListByUser returns all alerts for a user, newest first
func (r *AlertRepository) ListByUser(userID uuid.UUID) ([]model.Alert, error) {
	var alerts []model.Alert
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&alerts).Error
	return alerts, err
}

// LatestOpenByUser returns the user's most recent alert that has not been
// resolved as a false alarm
func (r *AlertRepository) LatestOpenByUser(userID uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	err := r.db.
		Where("user_id = ? AND is_false_alarm = false", userID).
		Order("created_at DESC").
		First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// AddFalseVote records a false-alarm vote in a single atomic statement:
// the dedup guard, the append, and the quorum check all happen inside one
// UPDATE so concurrent voters cannot lose updates or double-count. A
// duplicate voter matches zero rows, which makes the call a no-op. The
// current row is re-read and returned either way.
func (r *AlertRepository) AddFalseVote(alertID uuid.UUID, voterPhone string, quorum int) (*model.Alert, error) {
	err := r.db.Exec(`
		UPDATE sos_alerts
		SET false_detection_votes = array_append(false_detection_votes, ?),
		    is_false_alarm = is_false_alarm OR cardinality(false_detection_votes) + 1 >= ?
		WHERE id = ? AND NOT (? = ANY(false_detection_votes))`,
		voterPhone, quorum, alertID, voterPhone).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(alertID)
}
