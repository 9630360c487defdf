package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Alert is one raised SOS event. Lat/Lng are kept as opaque text exactly
// as submitted by the device. DetectedLabel/Confidence are set only for
// classifier-originated alerts. FalseDetectionVotes holds distinct voter
// phone numbers; IsFalseAlarm flips to true at quorum and never resets.
type Alert struct {
	ID                  uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID              uuid.UUID      `json:"user_id" gorm:"type:uuid;not null;index"`
	AudioURL            string         `json:"audio_url" gorm:"size:500;not null"`
	AudioKey            string         `json:"-" gorm:"size:500"` // object key in storage, for cleanup
	Lat                 string         `json:"lat" gorm:"size:50"`
	Lng                 string         `json:"lng" gorm:"size:50"`
	DetectedLabel       *string        `json:"detected_label,omitempty" gorm:"size:100"`
	Confidence          *float64       `json:"confidence,omitempty"`
	FalseDetectionVotes pq.StringArray `json:"false_detection_votes" gorm:"type:text[];not null;default:'{}'"`
	IsFalseAlarm        bool           `json:"is_false_alarm" gorm:"not null;default:false"`
	CreatedAt           time.Time      `json:"created_at"`
}

// TableName keeps the historical table name
func (Alert) TableName() string {
	return "sos_alerts"
}
