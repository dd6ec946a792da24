package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Course is one class's chat space, addressed by its short code.
type Course struct {
	Code     string  `gorm:"primaryKey;size:64" json:"code"`
	Title    string  `gorm:"not null" json:"title"`
	TimeSlot *string `gorm:"column:time_slot" json:"time_slot,omitempty"`
	Room     *string `gorm:"column:room" json:"room,omitempty"`

	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Course) TableName() string { return "courses" }

// SAProfile stores the display name an SA chose for themselves.
// Message rows snapshot this at send time; renaming never rewrites
// historical attribution.
type SAProfile struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	DisplayName string    `gorm:"column:display_name;not null" json:"display_name"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (SAProfile) TableName() string { return "sa_profiles" }
