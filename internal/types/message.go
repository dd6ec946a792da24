package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent = "student"
	RoleSA      = "sa"
)

// Message belongs to exactly one thread, where a thread is the pair
// (course_code, client_token). created_at is assigned by the store and
// drives display order; message id breaks sub-resolution ties.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseCode  string    `gorm:"column:course_code;not null;index;index:idx_messages_thread,priority:1" json:"course_code"`
	ClientToken string    `gorm:"column:client_token;not null;index:idx_messages_thread,priority:2" json:"client_token"`

	StudentUserID *uuid.UUID `gorm:"type:uuid;column:student_user_id" json:"student_user_id,omitempty"`

	Role string `gorm:"column:role;not null;index" json:"role"`
	Body string `gorm:"column:body;type:text;not null;default:''" json:"body"`

	AttachmentURL  *string `gorm:"column:attachment_url" json:"attachment_url,omitempty"`
	AttachmentType *string `gorm:"column:attachment_type" json:"attachment_type,omitempty"`
	AttachmentName *string `gorm:"column:attachment_name" json:"attachment_name,omitempty"`

	// Set on SA replies only; snapshot of the sender at send time.
	SAUserID      *uuid.UUID `gorm:"type:uuid;column:sa_user_id" json:"sa_user_id,omitempty"`
	SADisplayName *string    `gorm:"column:sa_display_name" json:"sa_display_name,omitempty"`

	ParentMessageID *uuid.UUID `gorm:"type:uuid;column:parent_message_id" json:"parent_message_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// Call is a raw "come help me in person" event. handled_at is terminal:
// once set it is never cleared, and only rows with handled_at IS NULL
// are live.
type Call struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseCode  string    `gorm:"column:course_code;not null;index;index:idx_calls_thread,priority:1" json:"course_code"`
	ClientToken string    `gorm:"column:client_token;not null;index:idx_calls_thread,priority:2" json:"client_token"`

	StudentUserID *uuid.UUID `gorm:"type:uuid;column:student_user_id" json:"student_user_id,omitempty"`
	SeatText      *string    `gorm:"column:seat_text" json:"seat_text,omitempty"`
	HandledAt     *time.Time `gorm:"column:handled_at;index" json:"handled_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Call) TableName() string { return "calls" }
