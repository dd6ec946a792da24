package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReaderRoleStudent = "student"
	ReaderRoleSA      = "sa"
)

// ThreadLock grants one SA exclusive ownership of a thread. The unique
// index on (course_code, client_token) is the compare-and-swap: an
// insert that hits it means another SA already owns the thread.
type ThreadLock struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseCode  string    `gorm:"column:course_code;not null;index:idx_thread_locks_thread,unique,priority:1" json:"course_code"`
	ClientToken string    `gorm:"column:client_token;not null;index:idx_thread_locks_thread,unique,priority:2" json:"client_token"`

	SAUserID uuid.UUID `gorm:"type:uuid;column:sa_user_id;not null" json:"sa_user_id"`
	SAName   string    `gorm:"column:sa_name;not null;default:''" json:"sa_name"`

	LockedAt time.Time `gorm:"column:locked_at;not null;default:now()" json:"locked_at"`
}

func (ThreadLock) TableName() string { return "thread_locks" }

// ThreadRead is the per-role read cursor: the latest message timestamp
// that role has observed in the thread. Writes never move it backward.
type ThreadRead struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseCode  string    `gorm:"column:course_code;not null;index:idx_thread_reads_cursor,unique,priority:1" json:"course_code"`
	ClientToken string    `gorm:"column:client_token;not null;index:idx_thread_reads_cursor,unique,priority:2" json:"client_token"`
	ReaderRole  string    `gorm:"column:reader_role;not null;index:idx_thread_reads_cursor,unique,priority:3" json:"reader_role"`

	LastReadAt time.Time `gorm:"column:last_read_at;not null" json:"last_read_at"`
}

func (ThreadRead) TableName() string { return "thread_reads" }

// ThreadPin marks a thread as prioritized; presence is the whole state.
type ThreadPin struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseCode  string    `gorm:"column:course_code;not null;index:idx_thread_pins_thread,unique,priority:1" json:"course_code"`
	ClientToken string    `gorm:"column:client_token;not null;index:idx_thread_pins_thread,unique,priority:2" json:"client_token"`

	PinnedAt time.Time `gorm:"column:pinned_at;not null;default:now()" json:"pinned_at"`
}

func (ThreadPin) TableName() string { return "thread_pins" }

// StudentAlias maps a thread to its anonymous display number, assigned
// in first-appearance order starting at 1 within each course. Both
// the token and the number are unique per course, so the number can
// never change or be shared once a row commits.
type StudentAlias struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseCode  string    `gorm:"column:course_code;not null;index:idx_student_aliases_thread,unique,priority:1;index:idx_student_aliases_number,unique,priority:1" json:"course_code"`
	ClientToken string    `gorm:"column:client_token;not null;index:idx_student_aliases_thread,unique,priority:2" json:"client_token"`

	AliasNumber int `gorm:"column:alias_number;not null;index:idx_student_aliases_number,unique,priority:2" json:"alias_number"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (StudentAlias) TableName() string { return "student_aliases" }
