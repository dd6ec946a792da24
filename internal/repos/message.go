package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tomoya0245/sa-chat/internal/apperr"
	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Message, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.Message, error)
	ListByThread(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) ([]*types.Message, error)
	// CountSince counts messages in a thread by the given author role
	// created strictly after the cursor; a nil cursor counts them all.
	CountSince(ctx context.Context, tx *gorm.DB, courseCode, clientToken, role string, after *time.Time) (int64, error)
	// ThreadStudentUserID resolves the student behind a thread from its
	// earliest student-authored message, if any carries one.
	ThreadStudentUserID(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*uuid.UUID, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Message
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, apperr.ErrNotFound
	}
	return &row, nil
}

func (r *messageRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Message
	err := transaction.WithContext(ctx).
		Where("course_code = ?", courseCode).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageRepo) ListByThread(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Message
	err := transaction.WithContext(ctx).
		Where("course_code = ? AND client_token = ?", courseCode, clientToken).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageRepo) CountSince(ctx context.Context, tx *gorm.DB, courseCode, clientToken, role string, after *time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("course_code = ? AND client_token = ? AND role = ?", courseCode, clientToken, role)
	if after != nil {
		q = q.Where("created_at > ?", *after)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *messageRepo) ThreadStudentUserID(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Message
	err := transaction.WithContext(ctx).
		Select("student_user_id").
		Where("course_code = ? AND client_token = ? AND role = ? AND student_user_id IS NOT NULL",
			courseCode, clientToken, types.RoleStudent).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].StudentUserID, nil
}
