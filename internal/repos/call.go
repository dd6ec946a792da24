package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type CallRepo interface {
	Create(ctx context.Context, tx *gorm.DB, call *types.Call) (*types.Call, error)
	ListUnhandled(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.Call, error)
	// MarkHandled stamps every unhandled call of the thread in one
	// UPDATE and returns how many rows it closed.
	MarkHandled(ctx context.Context, tx *gorm.DB, courseCode, clientToken string, at time.Time) (int64, []*types.Call, error)
}

type callRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCallRepo(db *gorm.DB, baseLog *logger.Logger) CallRepo {
	return &callRepo{db: db, log: baseLog.With("repo", "CallRepo")}
}

func (r *callRepo) Create(ctx context.Context, tx *gorm.DB, call *types.Call) (*types.Call, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(call).Error; err != nil {
		return nil, err
	}
	return call, nil
}

func (r *callRepo) ListUnhandled(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.Call, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Call
	err := transaction.WithContext(ctx).
		Where("course_code = ? AND handled_at IS NULL", courseCode).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *callRepo) MarkHandled(ctx context.Context, tx *gorm.DB, courseCode, clientToken string, at time.Time) (int64, []*types.Call, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Call{}).
		Where("course_code = ? AND client_token = ? AND handled_at IS NULL", courseCode, clientToken).
		Update("handled_at", at)
	if res.Error != nil {
		return 0, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil, nil
	}
	var closed []*types.Call
	err := transaction.WithContext(ctx).
		Where("course_code = ? AND client_token = ? AND handled_at = ?", courseCode, clientToken, at).
		Order("created_at ASC, id ASC").
		Find(&closed).Error
	if err != nil {
		return res.RowsAffected, nil, err
	}
	return res.RowsAffected, closed, nil
}
