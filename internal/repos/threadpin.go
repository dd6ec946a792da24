package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type ThreadPinRepo interface {
	// Pin inserts the pin row if absent; a concurrent duplicate is
	// ignored so repeated pins keep the original pinned_at. Returns
	// the authoritative row.
	Pin(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*types.ThreadPin, error)
	Get(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*types.ThreadPin, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadPin, error)
	// Unpin reports whether a row was removed; unpinning an absent pin
	// is a no-op success.
	Unpin(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (bool, error)
}

type threadPinRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadPinRepo(db *gorm.DB, baseLog *logger.Logger) ThreadPinRepo {
	return &threadPinRepo{db: db, log: baseLog.With("repo", "ThreadPinRepo")}
}

func (r *threadPinRepo) Pin(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*types.ThreadPin, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.ThreadPin{
		ID:          uuid.New(),
		CourseCode:  courseCode,
		ClientToken: clientToken,
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_code"}, {Name: "client_token"}},
			DoNothing: true,
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, transaction, courseCode, clientToken)
}

func (r *threadPinRepo) Get(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*types.ThreadPin, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ThreadPin
	err := transaction.WithContext(ctx).
		Where("course_code = ? AND client_token = ?", courseCode, clientToken).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *threadPinRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadPin, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.ThreadPin
	err := transaction.WithContext(ctx).
		Where("course_code = ?", courseCode).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *threadPinRepo) Unpin(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("course_code = ? AND client_token = ?", courseCode, clientToken).
		Delete(&types.ThreadPin{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
