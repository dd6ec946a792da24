package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type ThreadLockRepo interface {
	// TryClaim attempts the insert-if-absent compare-and-swap. It
	// reports false when the unique (course_code, client_token) index
	// rejected the row, meaning some lock already exists.
	TryClaim(ctx context.Context, tx *gorm.DB, lock *types.ThreadLock) (bool, error)
	Get(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*types.ThreadLock, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadLock, error)
	// DeleteOwned removes the lock only when saUserID still owns it and
	// reports whether a row was actually deleted.
	DeleteOwned(ctx context.Context, tx *gorm.DB, courseCode, clientToken string, saUserID uuid.UUID) (bool, error)
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseCode string) error
}

type threadLockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadLockRepo(db *gorm.DB, baseLog *logger.Logger) ThreadLockRepo {
	return &threadLockRepo{db: db, log: baseLog.With("repo", "ThreadLockRepo")}
}

func (r *threadLockRepo) TryClaim(ctx context.Context, tx *gorm.DB, lock *types.ThreadLock) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_code"}, {Name: "client_token"}},
			DoNothing: true,
		}).
		Create(lock)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *threadLockRepo) Get(ctx context.Context, tx *gorm.DB, courseCode, clientToken string) (*types.ThreadLock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ThreadLock
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

func (r *threadLockRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadLock, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.ThreadLock
	err := transaction.WithContext(ctx).
		Where("course_code = ?", courseCode).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *threadLockRepo) DeleteOwned(ctx context.Context, tx *gorm.DB, courseCode, clientToken string, saUserID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("course_code = ? AND client_token = ? AND sa_user_id = ?", courseCode, clientToken, saUserID).
		Delete(&types.ThreadLock{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *threadLockRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseCode string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("course_code = ?", courseCode).
		Delete(&types.ThreadLock{}).Error
}
