package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type ThreadReadRepo interface {
	// Advance upserts the cursor to max(current, at). GREATEST runs
	// inside the ON CONFLICT update, so concurrent writers can never
	// move a cursor backward. Returns the resulting row.
	Advance(ctx context.Context, tx *gorm.DB, courseCode, clientToken, readerRole string, at time.Time) (*types.ThreadRead, error)
	Get(ctx context.Context, tx *gorm.DB, courseCode, clientToken, readerRole string) (*types.ThreadRead, error)
	ListByCourseRole(ctx context.Context, tx *gorm.DB, courseCode, readerRole string) ([]*types.ThreadRead, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadRead, error)
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseCode string) error
}

type threadReadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadReadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadReadRepo {
	return &threadReadRepo{db: db, log: baseLog.With("repo", "ThreadReadRepo")}
}

func (r *threadReadRepo) Advance(ctx context.Context, tx *gorm.DB, courseCode, clientToken, readerRole string, at time.Time) (*types.ThreadRead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.ThreadRead{
		ID:          uuid.New(),
		CourseCode:  courseCode,
		ClientToken: clientToken,
		ReaderRole:  readerRole,
		LastReadAt:  at,
	}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_code"}, {Name: "client_token"}, {Name: "reader_role"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_read_at": gorm.Expr(`GREATEST("thread_reads"."last_read_at", EXCLUDED."last_read_at")`),
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, transaction, courseCode, clientToken, readerRole)
}

func (r *threadReadRepo) Get(ctx context.Context, tx *gorm.DB, courseCode, clientToken, readerRole string) (*types.ThreadRead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ThreadRead
	err := transaction.WithContext(ctx).
		Where("course_code = ? AND client_token = ? AND reader_role = ?", courseCode, clientToken, readerRole).
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

func (r *threadReadRepo) ListByCourseRole(ctx context.Context, tx *gorm.DB, courseCode, readerRole string) ([]*types.ThreadRead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.ThreadRead
	err := transaction.WithContext(ctx).
		Where("course_code = ? AND reader_role = ?", courseCode, readerRole).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *threadReadRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.ThreadRead, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.ThreadRead
	err := transaction.WithContext(ctx).
		Where("course_code = ?", courseCode).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *threadReadRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseCode string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("course_code = ?", courseCode).
		Delete(&types.ThreadRead{}).Error
}
