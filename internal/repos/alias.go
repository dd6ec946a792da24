package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type StudentAliasRepo interface {
	ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.StudentAlias, error)
	// InsertIgnore persists newly computed alias rows. Rows losing the
	// race on either unique index (token or number) are silently
	// skipped; the first committed write wins. Reports how many rows
	// actually landed so callers know to re-read.
	InsertIgnore(ctx context.Context, tx *gorm.DB, rows []*types.StudentAlias) (int64, error)
}

type studentAliasRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentAliasRepo(db *gorm.DB, baseLog *logger.Logger) StudentAliasRepo {
	return &studentAliasRepo{db: db, log: baseLog.With("repo", "StudentAliasRepo")}
}

func (r *studentAliasRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseCode string) ([]*types.StudentAlias, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.StudentAlias
	err := transaction.WithContext(ctx).
		Where("course_code = ?", courseCode).
		Order("alias_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *studentAliasRepo) InsertIgnore(ctx context.Context, tx *gorm.DB, rows []*types.StudentAlias) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return 0, nil
	}
	var affected int64
	// One statement per row: a single multi-row insert would abort
	// entirely when any row conflicts on the alias-number index.
	for _, row := range rows {
		res := transaction.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(row)
		if res.Error != nil {
			return affected, res.Error
		}
		affected += res.RowsAffected
	}
	return affected, nil
}
