package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tomoya0245/sa-chat/internal/logger"
	"github.com/tomoya0245/sa-chat/internal/types"
)

type SAProfileRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, displayName string) (*types.SAProfile, error)
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.SAProfile, error)
}

type saProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSAProfileRepo(db *gorm.DB, baseLog *logger.Logger) SAProfileRepo {
	return &saProfileRepo{db: db, log: baseLog.With("repo", "SAProfileRepo")}
}

func (r *saProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, userID uuid.UUID, displayName string) (*types.SAProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.SAProfile{UserID: userID, DisplayName: displayName}
	err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"display_name": displayName,
				"updated_at":   gorm.Expr("now()"),
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *saProfileRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.SAProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.SAProfile
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.UserID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
