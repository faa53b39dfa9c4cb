package implementation

import (
	"context"
	"fmt"

	"research-collab-be/internal/model"
	"research-collab-be/internal/repository/contract"
	"research-collab-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CollabActivityRepositoryImpl struct {
	db *gorm.DB
}

func NewCollabActivityRepository(db *gorm.DB) contract.CollabActivityRepository {
	return &CollabActivityRepositoryImpl{db: db}
}

func (r *CollabActivityRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CollabActivityRepositoryImpl) Create(ctx context.Context, activity *model.CollabActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *CollabActivityRepositoryImpl) CreateBatch(ctx context.Context, activities []*model.CollabActivity) error {
	if len(activities) == 0 {
		return nil
	}
	for _, a := range activities {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&activities).Error
}

func (r *CollabActivityRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.CollabActivity, error) {
	var rows []*model.CollabActivity
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CollabActivityRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.CollabActivity{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CollabActivityRepositoryImpl) DeleteOlderThan(ctx context.Context, sessionID string, retentionDays int) error {
	if retentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	return r.db.WithContext(ctx).
		Where("session_id = ? AND created_at < NOW() - make_interval(days => ?)", sessionID, retentionDays).
		Delete(&model.CollabActivity{}).Error
}
