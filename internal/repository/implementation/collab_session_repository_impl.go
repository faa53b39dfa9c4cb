package implementation

import (
	"context"
	"errors"

	"research-collab-be/internal/entity"
	"research-collab-be/internal/mapper"
	"research-collab-be/internal/model"
	"research-collab-be/internal/repository/contract"
	"research-collab-be/internal/repository/specification"

	"gorm.io/gorm"
)

type CollabSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CollabMapper
}

func NewCollabSessionRepository(db *gorm.DB) contract.CollabSessionRepository {
	return &CollabSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewCollabMapper(),
	}
}

func (r *CollabSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CollabSessionRepositoryImpl) Create(ctx context.Context, session *entity.CollabSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *CollabSessionRepositoryImpl) Update(ctx context.Context, session *entity.CollabSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *CollabSessionRepositoryImpl) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.CollabSession{}).Error
}

func (r *CollabSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CollabSession, error) {
	var m model.CollabSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *CollabSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CollabSession, error) {
	var models []*model.CollabSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.CollabSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SessionToEntity(m)
	}
	return entities, nil
}

func (r *CollabSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.CollabSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
