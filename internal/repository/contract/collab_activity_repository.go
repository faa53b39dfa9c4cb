package contract

import (
	"context"

	"research-collab-be/internal/model"
	"research-collab-be/internal/repository/specification"
)

type CollabActivityRepository interface {
	Create(ctx context.Context, activity *model.CollabActivity) error
	CreateBatch(ctx context.Context, activities []*model.CollabActivity) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*model.CollabActivity, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	DeleteOlderThan(ctx context.Context, sessionID string, retentionDays int) error
}
