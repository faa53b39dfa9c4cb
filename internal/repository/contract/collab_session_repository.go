package contract

import (
	"context"

	"research-collab-be/internal/entity"
	"research-collab-be/internal/repository/specification"
)

type CollabSessionRepository interface {
	Create(ctx context.Context, session *entity.CollabSession) error
	Update(ctx context.Context, session *entity.CollabSession) error
	Delete(ctx context.Context, sessionID string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.CollabSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.CollabSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
