package mapper

import (
	"encoding/json"
	"time"

	"research-collab-be/internal/entity"
	"research-collab-be/internal/model"

	"gorm.io/datatypes"
)

type CollabMapper struct{}

func NewCollabMapper() *CollabMapper {
	return &CollabMapper{}
}

func (m *CollabMapper) SessionToModel(e *entity.CollabSession) *model.CollabSession {
	researchData, _ := json.Marshal(e.ResearchData)
	permissions, _ := json.Marshal(e.Permissions)
	settings, _ := json.Marshal(e.Settings)

	row := &model.CollabSession{
		SessionID:    e.SessionID,
		Title:        e.Title,
		Description:  e.Description,
		OwnerID:      e.OwnerID,
		ResearchData: datatypes.JSON(researchData),
		Permissions:  datatypes.JSON(permissions),
		Settings:     datatypes.JSON(settings),
		LastSyncAt:   e.LastSyncAt,
		CreatedAt:    e.CreatedAt,
	}
	if e.UpdatedAt != nil {
		row.UpdatedAt = *e.UpdatedAt
	} else {
		row.UpdatedAt = time.Now()
	}
	return row
}

func (m *CollabMapper) SessionToEntity(row *model.CollabSession) *entity.CollabSession {
	e := &entity.CollabSession{
		SessionID:    row.SessionID,
		Title:        row.Title,
		Description:  row.Description,
		OwnerID:      row.OwnerID,
		ResearchData: map[string]any{},
		LastSyncAt:   row.LastSyncAt,
		CreatedAt:    row.CreatedAt,
	}

	updatedAt := row.UpdatedAt
	e.UpdatedAt = &updatedAt

	// Malformed JSONB leaves the zero value; the manager treats that as an
	// empty document rather than failing the load.
	_ = json.Unmarshal(row.ResearchData, &e.ResearchData)
	_ = json.Unmarshal(row.Permissions, &e.Permissions)
	_ = json.Unmarshal(row.Settings, &e.Settings)

	return e
}
