package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"research-collab-be/internal/entity"
	"research-collab-be/internal/model"
	"research-collab-be/internal/repository/implementation"
	"research-collab-be/internal/repository/specification"
	"research-collab-be/pkg/collab"
	"research-collab-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	require.NoError(t, gormDB.AutoMigrate(&model.CollabSession{}, &model.CollabActivity{}))

	sessionRepo := implementation.NewCollabSessionRepository(gormDB)
	activityRepo := implementation.NewCollabActivityRepository(gormDB)

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	t.Run("Session round trip", func(t *testing.T) {
		sessionID := collab.NewSessionID()
		session := &entity.CollabSession{
			SessionID:   sessionID,
			Title:       "Integration session",
			Description: "created by integration test",
			OwnerID:     "integration-user",
			ResearchData: map[string]any{
				"intro": "first draft",
			},
			Permissions: entity.SessionPermissions{
				AllowPublicView:  true,
				MaxCollaborators: 5,
			},
			CreatedAt: time.Now().UTC(),
		}

		require.NoError(t, sessionRepo.Create(context.Background(), session))
		defer sessionRepo.Delete(context.Background(), sessionID)

		found, err := sessionRepo.FindOne(context.Background(), specification.BySessionID{SessionID: sessionID})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Integration session", found.Title)
		assert.Equal(t, "first draft", found.ResearchData["intro"])
		assert.Equal(t, 5, found.Permissions.MaxCollaborators)

		found.ResearchData["intro"] = "second draft"
		require.NoError(t, sessionRepo.Update(context.Background(), found))

		found, err = sessionRepo.FindOne(context.Background(), specification.BySessionID{SessionID: sessionID})
		require.NoError(t, err)
		assert.Equal(t, "second draft", found.ResearchData["intro"])
	})

	t.Run("FindOne returns nil for missing session", func(t *testing.T) {
		found, err := sessionRepo.FindOne(context.Background(), specification.BySessionID{SessionID: "collab_missing00000"})
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("Activity history", func(t *testing.T) {
		sessionID := collab.NewSessionID()
		rows := []*model.CollabActivity{
			{
				ID:           uuid.New(),
				SessionID:    sessionID,
				UserID:       "integration-user",
				Username:     "Integration",
				ActivityType: "join_session",
				Content:      datatypes.JSON(`{"role":"owner"}`),
				CreatedAt:    time.Now().UTC(),
			},
			{
				ID:           uuid.New(),
				SessionID:    sessionID,
				UserID:       "integration-user",
				Username:     "Integration",
				ActivityType: "edit_content",
				Content:      datatypes.JSON(`{"section_id":"intro"}`),
				CreatedAt:    time.Now().UTC(),
			},
		}
		require.NoError(t, activityRepo.CreateBatch(context.Background(), rows))

		count, err := activityRepo.Count(context.Background(), specification.BySessionID{SessionID: sessionID})
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		edits, err := activityRepo.FindAll(context.Background(),
			specification.BySessionID{SessionID: sessionID},
			specification.ByActivityType{ActivityType: "edit_content"},
		)
		require.NoError(t, err)
		require.Len(t, edits, 1)
		assert.Equal(t, "edit_content", edits[0].ActivityType)
	})
}
