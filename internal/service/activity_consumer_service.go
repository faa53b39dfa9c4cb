package service

import (
	"context"
	"encoding/json"
	"log"

	"research-collab-be/internal/model"
	"research-collab-be/internal/repository/contract"
	"research-collab-be/pkg/collab"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type IActivityConsumerService interface {
	Consume(ctx context.Context) error
}

// activityConsumerService drains the activity topic into the durable
// activity history, keeping database writes off the edit hot path.
type activityConsumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	repo      contract.CollabActivityRepository
}

func NewActivityConsumerService(pubSub *gochannel.GoChannel, topicName string, repo contract.CollabActivityRepository) IActivityConsumerService {
	return &activityConsumerService{
		pubSub:    pubSub,
		topicName: topicName,
		repo:      repo,
	}
}

func (cs *activityConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *activityConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var activity collab.Activity
	if err := json.Unmarshal(msg.Payload, &activity); err != nil {
		log.Printf("[ERROR] Failed to unmarshal activity: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	content, err := json.Marshal(activity.Content)
	if err != nil {
		log.Printf("[ERROR] Failed to marshal activity content %s: %v", activity.ActivityID, err)
		msg.Ack()
		return
	}

	row := &model.CollabActivity{
		ID:           uuid.New(),
		SessionID:    activity.SessionID,
		UserID:       activity.UserID,
		Username:     activity.Username,
		ActivityType: string(activity.ActivityType),
		Content:      datatypes.JSON(content),
		CreatedAt:    activity.Timestamp,
	}

	if err := cs.repo.Create(ctx, row); err != nil {
		log.Printf("[ERROR] Failed to persist activity %s: %v", activity.ActivityID, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}
