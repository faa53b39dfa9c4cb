package service

import (
	"context"
	"encoding/json"

	"research-collab-be/internal/pkg/logger"
	"research-collab-be/pkg/collab"
	"research-collab-be/pkg/events"
	pktNats "research-collab-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// ActivityTopic is the in-process queue between the edit hot path and the
// database writer.
const ActivityTopic = "collab_activities"

// activityPublisherService fans activities out to the async persistence
// pipeline and mirrors lifecycle activities onto the NATS event bus. It
// implements ActivityPublisher; failures are logged and swallowed so the
// triggering edit or join never fails on telemetry.
type activityPublisherService struct {
	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
	logger  logger.ILogger
}

func NewActivityPublisherService(pubSub *gochannel.GoChannel, natsPub *pktNats.Publisher, log logger.ILogger) ActivityPublisher {
	return &activityPublisherService{
		pubSub:  pubSub,
		natsPub: natsPub,
		logger:  log,
	}
}

func (s *activityPublisherService) PublishActivity(activity collab.Activity) {
	payload, err := json.Marshal(activity)
	if err != nil {
		s.logger.Error("ActivityPublisher", "Failed to marshal activity", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(ActivityTopic, msg); err != nil {
		s.logger.Error("ActivityPublisher", "Failed to publish activity", map[string]interface{}{
			"activity_id": activity.ActivityID,
			"error":       err.Error(),
		})
	}

	if event, ok := lifecycleEvent(activity); ok && s.natsPub != nil {
		if err := s.natsPub.Publish(context.Background(), event); err != nil {
			s.logger.Warn("ActivityPublisher", "Failed to publish lifecycle event", map[string]interface{}{
				"event": event.EventType(),
				"error": err.Error(),
			})
		}
	}
}

// PublishEvent puts a session lifecycle event directly on the bus, for
// moments that have no membership activity behind them (session start,
// detected conflicts, completed syncs).
func (s *activityPublisherService) PublishEvent(eventType, sessionID string, data map[string]any) {
	if s.natsPub == nil {
		return
	}
	event := events.NewSessionEvent(eventType, sessionID, data)
	if err := s.natsPub.Publish(context.Background(), event); err != nil {
		s.logger.Warn("ActivityPublisher", "Failed to publish lifecycle event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

// lifecycleEvent maps membership activities to bus events; content edits and
// comments stay on the in-process pipeline only.
func lifecycleEvent(activity collab.Activity) (events.Event, bool) {
	var eventType string
	switch activity.ActivityType {
	case collab.ActivityJoinSession:
		eventType = events.TypeUserJoined
	case collab.ActivityLeaveSession:
		eventType = events.TypeUserLeft
	default:
		return nil, false
	}
	return events.NewSessionEvent(eventType, activity.SessionID, map[string]interface{}{
		"user_id":  activity.UserID,
		"username": activity.Username,
	}), true
}
