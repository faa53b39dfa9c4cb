package service

import (
	"context"
	"time"

	"research-collab-be/internal/dto"
	"research-collab-be/internal/pkg/logger"
	"research-collab-be/pkg/events"
	pktNats "research-collab-be/pkg/nats"
)

// NotifierService turns bus events back into user_notification frames so
// clients connected to any instance see session lifecycle changes.
type NotifierService struct {
	subscriber *pktNats.Subscriber
	hub        SessionBroadcaster
	logger     logger.ILogger
}

func NewNotifierService(sub *pktNats.Subscriber, hub SessionBroadcaster, log logger.ILogger) *NotifierService {
	return &NotifierService{
		subscriber: sub,
		hub:        hub,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotifierService) Start() {
	err := s.subscriber.Subscribe("events.>", "collab-notifier-worker", s.handleEvent)
	if err != nil {
		s.logger.Error("NotifierService", "Failed to start notifier subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotifierService", "Notifier service started, listening to events.>", nil)
}

func (s *NotifierService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	sessionID, _ := payload["session_id"].(string)
	if sessionID == "" {
		// Not a session-scoped event; nothing to route.
		return nil
	}

	s.hub.BroadcastToSession(sessionID, dto.NotificationMessage{
		Type:      "user_notification",
		SessionID: sessionID,
		Event:     event.EventType(),
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}, "")
	return nil
}
