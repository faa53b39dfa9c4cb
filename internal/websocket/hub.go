package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"research-collab-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// clientKey identifies one participant inside one session room.
type clientKey struct {
	SessionID string
	UserID    string
}

type Hub struct {
	// Registered clients map: (session, user) -> list of Clients (multi-device)
	clients map[clientKey][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[clientKey][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			key := clientKey{SessionID: client.SessionID, UserID: client.UserID}
			h.mu.Lock()
			h.clients[key] = append(h.clients[key], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{
				"session_id": client.SessionID,
				"user_id":    client.UserID,
			})

		case client := <-h.unregister:
			// Run is the only goroutine that closes Send. Eviction and the
			// read pump may both enqueue the same client; the map lookup
			// below makes the second request a no-op.
			key := clientKey{SessionID: client.SessionID, UserID: client.UserID}
			h.mu.Lock()
			if clients, ok := h.clients[key]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[key] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[key]) == 0 {
					delete(h.clients, key)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{
						"session_id": client.SessionID,
						"user_id":    client.UserID,
					})
				}
			}
			h.mu.Unlock()
		}
	}
}

// evict requests removal of a client whose Send buffer is full. It never
// closes the channel itself and never blocks: senders hold mu.RLock while
// Run needs mu.Lock to process the unregister, so a blocking send here
// would deadlock the hub.
func (h *Hub) evict(client *Client) {
	select {
	case h.unregister <- client:
	default:
		go func() { h.unregister <- client }()
	}
}

// BroadcastToSession delivers a frame to every participant of a session,
// optionally skipping the user that triggered it.
func (h *Hub) BroadcastToSession(sessionID string, message any, excludeUserID string) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Hub", "Broadcast marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	for key, clients := range h.clients {
		if key.SessionID != sessionID || key.UserID == excludeUserID {
			continue
		}
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.evict(client)
			}
		}
	}
	h.mu.RUnlock()

	// Publish to Redis for participants connected to other instances
	if h.rdb != nil {
		payload := map[string]interface{}{
			"session_id":      sessionID,
			"target_user_id":  "*",
			"exclude_user_id": excludeUserID,
			"message":         json.RawMessage(data),
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), "collab_cluster_events", jsonPayload)
	}
}

// SendToUser delivers a frame to one participant of a session.
func (h *Hub) SendToUser(sessionID, userID string, message any) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Hub", "Send marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	key := clientKey{SessionID: sessionID, UserID: userID}
	h.mu.RLock()
	clients, localFound := h.clients[key]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{
					"session_id": sessionID,
					"user_id":    userID,
				})
				h.evict(client)
			}
		}
	}

	// Always publish for multi-device support across instances
	if h.rdb != nil {
		payload := map[string]interface{}{
			"session_id":     sessionID,
			"target_user_id": userID,
			"message":        json.RawMessage(data),
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), "collab_cluster_events", jsonPayload)
	}
}

func (h *Hub) subscribeToRedis() {
	// All instances subscribe to "collab_cluster_events". When a message
	// arrives, deliver it to any matching local clients of that session.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "collab_cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			SessionID     string          `json:"session_id"`
			TargetUserID  string          `json:"target_user_id"`
			ExcludeUserID string          `json:"exclude_user_id"`
			Message       json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		if payload.TargetUserID == "*" {
			h.mu.RLock()
			for key, clients := range h.clients {
				if key.SessionID != payload.SessionID || key.UserID == payload.ExcludeUserID {
					continue
				}
				for _, client := range clients {
					select {
					case client.Send <- payload.Message:
					default:
						h.evict(client)
					}
				}
			}
			h.mu.RUnlock()
			continue
		}

		key := clientKey{SessionID: payload.SessionID, UserID: payload.TargetUserID}
		h.mu.RLock()
		clients, ok := h.clients[key]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					h.evict(client)
				}
			}
		}
	}
}
