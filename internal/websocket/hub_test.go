package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

func (h *Hub) clientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for key, clients := range h.clients {
		if key.SessionID == sessionID {
			n += len(clients)
		}
	}
	return n
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newSlowClient(sessionID, userID string) *Client {
	c := &Client{
		SessionID: sessionID,
		UserID:    userID,
		Send:      make(chan []byte, 1),
	}
	c.Send <- []byte("stale") // buffer full, next delivery must evict
	return c
}

func TestBroadcastDelivery(t *testing.T) {
	hub := NewHub(nil, noopLogger{})
	go hub.Run()

	c := &Client{SessionID: "s1", UserID: "u1", Send: make(chan []byte, 4)}
	hub.register <- c
	waitFor(t, func() bool { return hub.clientCount("s1") == 1 }, "client never registered")

	hub.BroadcastToSession("s1", map[string]string{"type": "ping"}, "")

	select {
	case frame := <-c.Send:
		assert.Contains(t, string(frame), "ping")
	case <-time.After(time.Second):
		t.Fatal("frame never delivered")
	}
}

// A client whose Send buffer is full gets evicted. A broadcast must never
// close the channel itself and must never block the hub loop, even when
// several clients in the same room stall at once.
func TestSlowClientsEvictedWithoutPanic(t *testing.T) {
	hub := NewHub(nil, noopLogger{})
	go hub.Run()

	c1 := newSlowClient("s1", "u1")
	c2 := newSlowClient("s1", "u2")
	hub.register <- c1
	hub.register <- c2
	waitFor(t, func() bool { return hub.clientCount("s1") == 2 }, "clients never registered")

	hub.BroadcastToSession("s1", map[string]string{"type": "edit"}, "")
	waitFor(t, func() bool { return hub.clientCount("s1") == 0 }, "slow clients never evicted")

	// Run closed the channels exactly once; draining reaches the closed state.
	for _, c := range []*Client{c1, c2} {
		<-c.Send
		_, open := <-c.Send
		require.False(t, open, "Send channel should be closed after eviction")
	}

	// A second broadcast after eviction must be a no-op, not a repeat close.
	hub.BroadcastToSession("s1", map[string]string{"type": "edit"}, "")
}

func TestSendToUserEvictsStalledClient(t *testing.T) {
	hub := NewHub(nil, noopLogger{})
	go hub.Run()

	c := newSlowClient("s1", "u1")
	hub.register <- c
	waitFor(t, func() bool { return hub.clientCount("s1") == 1 }, "client never registered")

	hub.SendToUser("s1", "u1", map[string]string{"type": "edit_result"})
	waitFor(t, func() bool { return hub.clientCount("s1") == 0 }, "stalled client never evicted")
}
