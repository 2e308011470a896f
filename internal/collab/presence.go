package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// roster tracks the live cursors and selections of a room, keyed by client
// connection rather than account: two tabs of the same user (or two anonymous
// playground visitors) each get their own entry. Advisory state only; nothing
// here touches the document or its history.
type roster struct {
	mu      sync.RWMutex
	entries map[string]*PresencePayload // clientID -> presence
}

func newRoster() *roster {
	return &roster{entries: make(map[string]*PresencePayload)}
}

// Set records or replaces a client's presence, stamping identity fields from
// the connection so a client cannot impersonate another.
func (r *roster) Set(clientID string, c *Client, p *PresencePayload) {
	p.UserID = c.UserID
	p.DisplayName = c.DisplayName
	r.mu.Lock()
	r.entries[clientID] = p
	r.mu.Unlock()
}

func (r *roster) Drop(clientID string) {
	r.mu.Lock()
	delete(r.entries, clientID)
	r.mu.Unlock()
}

// Snapshot copies the roster for a join message.
func (r *roster) Snapshot() map[string]*PresencePayload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*PresencePayload, len(r.entries))
	for id, p := range r.entries {
		out[id] = p
	}
	return out
}

// StateMessage packages the whole room's presence for a newly joined client.
func (r *roster) StateMessage() *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: r.Snapshot()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{Type: TypePresenceState, Payload: payload}
}
