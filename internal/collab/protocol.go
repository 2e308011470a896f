package collab

import (
	"encoding/json"

	"github.com/invitera/invitera/backend-go/internal/editor"
)

type Message struct {
	Type         string          `json:"type"`
	InvitationID string          `json:"invitationId,omitempty"`
	ClientID     string          `json:"clientId,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	Seq          int64           `json:"seq,omitempty"`
	Payload      json.RawMessage `json:"payload"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync: the full authoritative snapshot. Sent on join and after
	// undo/redo, whose effect is not expressible as a single command.
	TypeDocSync = "doc.sync"

	// Intent messages
	TypeIntentSubmit    = "intent.submit"
	TypeIntentAck       = "intent.ack"
	TypeIntentNack      = "intent.nack"
	TypeIntentBroadcast = "intent.broadcast"

	// Shared history
	TypeHistoryUndo = "history.undo"
	TypeHistoryRedo = "history.redo"
)

type PresencePayload struct {
	Cursor      *CursorPos        `json:"cursor,omitempty"`
	Selection   *SelectionPayload `json:"selection,omitempty"`
	UserID      string            `json:"userId,omitempty"`
	DisplayName string            `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SelectionPayload struct {
	SlideID   string `json:"slideId,omitempty"`
	ElementID string `json:"elementId,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

// WelcomePayload seeds a freshly connected client.
type WelcomePayload struct {
	ClientID  string          `json:"clientId"`
	Role      string          `json:"role"`
	ServerSeq int64           `json:"serverSeq"`
	Document  json.RawMessage `json:"document"`
}

type DocSyncPayload struct {
	ServerSeq int64           `json:"serverSeq"`
	Document  json.RawMessage `json:"document"`
}

// IntentSubmitPayload carries one editor command from a client. Label feeds
// undo coalescing exactly as in a local session: a stream of move commands
// sharing a label collapses into one shared history step.
type IntentSubmitPayload struct {
	Command   editor.Command `json:"command"`
	Label     string         `json:"label,omitempty"`
	ClientSeq int64          `json:"clientSeq"`
}

type IntentAckPayload struct {
	ClientSeq int64 `json:"clientSeq"`
	ServerSeq int64 `json:"serverSeq"`
	// Applied is false when the command was a recognized no-op; the document
	// did not change and nothing was broadcast.
	Applied bool `json:"applied"`
}

type IntentNackPayload struct {
	ClientSeq int64  `json:"clientSeq"`
	Reason    string `json:"reason"`
}

type IntentBroadcastPayload struct {
	Command   editor.Command `json:"command"`
	Label     string         `json:"label,omitempty"`
	UserID    string         `json:"userId"`
	ServerSeq int64          `json:"serverSeq"`
}
