package collab

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/invitera/invitera/backend-go/internal/document"
)

// DocumentLoader fetches the latest persisted document for an invitation.
type DocumentLoader func(invitationID string) (*document.Document, error)

// DocumentSaver persists a new version of an invitation's document.
type DocumentSaver func(invitationID string, doc json.RawMessage) error

type Room struct {
	invitationID string
	clients      map[string]*Client // clientID -> client
	presence     *roster
	session      *Session
}

func NewRoom(invitationID string, session *Session) *Room {
	return &Room{
		invitationID: invitationID,
		clients:      make(map[string]*Client),
		presence:     newRoster(),
		session:      session,
	}
}

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // invitationID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	loader DocumentLoader
	saver  DocumentSaver
}

func NewHub(loader DocumentLoader, saver DocumentSaver) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		loader:     loader,
		saver:      saver,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

// Stop flushes every dirty room to storage and stops the hub loop.
func (h *Hub) Stop() {
	close(h.done)

	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.Unlock()

	for _, room := range rooms {
		h.flushRoom(room)
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.InvitationID]
	if !ok {
		doc, err := h.loader(client.InvitationID)
		if err != nil {
			h.mu.Unlock()
			slog.Error("load document for room", "invitation", client.InvitationID, "error", err)
			client.Send(errorMessage("document unavailable"))
			close(client.send)
			return
		}
		room = NewRoom(client.InvitationID, NewSession(doc))
		h.rooms[client.InvitationID] = room
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	// Welcome the client with the authoritative document and its role.
	docJSON, seq, err := room.session.DocumentJSON()
	if err == nil {
		payload, _ := json.Marshal(WelcomePayload{
			ClientID:  client.ClientID,
			Role:      client.Role,
			ServerSeq: seq,
			Document:  docJSON,
		})
		client.Send(&Message{Type: TypeWelcome, Payload: payload})
	}

	// Current presence state, then announce the join to the rest.
	if stateMsg := room.presence.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}
	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		ClientID:    client.ClientID,
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	h.broadcastToRoom(client.InvitationID, &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "invitation", client.InvitationID, "role", client.Role)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.InvitationID]
	if !ok {
		h.mu.Unlock()
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.presence.Drop(client.ClientID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.InvitationID)
	}
	h.mu.Unlock()

	if empty {
		h.flushRoom(room)
	}

	leavePayload, _ := json.Marshal(PresenceLeavePayload{ClientID: client.ClientID, UserID: client.UserID})
	h.broadcastToRoom(client.InvitationID, &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}, "")

	slog.Info("client left", "user", client.UserID, "invitation", client.InvitationID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)
	case TypeIntentSubmit:
		h.handleIntentSubmit(sender, msg)
	case TypeHistoryUndo, TypeHistoryRedo:
		h.handleHistoryStep(sender, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handleIntentSubmit(sender *Client, msg *Message) {
	room := h.roomFor(sender)
	if room == nil {
		return
	}

	var payload IntentSubmitPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		sender.Send(nack(payload.ClientSeq, "invalid intent payload"))
		return
	}

	seq, applied, err := room.session.Apply(sender.Role, payload.Command, payload.Label)
	if err != nil {
		sender.Send(nack(payload.ClientSeq, err.Error()))
		return
	}

	ackPayload, _ := json.Marshal(IntentAckPayload{
		ClientSeq: payload.ClientSeq,
		ServerSeq: seq,
		Applied:   applied,
	})
	sender.Send(&Message{Type: TypeIntentAck, Seq: seq, Payload: ackPayload})

	if !applied {
		return
	}

	bcast, _ := json.Marshal(IntentBroadcastPayload{
		Command:   payload.Command,
		Label:     payload.Label,
		UserID:    sender.UserID,
		ServerSeq: seq,
	})
	h.broadcastToRoom(sender.InvitationID, &Message{
		Type:    TypeIntentBroadcast,
		UserID:  sender.UserID,
		Seq:     seq,
		Payload: bcast,
	}, sender.ClientID)
}

// handleHistoryStep applies a shared undo or redo and resyncs every client
// with the full document, since a history step is not a single command.
func (h *Hub) handleHistoryStep(sender *Client, msg *Message) {
	room := h.roomFor(sender)
	if room == nil {
		return
	}

	var (
		seq     int64
		applied bool
		err     error
	)
	if msg.Type == TypeHistoryUndo {
		seq, applied, err = room.session.Undo(sender.Role)
	} else {
		seq, applied, err = room.session.Redo(sender.Role)
	}
	if err != nil {
		sender.Send(errorMessage(err.Error()))
		return
	}
	if !applied {
		return
	}

	docJSON, _, err := room.session.DocumentJSON()
	if err != nil {
		slog.Error("marshal document after history step", "error", err)
		return
	}
	payload, _ := json.Marshal(DocSyncPayload{ServerSeq: seq, Document: docJSON})
	h.broadcastToRoom(sender.InvitationID, &Message{
		Type:    TypeDocSync,
		Seq:     seq,
		Payload: payload,
	}, "")
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	room := h.roomFor(sender)
	if room == nil {
		return
	}
	room.presence.Set(sender.ClientID, sender, &presence)

	outPayload, _ := json.Marshal(presence)
	h.broadcastToRoom(sender.InvitationID, &Message{
		Type:     TypePresenceUpdate,
		ClientID: sender.ClientID,
		UserID:   sender.UserID,
		Payload:  outPayload,
	}, sender.ClientID)
}

func (h *Hub) roomFor(client *Client) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[client.InvitationID]
}

func (h *Hub) flushRoom(room *Room) {
	if h.saver == nil {
		return
	}
	data, dirty := room.session.FlushDirty()
	if !dirty {
		return
	}
	if err := h.saver(room.invitationID, data); err != nil {
		slog.Error("save document", "invitation", room.invitationID, "error", err)
	}
}

func (h *Hub) broadcastToRoom(invitationID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[invitationID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}

func nack(clientSeq int64, reason string) *Message {
	payload, _ := json.Marshal(IntentNackPayload{ClientSeq: clientSeq, Reason: reason})
	return &Message{Type: TypeIntentNack, Payload: payload}
}

func errorMessage(reason string) *Message {
	payload, _ := json.Marshal(map[string]string{"error": reason})
	return &Message{Type: TypeError, Payload: payload}
}
