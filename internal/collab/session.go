package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/invitera/invitera/backend-go/internal/document"
	"github.com/invitera/invitera/backend-go/internal/editor"
)

// ErrDenied means the sender's role lacks edit capability.
var ErrDenied = errors.New("capability denied")

// Session holds the authoritative editor state for one room: the id
// allocator, the shared undo history, and a server sequence number. All
// clients in the room funnel through one Session, which serializes their
// intents behind a mutex; inside the lock the editor core stays the
// single-threaded machine it is everywhere else.
type Session struct {
	mu        sync.RWMutex
	alloc     *editor.Allocator
	history   *editor.History
	serverSeq int64
	dirty     bool
}

// NewSession starts a session over an initial document. A nil document
// starts from the default single-slide deck.
func NewSession(doc *document.Document) *Session {
	if doc == nil {
		doc = document.NewDefaultDocument()
	}
	return &Session{
		alloc:   editor.NewAllocator(doc),
		history: editor.NewHistory(doc, 0),
	}
}

// DocumentJSON returns the present snapshot serialized, with the sequence
// it corresponds to.
func (s *Session) DocumentJSON() (json.RawMessage, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.Marshal(s.history.Present())
	if err != nil {
		return nil, 0, fmt.Errorf("marshal document: %w", err)
	}
	return data, s.serverSeq, nil
}

// Apply runs one command against the shared document on behalf of a role.
// Denied intents return ErrDenied; recognized no-ops return applied=false
// with no sequence advance.
func (s *Session) Apply(role string, cmd editor.Command, label string) (int64, bool, error) {
	if !editor.DefaultOracle(role).CanEdit {
		return 0, false, ErrDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Dispatch(s.alloc, cmd, label) {
		return s.serverSeq, false, nil
	}
	s.serverSeq++
	s.dirty = true
	return s.serverSeq, true, nil
}

// Undo steps the shared history back. The room shares one history, so an
// undo reverts the most recent step regardless of who authored it.
func (s *Session) Undo(role string) (int64, bool, error) {
	if !editor.DefaultOracle(role).CanEdit {
		return 0, false, ErrDenied
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Undo() {
		return s.serverSeq, false, nil
	}
	s.serverSeq++
	s.dirty = true
	return s.serverSeq, true, nil
}

func (s *Session) Redo(role string) (int64, bool, error) {
	if !editor.DefaultOracle(role).CanEdit {
		return 0, false, ErrDenied
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.history.Redo() {
		return s.serverSeq, false, nil
	}
	s.serverSeq++
	s.dirty = true
	return s.serverSeq, true, nil
}

// Commit marks a gesture boundary in the shared history.
func (s *Session) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Commit()
}

// FlushDirty returns the serialized document if it changed since the last
// flush, clearing the dirty flag. Used by the hub's periodic persistence.
func (s *Session) FlushDirty() (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil, false
	}
	data, err := json.Marshal(s.history.Present())
	if err != nil {
		return nil, false
	}
	s.dirty = false
	return data, true
}

// GetServerTimestamp returns the current server timestamp in milliseconds.
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
