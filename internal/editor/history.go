package editor

import (
	"strings"

	"github.com/invitera/invitera/backend-go/internal/document"
)

// HistoryMax bounds the undo stack; the oldest entries fall off first.
const HistoryMax = 100

// Coalescing label classes. Consecutive dispatches carrying the same label
// from one of these classes collapse into a single undo step, so a drag
// stream or a typing burst undoes in one go. The discriminator is purely the
// label; the history never consults time.
const (
	LabelMovePrefix     = "move:"
	LabelResizePrefix   = "resize:"
	LabelTextEditPrefix = "text-edit:"
	LabelCanvas         = "canvas"
)

type historyEntry struct {
	snapshot *document.Document
	label    string
}

// History wraps the reducer with a bounded past/present/future triple.
// Snapshots are immutable, so entries hold plain pointers.
type History struct {
	past    []historyEntry
	present *document.Document
	future  []historyEntry
	limit   int

	// armed is true only when the previous action was a dispatch; undo, redo,
	// and explicit commits break a coalescing run.
	armed bool
}

// NewHistory starts a history at the given present. A limit of 0 means
// HistoryMax.
func NewHistory(initial *document.Document, limit int) *History {
	if limit <= 0 {
		limit = HistoryMax
	}
	return &History{present: initial, limit: limit}
}

// Present returns the current snapshot.
func (h *History) Present() *document.Document {
	return h.present
}

// Dispatch runs cmd through the reducer. It reports whether the present
// changed; a no-op command leaves history untouched. Any real change clears
// the redo stack.
func (h *History) Dispatch(alloc *Allocator, cmd Command, label string) bool {
	next := Apply(alloc, h.present, cmd)
	if next == h.present {
		return false
	}

	if h.armed && len(h.past) > 0 && coalesces(label) && h.past[len(h.past)-1].label == label {
		// Same gesture: keep the snapshot taken when the gesture began and
		// drop the intermediate state.
		h.present = next
	} else {
		h.past = append(h.past, historyEntry{snapshot: h.present, label: label})
		if len(h.past) > h.limit {
			h.past = h.past[len(h.past)-h.limit:]
		}
		h.present = next
	}

	h.future = h.future[:0]
	h.armed = true
	return true
}

// Undo steps the present back one entry. Reports whether anything changed.
func (h *History) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	top := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, historyEntry{snapshot: h.present, label: top.label})
	h.present = top.snapshot
	h.armed = false
	return true
}

// Redo mirrors Undo.
func (h *History) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	top := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, historyEntry{snapshot: h.present, label: top.label})
	h.present = top.snapshot
	h.armed = false
	return true
}

// Commit ends the current coalescing run: the next dispatch starts a new
// undo step even if it carries the same label. Used at gesture boundaries
// such as text-edit focus loss.
func (h *History) Commit() {
	h.armed = false
}

// CommitLabel ends the coalescing run only when the pending undo entry
// carries the given label, leaving an unrelated gesture's run intact.
func (h *History) CommitLabel(label string) {
	if h.armed && len(h.past) > 0 && h.past[len(h.past)-1].label == label {
		h.armed = false
	}
}

// CancelPending rolls back an in-progress coalesced gesture: the present
// returns to the snapshot taken when the gesture began and the pending undo
// entry is discarded. Reports whether there was anything to cancel.
func (h *History) CancelPending(label string) bool {
	if !h.armed || len(h.past) == 0 || !coalesces(label) {
		return false
	}
	top := h.past[len(h.past)-1]
	if top.label != label {
		return false
	}
	h.past = h.past[:len(h.past)-1]
	h.present = top.snapshot
	h.armed = false
	return true
}

func (h *History) CanUndo() bool { return len(h.past) > 0 }
func (h *History) CanRedo() bool { return len(h.future) > 0 }

// Depth returns the number of undoable steps.
func (h *History) Depth() int { return len(h.past) }

func coalesces(label string) bool {
	return label == LabelCanvas ||
		strings.HasPrefix(label, LabelMovePrefix) ||
		strings.HasPrefix(label, LabelResizePrefix) ||
		strings.HasPrefix(label, LabelTextEditPrefix)
}
