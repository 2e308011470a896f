package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/invitera/invitera/backend-go/internal/document"
)

const (
	slideIDPrefix   = "slide_"
	elementIDPrefix = "el_"
)

// Allocator hands out slide and element ids as monotonically increasing,
// prefix-tagged counters. It deliberately avoids wall-clock or random ids so
// that a document serialized on one agent and rehydrated on another produces
// identical next ids given identical input; timestamp suffixes caused
// prerender/client divergence in the previous incarnation of this system.
// Server-side entities (users, invitations, snapshots) use internal/typeid
// instead — those never need to be replayed deterministically.
type Allocator struct {
	slideNext   int
	elementNext int
}

// NewAllocator creates an allocator seeded from an existing document. Every
// well-formed "slide_<N>" / "el_<N>" id contributes to the high-water mark;
// malformed suffixes contribute nothing. A nil document starts both counters
// at 1.
func NewAllocator(doc *document.Document) *Allocator {
	a := &Allocator{slideNext: 1, elementNext: 1}
	if doc == nil {
		return a
	}
	for _, slide := range doc.Slides {
		if n, ok := parseSuffix(slide.ID, slideIDPrefix); ok && n >= a.slideNext {
			a.slideNext = n + 1
		}
		for _, el := range slide.Elements {
			if n, ok := parseSuffix(el.ID, elementIDPrefix); ok && n >= a.elementNext {
				a.elementNext = n + 1
			}
		}
	}
	return a
}

// NextSlideID returns a fresh slide id.
func (a *Allocator) NextSlideID() string {
	id := fmt.Sprintf("%s%d", slideIDPrefix, a.slideNext)
	a.slideNext++
	return id
}

// NextElementID returns a fresh element id.
func (a *Allocator) NextElementID() string {
	id := fmt.Sprintf("%s%d", elementIDPrefix, a.elementNext)
	a.elementNext++
	return id
}

// SlideOrdinal returns the 1-based number the next slide will carry, used for
// default slide names.
func (a *Allocator) SlideOrdinal() int {
	return a.slideNext
}

func parseSuffix(id, prefix string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(id[len(prefix):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
