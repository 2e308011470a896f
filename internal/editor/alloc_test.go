package editor

import (
	"testing"

	"github.com/invitera/invitera/backend-go/internal/document"
)

func TestNewAllocator_EmptyDocument(t *testing.T) {
	a := NewAllocator(nil)

	if got := a.NextSlideID(); got != "slide_1" {
		t.Errorf("NextSlideID() = %q, want slide_1", got)
	}
	if got := a.NextElementID(); got != "el_1" {
		t.Errorf("NextElementID() = %q, want el_1", got)
	}
}

func TestNewAllocator_SeedsFromDocument(t *testing.T) {
	doc := &document.Document{
		Slides: []document.Slide{
			{ID: "slide_3", Elements: []document.Element{
				{ID: "el_7", Type: document.ElementText},
				{ID: "el_2", Type: document.ElementText},
			}},
		},
	}

	a := NewAllocator(doc)

	if got := a.NextSlideID(); got != "slide_4" {
		t.Errorf("NextSlideID() = %q, want slide_4", got)
	}
	if got := a.NextElementID(); got != "el_8" {
		t.Errorf("NextElementID() = %q, want el_8", got)
	}
}

func TestNewAllocator_IgnoresMalformedIDs(t *testing.T) {
	doc := &document.Document{
		Slides: []document.Slide{
			{ID: "slide_abc"},
			{ID: "deck_9"},
			{ID: "slide_-4"},
			{ID: "slide_2", Elements: []document.Element{
				{ID: "el_"},
				{ID: "element_12"},
			}},
		},
	}

	a := NewAllocator(doc)

	if got := a.NextSlideID(); got != "slide_3" {
		t.Errorf("NextSlideID() = %q, want slide_3", got)
	}
	if got := a.NextElementID(); got != "el_1" {
		t.Errorf("NextElementID() = %q, want el_1", got)
	}
}

func TestAllocator_StrictlyIncreasing(t *testing.T) {
	a := NewAllocator(nil)

	prev := ""
	for i := 1; i <= 50; i++ {
		id := a.NextElementID()
		if id == prev {
			t.Fatalf("duplicate id %q at step %d", id, i)
		}
		prev = id
	}
	if prev != "el_50" {
		t.Errorf("final id = %q, want el_50", prev)
	}
}
