package editor

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/invitera/invitera/backend-go/internal/document"
)

func newTestDoc() *document.Document {
	return document.NewDefaultDocument()
}

func floatp(f float64) *float64 { return &f }
func strp(s string) *string     { return &s }
func boolp(b bool) *bool        { return &b }

func TestApply_UnknownCommandIsNoop(t *testing.T) {
	doc := newTestDoc()
	next := Apply(NewAllocator(doc), doc, Command{Type: "slide.explode"})
	if next != doc {
		t.Error("unknown command should return the same reference")
	}
}

func TestApply_NeverMutatesInput(t *testing.T) {
	doc := newTestDoc()
	before, _ := json.Marshal(doc)
	alloc := NewAllocator(doc)

	cmds := []Command{
		{Type: CmdAddSlide},
		{Type: CmdAddText, Content: strp("hi")},
		{Type: CmdRenameSlide, SlideID: "slide_1", Name: "Cover"},
		{Type: CmdSetViewport, Width: floatp(400), Height: floatp(300)},
		{Type: CmdToggleUI, Key: document.UIShowGrid},
	}
	for _, cmd := range cmds {
		Apply(alloc, doc, cmd)
	}

	after, _ := json.Marshal(doc)
	if string(before) != string(after) {
		t.Errorf("input document mutated:\nbefore %s\nafter  %s", before, after)
	}
}

func TestApply_AddSlide(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)

	next := Apply(alloc, doc, Command{Type: CmdAddSlide})

	if len(next.Slides) != 2 {
		t.Fatalf("slide count = %d, want 2", len(next.Slides))
	}
	added := next.Slides[1]
	if added.ID != "slide_2" || added.Name != "Slide 2" {
		t.Errorf("added slide = %q %q, want slide_2 %q", added.ID, added.Name, "Slide 2")
	}
	if len(added.Elements) != 0 {
		t.Errorf("new slide should be empty, has %d elements", len(added.Elements))
	}
	if next.Selected.SlideID != "slide_2" || next.Selected.ElementID != "" {
		t.Errorf("selection = %+v, want new slide and no element", next.Selected)
	}
}

func TestApply_RemoveSlide(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)
	doc = Apply(alloc, doc, Command{Type: CmdAddSlide})

	// Remove the selected slide: selection moves to the first remaining one.
	next := Apply(alloc, doc, Command{Type: CmdRemoveSlide, SlideID: "slide_2"})
	if len(next.Slides) != 1 || next.Slides[0].ID != "slide_1" {
		t.Fatalf("unexpected slides after removal: %+v", next.Slides)
	}
	if next.Selected.SlideID != "slide_1" {
		t.Errorf("selection = %+v, want slide_1", next.Selected)
	}

	// The deck never goes empty.
	final := Apply(alloc, next, Command{Type: CmdRemoveSlide, SlideID: "slide_1"})
	if final != next {
		t.Error("removing the last slide should be a no-op")
	}
}

func TestApply_RenameSlide(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)

	next := Apply(alloc, doc, Command{Type: CmdRenameSlide, SlideID: "slide_1", Name: "Cover"})
	if next.Slides[0].Name != "Cover" {
		t.Errorf("name = %q, want Cover", next.Slides[0].Name)
	}

	if got := Apply(alloc, doc, Command{Type: CmdRenameSlide, SlideID: "slide_1", Name: ""}); got != doc {
		t.Error("empty name should be a no-op")
	}
	if got := Apply(alloc, doc, Command{Type: CmdRenameSlide, SlideID: "slide_9", Name: "X"}); got != doc {
		t.Error("missing slide should be a no-op")
	}
}

func TestApply_AddText_Defaults(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)

	next := Apply(alloc, doc, Command{Type: CmdAddText})

	els := next.Slides[0].Elements
	if len(els) != 1 {
		t.Fatalf("element count = %d, want 1", len(els))
	}
	el := els[0]
	if el.ID != "el_1" || el.Type != document.ElementText {
		t.Errorf("element = %q %q", el.ID, el.Type)
	}
	if el.X != 100 || el.Y != 100 || el.Width != 400 || el.Height != 80 || el.Rotation != 0 {
		t.Errorf("unexpected default geometry: %+v", el)
	}
	if el.Content != "Edit me" {
		t.Errorf("content = %q, want %q", el.Content, "Edit me")
	}
	if el.Style[document.StyleFontSize] != 32.0 {
		t.Errorf("default fontSize = %v, want 32", el.Style[document.StyleFontSize])
	}
	if next.Selected.ElementID != "el_1" || next.Selected.SlideID != "slide_1" {
		t.Errorf("selection = %+v, want the new element", next.Selected)
	}
}

func TestApply_UpdateText_StyleMergePreservesUnknownKeys(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)
	doc = Apply(alloc, doc, Command{Type: CmdAddText})

	// Renderer extension key the core does not interpret.
	doc = Apply(alloc, doc, Command{
		Type: CmdUpdateText, ElementID: "el_1",
		Style: map[string]any{"letterSpacing": "0.1em"},
	})
	next := Apply(alloc, doc, Command{
		Type: CmdUpdateText, ElementID: "el_1",
		Style: map[string]any{document.StyleColor: "#ff0000"},
	})

	style := next.Slides[0].Elements[0].Style
	if style[document.StyleColor] != "#ff0000" {
		t.Errorf("color = %v, want #ff0000", style[document.StyleColor])
	}
	if style["letterSpacing"] != "0.1em" {
		t.Errorf("unknown key dropped by merge: %v", style)
	}
	if style[document.StyleFontFamily] != "Georgia" {
		t.Errorf("unrelated default dropped by merge: %v", style)
	}

	// The previous snapshot's style is untouched.
	if doc.Slides[0].Elements[0].Style[document.StyleColor] == "#ff0000" {
		t.Error("merge mutated the previous snapshot")
	}
}

func TestApply_UpdateText_StyleMergeUncomparableValues(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)
	doc = Apply(alloc, doc, Command{Type: CmdAddText})

	// Unknown keys may carry arbitrary decoded JSON, including slices and
	// nested objects. Patching such a key again must not panic.
	shadow := map[string]any{"blur": 4.0, "offset": []any{2.0, 2.0}}
	doc = Apply(alloc, doc, Command{
		Type: CmdUpdateText, ElementID: "el_1",
		Style: map[string]any{"shadow": shadow},
	})
	next := Apply(alloc, doc, Command{
		Type: CmdUpdateText, ElementID: "el_1",
		Style: map[string]any{"shadow": map[string]any{"blur": 4.0, "offset": []any{2.0, 2.0}}},
	})
	if next != doc {
		t.Error("equal uncomparable value should be a no-op")
	}

	next = Apply(alloc, doc, Command{
		Type: CmdUpdateText, ElementID: "el_1",
		Style: map[string]any{"shadow": map[string]any{"blur": 8.0, "offset": []any{2.0, 2.0}}},
	})
	if next == doc {
		t.Fatal("changed uncomparable value should produce a new snapshot")
	}
	got, _ := next.Slides[0].Elements[0].Style["shadow"].(map[string]any)
	if got["blur"] != 8.0 {
		t.Errorf("shadow = %v, want blur 8", got)
	}
}

func TestApply_UpdateText_NoChangeKeepsReference(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)
	doc = Apply(alloc, doc, Command{Type: CmdAddText, Content: strp("Hello")})

	next := Apply(alloc, doc, Command{Type: CmdUpdateText, ElementID: "el_1", Content: strp("Hello")})
	if next != doc {
		t.Error("identical content should return the same reference")
	}

	next = Apply(alloc, doc, Command{Type: CmdUpdateText, ElementID: "el_404", Content: strp("X")})
	if next != doc {
		t.Error("missing element should return the same reference")
	}
}

func TestApply_AddImage_Defaults(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)

	next := Apply(alloc, doc, Command{Type: CmdAddImage, Src: strp("/assets/a.png")})

	el := next.Slides[0].Elements[0]
	if el.Type != document.ElementImage || el.Src != "/assets/a.png" {
		t.Errorf("element = %+v", el)
	}
	if el.Width != 400 || el.Height != 300 || el.Fit != document.FitCover {
		t.Errorf("defaults = %v x %v fit %q", el.Width, el.Height, el.Fit)
	}
}

func TestApply_MoveAndResize(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)
	doc = Apply(alloc, doc, Command{Type: CmdAddText})

	moved := Apply(alloc, doc, Command{Type: CmdMoveElement, ElementID: "el_1", X: floatp(250), Y: floatp(60)})
	el := moved.Slides[0].Elements[0]
	if el.X != 250 || el.Y != 60 {
		t.Errorf("moved to (%v, %v), want (250, 60)", el.X, el.Y)
	}

	resized := Apply(alloc, moved, Command{Type: CmdResizeElement, ElementID: "el_1", Width: floatp(500), Height: floatp(90)})
	el = resized.Slides[0].Elements[0]
	if el.Width != 500 || el.Height != 90 {
		t.Errorf("resized to %v x %v, want 500 x 90", el.Width, el.Height)
	}

	// Non-positive sizes are rejected.
	if got := Apply(alloc, resized, Command{Type: CmdResizeElement, ElementID: "el_1", Width: floatp(0), Height: floatp(90)}); got != resized {
		t.Error("zero width should be a no-op")
	}
	// Missing coordinates are rejected.
	if got := Apply(alloc, resized, Command{Type: CmdMoveElement, ElementID: "el_1", X: floatp(10)}); got != resized {
		t.Error("move without y should be a no-op")
	}
}

func TestApply_DeleteElement_ClearsSelection(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)
	doc = Apply(alloc, doc, Command{Type: CmdAddText})
	doc = Apply(alloc, doc, Command{Type: CmdSelectElement, ElementID: "el_1"})

	next := Apply(alloc, doc, Command{Type: CmdDeleteElement, ElementID: "el_1"})

	if len(next.Slides[0].Elements) != 0 {
		t.Fatalf("element not deleted")
	}
	if next.Selected.ElementID != "" {
		t.Errorf("element selection not cleared: %+v", next.Selected)
	}
	if next.Selected.SlideID != "slide_1" {
		t.Errorf("slide selection lost: %+v", next.Selected)
	}
}

func TestApply_SetViewport(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)

	next := Apply(alloc, doc, Command{Type: CmdSetViewport, Width: floatp(1024), Height: floatp(768)})
	want := document.Viewport{Width: 1024, Height: 768, Scale: doc.Viewport.Scale}
	if next.Viewport != want {
		t.Errorf("viewport = %+v, want %+v", next.Viewport, want)
	}

	next = Apply(alloc, next, Command{Type: CmdSetScale, Scale: floatp(0.5)})
	if next.Viewport.Scale != 0.5 || next.Viewport.Width != 1024 {
		t.Errorf("viewport = %+v after scale-only change", next.Viewport)
	}

	if got := Apply(alloc, next, Command{Type: CmdSetViewport, Width: floatp(-10), Height: floatp(768)}); got != next {
		t.Error("negative width should be a no-op")
	}
}

func TestApply_ToggleUI(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)

	next := Apply(alloc, doc, Command{Type: CmdToggleUI, Key: document.UIShowGrid})
	if !next.UI.ShowGrid {
		t.Error("showGrid should have toggled on")
	}

	next = Apply(alloc, next, Command{Type: CmdToggleUI, Key: document.UIShowGrid, Value: boolp(true)})
	if !next.UI.ShowGrid {
		t.Error("explicit true should hold the flag")
	}

	if got := Apply(alloc, next, Command{Type: CmdToggleUI, Key: "showKrakenModal"}); got != next {
		t.Error("unknown ui key should be a no-op")
	}
}

func TestApply_BackgroundSetAndUpdate(t *testing.T) {
	doc := newTestDoc()
	alloc := NewAllocator(doc)

	doc = Apply(alloc, doc, Command{Type: CmdSetBackground, Background: &document.Background{
		Src: "/assets/bg.png", CXPercent: 50, CYPercent: 50,
		NaturalWidth: 1600, NaturalHeight: 2400,
	}})
	bg := doc.Slides[0].Background
	if bg == nil {
		t.Fatal("background not set")
	}
	if bg.SignX != 1 || bg.SignY != 1 {
		t.Errorf("signs not normalized: %+v", bg)
	}
	// 800x1200 canvas, 1600x2400 natural: contain fit is 0.5.
	if !almostEqual(bg.Scale, 0.5) {
		t.Errorf("default scale = %v, want contain fit 0.5", bg.Scale)
	}

	next := Apply(alloc, doc, Command{Type: CmdUpdateBackground, BackgroundPatch: &BackgroundPatch{
		CXPercent: floatp(130), Angle: floatp(1.5),
	}})
	bg = next.Slides[0].Background
	if bg.CXPercent != 100 {
		t.Errorf("cxPercent = %v, want clamp to 100", bg.CXPercent)
	}
	if bg.Angle != 1.5 {
		t.Errorf("angle = %v, want 1.5", bg.Angle)
	}
	if doc.Slides[0].Background.Angle != 0 {
		t.Error("update mutated the previous snapshot")
	}
}

func TestApply_RepeatedCallsStructurallyEqual(t *testing.T) {
	doc := newTestDoc()
	cmd := Command{Type: CmdAddText, Content: strp("same")}

	a := Apply(NewAllocator(doc), doc, cmd)
	b := Apply(NewAllocator(doc), doc, cmd)

	if !reflect.DeepEqual(a, b) {
		t.Error("equal inputs should yield structurally equal outputs")
	}
}
