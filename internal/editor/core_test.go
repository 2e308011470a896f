package editor

import (
	"errors"
	"math"
	"testing"

	"github.com/invitera/invitera/backend-go/internal/document"
)

func newCreatorCore() *Core {
	return New(Options{Role: RoleCreator})
}

func TestCore_AddAndEditText(t *testing.T) {
	c := newCreatorCore()

	id := c.AddText(TextParams{Content: strp("Hello")})
	if id != "el_1" {
		t.Fatalf("AddText id = %q, want el_1", id)
	}
	if c.State().Selected.ElementID != "el_1" {
		t.Errorf("new element not selected: %+v", c.State().Selected)
	}

	c.EditText(id, "Hi")
	c.EditText(id, "Hi!")

	doc := c.State()
	if len(doc.Slides) != 1 || len(doc.Slides[0].Elements) != 1 {
		t.Fatalf("unexpected document shape")
	}
	if got := doc.Slides[0].Elements[0].Content; got != "Hi!" {
		t.Errorf("content = %q, want Hi!", got)
	}
	// The add (which also selects) is one step, the coalesced edits another.
	if got := c.history.Depth(); got != 2 {
		t.Fatalf("history depth = %d, want 2", got)
	}

	// First undo restores "Hello".
	c.Undo()
	if got := c.State().Slides[0].Elements[0].Content; got != "Hello" {
		t.Errorf("after undo content = %q, want Hello", got)
	}

	// Second undo removes the element.
	c.Undo()
	if got := len(c.State().Slides[0].Elements); got != 0 {
		t.Errorf("after second undo %d elements remain", got)
	}
	if c.CanUndo() {
		t.Error("no further undo expected")
	}
}

func TestCore_CommitTextEditScopedToElement(t *testing.T) {
	c := newCreatorCore()
	a := c.AddText(TextParams{Content: strp("A")})
	b := c.AddText(TextParams{Content: strp("B")})

	c.EditText(a, "A1")
	c.EditText(a, "A2")
	depth := c.history.Depth()

	// Committing the other element's edit must not end a's coalescing run.
	c.CommitTextEdit(b)
	c.EditText(a, "A3")
	if got := c.history.Depth(); got != depth {
		t.Errorf("depth = %d, want %d (still coalescing)", got, depth)
	}

	// Committing a's own edit does.
	c.CommitTextEdit(a)
	c.EditText(a, "A4")
	if got := c.history.Depth(); got != depth+1 {
		t.Errorf("depth = %d, want %d (new step after commit)", got, depth+1)
	}
}

func TestCore_DragCoalescing(t *testing.T) {
	c := newCreatorCore()
	id := c.AddText(TextParams{})
	depth := c.history.Depth()

	if !c.BeginDrag(id) {
		t.Fatal("BeginDrag refused")
	}
	c.Drag(10, 0)
	c.Drag(10, 0)
	c.Drag(10, 0)
	c.EndDrag()

	el := c.State().Slides[0].Elements[0]
	if el.X != 130 || el.Y != 100 {
		t.Errorf("element at (%v, %v), want (130, 100)", el.X, el.Y)
	}
	if got := c.history.Depth(); got != depth+1 {
		t.Errorf("history grew by %d, want exactly 1", got-depth)
	}

	c.Undo()
	el = c.State().Slides[0].Elements[0]
	if el.X != 100 {
		t.Errorf("after undo x = %v, want 100", el.X)
	}
}

func TestCore_CancelDrag(t *testing.T) {
	c := newCreatorCore()
	id := c.AddText(TextParams{})
	before := c.State()
	depth := c.history.Depth()

	c.BeginDrag(id)
	c.Drag(50, 50)
	c.CancelDrag()

	if c.State() != before {
		t.Error("cancel should restore the pre-drag snapshot")
	}
	if c.history.Depth() != depth {
		t.Error("cancel should discard the pending history entry")
	}
}

func TestCore_HydrationParity(t *testing.T) {
	exported := []byte(`{
		"slides": [
			{"id": "slide_3", "name": "Imported", "elements": [
				{"id": "el_7", "type": "text", "x": 10, "y": 10, "width": 100, "height": 40, "content": "hi"}
			]}
		],
		"selected": {"slideId": "slide_3"},
		"viewport": {"width": 800, "height": 600, "scale": 1},
		"ui": {}
	}`)

	c, err := Load(exported, Options{Role: RoleCreator})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := c.AddSlide(); got != "slide_4" {
		t.Errorf("AddSlide id = %q, want slide_4", got)
	}
	if got := c.AddText(TextParams{}); got != "el_8" {
		t.Errorf("AddText id = %q, want el_8", got)
	}
}

func TestCore_ImportMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":    `{"slides": [`,
		"no slides":       `{"slides": [], "viewport": {"width": 800, "height": 600, "scale": 1}}`,
		"dup element ids": `{"slides": [{"id": "slide_1", "name": "a", "elements": [{"id": "el_1", "type": "text", "width": 10, "height": 10}, {"id": "el_1", "type": "text", "width": 10, "height": 10}]}], "viewport": {"width": 800, "height": 600, "scale": 1}}`,
		"bad viewport":    `{"slides": [{"id": "slide_1", "name": "a", "elements": []}], "viewport": {"width": 0, "height": 600, "scale": 1}}`,
	}

	for name, payload := range cases {
		if _, err := Load([]byte(payload), Options{}); !errors.Is(err, ErrImportMalformed) {
			t.Errorf("%s: error = %v, want ErrImportMalformed", name, err)
		}
	}
}

func TestCore_ExportImportRoundTrip(t *testing.T) {
	c := newCreatorCore()
	c.AddText(TextParams{Content: strp("Hello")})
	c.AddSlide()

	data, err := c.Export()
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	c2, err := Load(data, Options{Role: RoleCreator})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	again, err := c2.Export()
	if err != nil {
		t.Fatalf("re-Export() error: %v", err)
	}
	if string(data) != string(again) {
		t.Errorf("round trip mismatch:\n%s\n%s", data, again)
	}
}

func TestCore_PermissionDenial(t *testing.T) {
	var denied []string
	c := New(Options{
		Role:     RoleGuest,
		OnDenied: func(intent string) { denied = append(denied, intent) },
	})
	before := c.State()

	if id := c.AddText(TextParams{Content: strp("nope")}); id != "" {
		t.Errorf("guest AddText returned id %q", id)
	}
	c.EditText("el_1", "nope")
	c.SetCanvas(10, 10)
	c.Undo()

	if c.State() != before {
		t.Error("denied intents must leave the state reference-equal")
	}
	if c.CanUndo() {
		t.Error("denied intents must not create history entries")
	}
	if len(denied) != 4 {
		t.Errorf("denial diagnostics = %v, want 4 entries", denied)
	}
}

func TestCore_RoleNormalization(t *testing.T) {
	c := New(Options{Role: "  Consumer "})
	if c.Role() != RoleUser {
		t.Errorf("role = %q, want %q", c.Role(), RoleUser)
	}
	if DefaultOracle(" ADMIN ").CanEdit != true {
		t.Error("trimmed uppercase admin should edit")
	}
	if DefaultOracle("consumer").CanEdit {
		t.Error("consumer must not edit")
	}
	if !DefaultOracle("consumer").CanBrowse {
		t.Error("consumer should browse")
	}
	if DefaultOracle("intruder").CanBrowse {
		t.Error("unknown role should have no capabilities")
	}
}

func TestCore_SetCanvasPreservesLayout(t *testing.T) {
	c := newCreatorCore()
	c.SetCanvas(800, 600)
	c.SetBackground("", document.Background{
		Src: "/assets/bg.png", CXPercent: 25, CYPercent: 75,
		NaturalWidth: 800, NaturalHeight: 600,
	})
	depth := c.history.Depth()

	c.SetCanvas(1600, 600)

	doc := c.State()
	bg := doc.Slides[0].Background
	if bg.CXPercent != 25 || bg.CYPercent != 75 {
		t.Errorf("percent center changed: (%v, %v)", bg.CXPercent, bg.CYPercent)
	}
	place := SetTransform(bg, doc.Viewport)
	if !almostEqual(place.CX, 400) || !almostEqual(place.CY, 450) {
		t.Errorf("pixel center = (%v, %v), want (400, 450)", place.CX, place.CY)
	}
	if !almostEqual(bg.Scale, 1.0) {
		t.Errorf("scale = %v, want new contain fit 1.0", bg.Scale)
	}
	// Viewport change plus background re-fit is one undo step.
	if got := c.history.Depth(); got != depth+1 {
		t.Errorf("history grew by %d, want 1", got-depth)
	}
}

func TestCore_RotationInvariance(t *testing.T) {
	c := newCreatorCore()
	c.SetCanvas(100, 100)
	c.SetBackground("", document.Background{CXPercent: 50, CYPercent: 50, Scale: 1, Angle: math.Pi / 2})

	for _, angle := range []float64{0, math.Pi / 4, math.Pi, 3 * math.Pi / 2} {
		c.UpdateBackground("", BackgroundPatch{Angle: &angle})
		place := SetTransform(c.State().Slides[0].Background, c.State().Viewport)
		x, y := place.Matrix.TransformPoint(0, 0)
		if !almostEqual(x, 50) || !almostEqual(y, 50) {
			t.Errorf("angle %v: center = (%v, %v), want (50, 50)", angle, x, y)
		}
	}
}

func TestCore_SubscribeAndReferenceStability(t *testing.T) {
	c := newCreatorCore()
	var seen []*document.Document
	unsub := c.Subscribe(func(d *document.Document) { seen = append(seen, d) })

	c.AddText(TextParams{})
	notifications := len(seen)
	if notifications == 0 {
		t.Fatal("no notifications for a real change")
	}

	// A no-op dispatch notifies nobody and keeps the reference.
	before := c.State()
	c.RenameSlide("slide_404", "X")
	if c.State() != before {
		t.Error("no-op changed the state reference")
	}
	if len(seen) != notifications {
		t.Error("no-op produced a notification")
	}

	unsub()
	c.AddText(TextParams{})
	if len(seen) != notifications {
		t.Error("unsubscribed listener still notified")
	}
}

func TestCore_PreviewFlag(t *testing.T) {
	c := newCreatorCore()
	before := c.State()

	c.EnterPreview()
	if !c.InPreview() {
		t.Error("preview flag not set")
	}
	if c.State() != before {
		t.Error("preview must not touch the document")
	}
	c.ExitPreview()
	if c.InPreview() {
		t.Error("preview flag not cleared")
	}
}

func TestCore_IDUniquenessAcrossCommands(t *testing.T) {
	c := newCreatorCore()
	ids := make(map[string]bool)

	for i := 0; i < 5; i++ {
		c.AddSlide()
		for j := 0; j < 3; j++ {
			id := c.AddText(TextParams{})
			if ids[id] {
				t.Fatalf("duplicate element id %q", id)
			}
			ids[id] = true
		}
	}
	c.Undo()
	c.Undo()
	// Ids never recycle, even after undo.
	if id := c.AddText(TextParams{}); ids[id] {
		t.Errorf("recycled element id %q after undo", id)
	}
}
