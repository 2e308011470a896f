package editor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invitera/invitera/backend-go/internal/document"
)

// ErrImportMalformed is returned when an imported document does not conform
// to the model. The import is rejected wholesale; no partial state is ever
// applied.
var ErrImportMalformed = errors.New("malformed document")

// Options configures a Core.
type Options struct {
	// Initial document; nil starts from document.NewDefaultDocument.
	Initial *document.Document
	// Oracle decides edit capability per role; nil means DefaultOracle.
	Oracle CapabilityOracle
	// Role of the session owner, normalized before every check.
	Role string
	// HistoryLimit overrides HistoryMax when positive.
	HistoryLimit int
	// OnDenied, when set, observes capability-denied intents for telemetry.
	OnDenied func(intent string)
}

// Core is the editor session orchestrator: it translates user intents into
// labeled reducer commands, owns the history and the id allocator, and fans
// new snapshots out to subscribers. One Core serves one editor session; it is
// single-threaded by design and callers driving it from multiple goroutines
// must serialize access themselves.
type Core struct {
	alloc   *Allocator
	history *History
	oracle  CapabilityOracle
	role    string

	listeners    map[int]func(*document.Document)
	nextListener int

	dragID  string
	preview bool

	onDenied func(intent string)
}

// New creates a Core over an initial document.
func New(opts Options) *Core {
	doc := opts.Initial
	if doc == nil {
		doc = document.NewDefaultDocument()
	}
	oracle := opts.Oracle
	if oracle == nil {
		oracle = DefaultOracle
	}
	return &Core{
		alloc:     NewAllocator(doc),
		history:   NewHistory(doc, opts.HistoryLimit),
		oracle:    oracle,
		role:      NormalizeRole(opts.Role),
		listeners: make(map[int]func(*document.Document)),
		onDenied:  opts.OnDenied,
	}
}

// Load constructs a Core from an exported document. The allocator is seeded
// from the imported ids, so the first fresh slide or element continues the
// imported sequence.
func Load(data []byte, opts Options) (*Core, error) {
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}
	if err := validateDocument(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}
	opts.Initial = &doc
	return New(opts), nil
}

// Export serializes the present document.
func (c *Core) Export() ([]byte, error) {
	return json.Marshal(c.history.Present())
}

// State returns the present snapshot. The reference is stable across no-op
// dispatches.
func (c *Core) State() *document.Document {
	return c.history.Present()
}

// Subscribe registers a listener that receives every new snapshot. The
// returned function unsubscribes.
func (c *Core) Subscribe(fn func(*document.Document)) func() {
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	return func() { delete(c.listeners, id) }
}

func (c *Core) CanUndo() bool { return c.history.CanUndo() }
func (c *Core) CanRedo() bool { return c.history.CanRedo() }

// Role returns the normalized session role.
func (c *Core) Role() string { return c.role }

// SetRole changes the session role, e.g. after login.
func (c *Core) SetRole(role string) { c.role = NormalizeRole(role) }

// --- intents ---

// TextParams are optional overrides for a new or updated text element.
type TextParams struct {
	Content *string
	X       *float64
	Y       *float64
	Width   *float64
	Height  *float64
	Style   map[string]any
}

// ImageParams are optional overrides for a new image element.
type ImageParams struct {
	Src           *string
	Fit           *document.FitMode
	X             *float64
	Y             *float64
	Width         *float64
	Height        *float64
	NaturalWidth  *float64
	NaturalHeight *float64
}

// AddText appends a text element to the selected slide and selects it.
// Returns the new element id, or "" when nothing was added.
func (c *Core) AddText(p TextParams) string {
	if !c.allowed("addText") {
		return ""
	}
	cmd := Command{
		Type:    CmdAddText,
		Content: p.Content,
		X:       p.X, Y: p.Y, Width: p.Width, Height: p.Height,
		Style: p.Style,
	}
	if !c.dispatch(cmd, "add-text") {
		return ""
	}
	return c.State().Selected.ElementID
}

// AddImage appends an image element to the selected slide and selects it.
func (c *Core) AddImage(p ImageParams) string {
	if !c.allowed("addImage") {
		return ""
	}
	cmd := Command{
		Type: CmdAddImage,
		Src:  p.Src, Fit: p.Fit,
		X: p.X, Y: p.Y, Width: p.Width, Height: p.Height,
		NaturalWidth: p.NaturalWidth, NaturalHeight: p.NaturalHeight,
	}
	if !c.dispatch(cmd, "add-image") {
		return ""
	}
	return c.State().Selected.ElementID
}

// AddSlide appends a slide and selects it. Returns the new slide id.
func (c *Core) AddSlide() string {
	if !c.allowed("addSlide") {
		return ""
	}
	if !c.dispatch(Command{Type: CmdAddSlide}, "add-slide") {
		return ""
	}
	slides := c.State().Slides
	return slides[len(slides)-1].ID
}

func (c *Core) RemoveSlide(slideID string) {
	if c.allowed("removeSlide") {
		c.dispatch(Command{Type: CmdRemoveSlide, SlideID: slideID}, "remove-slide")
	}
}

func (c *Core) RenameSlide(slideID, name string) {
	if c.allowed("renameSlide") {
		c.dispatch(Command{Type: CmdRenameSlide, SlideID: slideID, Name: name}, "rename-slide")
	}
}

func (c *Core) SelectSlide(slideID string) {
	if c.allowed("selectSlide") {
		c.dispatch(Command{Type: CmdSelectSlide, SlideID: slideID}, "select")
	}
}

func (c *Core) SelectElement(elementID string) {
	if c.allowed("selectElement") {
		c.dispatch(Command{Type: CmdSelectElement, ElementID: elementID}, "select")
	}
}

func (c *Core) DeleteElement(elementID string) {
	if c.allowed("deleteElement") {
		c.dispatch(Command{Type: CmdDeleteElement, ElementID: elementID}, "delete")
	}
}

// BeginDrag opens a drag gesture on an element. Every Drag until EndDrag
// coalesces into a single undo step.
func (c *Core) BeginDrag(elementID string) bool {
	if !c.allowed("beginDrag") {
		return false
	}
	si, _ := c.State().FindElement(elementID)
	if si < 0 {
		return false
	}
	// A new gesture never merges with an earlier drag of the same element.
	c.history.Commit()
	c.dragID = elementID
	return true
}

// Drag moves the dragged element by a delta in canvas pixels.
func (c *Core) Drag(dx, dy float64) {
	if c.dragID == "" {
		return
	}
	doc := c.State()
	si, ei := doc.FindElement(c.dragID)
	if si < 0 {
		return
	}
	place := MapLayerPixel(doc.Slides[si].Elements[ei], doc.Viewport)
	x := place.Left + dx
	y := place.Top + dy
	c.dispatch(Command{Type: CmdMoveElement, ElementID: c.dragID, X: &x, Y: &y}, LabelMovePrefix+c.dragID)
}

// EndDrag closes the gesture and commits its history entry.
func (c *Core) EndDrag() {
	if c.dragID == "" {
		return
	}
	c.dragID = ""
	c.history.Commit()
}

// CancelDrag restores the snapshot taken at BeginDrag and discards the
// in-progress history entry.
func (c *Core) CancelDrag() {
	if c.dragID == "" {
		return
	}
	label := LabelMovePrefix + c.dragID
	c.dragID = ""
	if c.history.CancelPending(label) {
		c.notify()
	}
}

// Resize sets an element's box size; consecutive resizes of one element
// collapse into one undo step.
func (c *Core) Resize(elementID string, w, h float64) {
	if c.allowed("resize") {
		c.dispatch(Command{Type: CmdResizeElement, ElementID: elementID, Width: &w, Height: &h}, LabelResizePrefix+elementID)
	}
}

// EditText replaces a text element's content. Consecutive edits coalesce
// until CommitTextEdit (focus loss) or CancelTextEdit.
func (c *Core) EditText(elementID, content string) {
	if c.allowed("editText") {
		c.dispatch(Command{Type: CmdUpdateText, ElementID: elementID, Content: &content}, LabelTextEditPrefix+elementID)
	}
}

// UpdateTextStyle merges a style patch into a text element. Unknown keys in
// the existing style survive.
func (c *Core) UpdateTextStyle(elementID string, style map[string]any) {
	if c.allowed("updateTextStyle") {
		c.dispatch(Command{Type: CmdUpdateText, ElementID: elementID, Style: style}, "style:"+elementID)
	}
}

// CommitTextEdit marks a focus-loss boundary for one element: its next edit
// starts a new undo step. Other in-progress gestures keep coalescing.
func (c *Core) CommitTextEdit(elementID string) {
	c.history.CommitLabel(LabelTextEditPrefix + elementID)
}

// CancelTextEdit rolls the element back to its content at edit start.
func (c *Core) CancelTextEdit(elementID string) {
	if c.history.CancelPending(LabelTextEditPrefix + elementID) {
		c.notify()
	}
}

// SetBackground installs a background image on the selected slide.
func (c *Core) SetBackground(slideID string, bg document.Background) {
	if c.allowed("setBackground") {
		c.dispatch(Command{Type: CmdSetBackground, SlideID: slideID, Background: &bg}, "background")
	}
}

// UpdateBackground patches the background transform of a slide.
func (c *Core) UpdateBackground(slideID string, patch BackgroundPatch) {
	if c.allowed("updateBackground") {
		c.dispatch(Command{Type: CmdUpdateBackground, SlideID: slideID, BackgroundPatch: &patch}, "background")
	}
}

// SetCanvas resizes the viewport and re-fits every background the user never
// explicitly scaled, keeping all percentage-addressed centers where they are.
// The whole recomputation is one undo step.
func (c *Core) SetCanvas(w, h float64) {
	if !c.allowed("setCanvas") {
		return
	}
	old := c.State().Viewport
	c.history.Commit()
	if !c.dispatch(Command{Type: CmdSetViewport, Width: &w, Height: &h}, LabelCanvas) {
		return
	}
	doc := c.State()
	for i := range doc.Slides {
		bg := doc.Slides[i].Background
		if bg == nil || bg.UserScaled {
			continue
		}
		fitted := RescaleOnViewportChange(old, doc.Viewport, bg)
		if fitted.Scale == bg.Scale {
			continue
		}
		c.dispatch(Command{
			Type:            CmdUpdateBackground,
			SlideID:         doc.Slides[i].ID,
			BackgroundPatch: &BackgroundPatch{Scale: &fitted.Scale},
		}, LabelCanvas)
	}
	c.history.Commit()
}

// SetScale changes only the display multiplier.
func (c *Core) SetScale(scale float64) {
	if c.allowed("setScale") {
		c.dispatch(Command{Type: CmdSetScale, Scale: &scale}, "scale")
	}
}

// ToggleModal flips (or explicitly sets) an advisory UI flag.
func (c *Core) ToggleModal(key string, value *bool) {
	if c.allowed("toggleModal") {
		c.dispatch(Command{Type: CmdToggleUI, Key: key, Value: value}, "ui")
	}
}

// EnterPreview and ExitPreview flip the preview flag observers read. They
// touch neither the document nor the DOM.
func (c *Core) EnterPreview() { c.preview = true }
func (c *Core) ExitPreview()  { c.preview = false }
func (c *Core) InPreview() bool {
	return c.preview
}

// Undo steps back one history entry and notifies observers.
func (c *Core) Undo() bool {
	if !c.allowed("undo") {
		return false
	}
	if !c.history.Undo() {
		return false
	}
	c.notify()
	return true
}

// Redo mirrors Undo.
func (c *Core) Redo() bool {
	if !c.allowed("redo") {
		return false
	}
	if !c.history.Redo() {
		return false
	}
	c.notify()
	return true
}

// --- internals ---

func (c *Core) allowed(intent string) bool {
	if c.oracle(c.role).CanEdit {
		return true
	}
	if c.onDenied != nil {
		c.onDenied(intent)
	}
	return false
}

func (c *Core) dispatch(cmd Command, label string) bool {
	if !c.history.Dispatch(c.alloc, cmd, label) {
		return false
	}
	c.notify()
	return true
}

func (c *Core) notify() {
	doc := c.history.Present()
	for _, fn := range c.listeners {
		fn(doc)
	}
}

func validateDocument(doc *document.Document) error {
	if len(doc.Slides) == 0 {
		return errors.New("document has no slides")
	}
	if doc.Viewport.Width <= 0 || doc.Viewport.Height <= 0 || doc.Viewport.Scale <= 0 {
		return errors.New("viewport dimensions must be positive")
	}
	slideIDs := make(map[string]bool, len(doc.Slides))
	elementIDs := make(map[string]bool)
	for _, slide := range doc.Slides {
		if slide.ID == "" || slideIDs[slide.ID] {
			return fmt.Errorf("duplicate or empty slide id %q", slide.ID)
		}
		slideIDs[slide.ID] = true
		if slide.Name == "" {
			return fmt.Errorf("slide %s has an empty name", slide.ID)
		}
		for _, el := range slide.Elements {
			if el.ID == "" || elementIDs[el.ID] {
				return fmt.Errorf("duplicate or empty element id %q", el.ID)
			}
			elementIDs[el.ID] = true
			if el.Type != document.ElementText && el.Type != document.ElementImage {
				return fmt.Errorf("element %s has unknown type %q", el.ID, el.Type)
			}
			if el.Width <= 0 || el.Height <= 0 {
				return fmt.Errorf("element %s has non-positive size", el.ID)
			}
		}
	}
	if doc.Selected.SlideID != "" && !slideIDs[doc.Selected.SlideID] {
		return fmt.Errorf("selected slide %q does not exist", doc.Selected.SlideID)
	}
	if doc.Selected.ElementID != "" && !elementIDs[doc.Selected.ElementID] {
		return fmt.Errorf("selected element %q does not exist", doc.Selected.ElementID)
	}
	return nil
}
