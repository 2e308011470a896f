package editor

import (
	"fmt"
	"math"
	"reflect"

	"github.com/invitera/invitera/backend-go/internal/document"
)

// Apply is the document transition function. It never mutates doc; when a
// command changes anything it returns a fresh snapshot sharing untouched
// subtrees, and when a command is unknown, malformed, or inapplicable it
// returns doc itself so observers can short-circuit on pointer equality.
// Fresh ids come exclusively from the allocator.
func Apply(alloc *Allocator, doc *document.Document, cmd Command) *document.Document {
	if doc == nil {
		return doc
	}

	switch cmd.Type {
	case CmdAddSlide:
		return applyAddSlide(alloc, doc)
	case CmdRemoveSlide:
		return applyRemoveSlide(doc, cmd)
	case CmdRenameSlide:
		return applyRenameSlide(doc, cmd)
	case CmdSelectSlide:
		return applySelectSlide(doc, cmd)
	case CmdAddText:
		return applyAddText(alloc, doc, cmd)
	case CmdUpdateText:
		return applyUpdateText(doc, cmd)
	case CmdAddImage:
		return applyAddImage(alloc, doc, cmd)
	case CmdUpdateImage:
		return applyUpdateImage(doc, cmd)
	case CmdMoveElement:
		return applyMoveElement(doc, cmd)
	case CmdResizeElement:
		return applyResizeElement(doc, cmd)
	case CmdSelectElement:
		return applySelectElement(doc, cmd)
	case CmdDeleteElement:
		return applyDeleteElement(doc, cmd)
	case CmdSetBackground:
		return applySetBackground(doc, cmd)
	case CmdUpdateBackground:
		return applyUpdateBackground(doc, cmd)
	case CmdSetViewport:
		return applySetViewport(doc, cmd)
	case CmdSetScale:
		return applySetScale(doc, cmd)
	case CmdToggleUI:
		return applyToggleUI(doc, cmd)
	default:
		return doc
	}
}

func applyAddSlide(alloc *Allocator, doc *document.Document) *document.Document {
	ordinal := alloc.SlideOrdinal()
	slide := document.Slide{
		ID:       alloc.NextSlideID(),
		Name:     fmt.Sprintf("Slide %d", ordinal),
		Elements: []document.Element{},
	}

	next := doc.ShallowCopy()
	next.Slides = append(document.CopySlides(doc.Slides), slide)
	next.Selected = document.Selection{SlideID: slide.ID}
	return next
}

func applyRemoveSlide(doc *document.Document, cmd Command) *document.Document {
	idx := doc.SlideIndex(cmd.SlideID)
	// The deck never goes empty at rest.
	if idx < 0 || len(doc.Slides) <= 1 {
		return doc
	}

	next := doc.ShallowCopy()
	next.Slides = make([]document.Slide, 0, len(doc.Slides)-1)
	next.Slides = append(next.Slides, doc.Slides[:idx]...)
	next.Slides = append(next.Slides, doc.Slides[idx+1:]...)

	if doc.Selected.SlideID == cmd.SlideID {
		next.Selected = document.Selection{SlideID: next.Slides[0].ID}
	} else {
		next.Selected = document.Selection{SlideID: doc.Selected.SlideID}
	}
	return next
}

func applyRenameSlide(doc *document.Document, cmd Command) *document.Document {
	idx := doc.SlideIndex(cmd.SlideID)
	if idx < 0 || cmd.Name == "" || doc.Slides[idx].Name == cmd.Name {
		return doc
	}

	next := doc.ShallowCopy()
	next.Slides = document.CopySlides(doc.Slides)
	next.Slides[idx].Name = cmd.Name
	return next
}

func applySelectSlide(doc *document.Document, cmd Command) *document.Document {
	if doc.SlideIndex(cmd.SlideID) < 0 {
		return doc
	}
	if doc.Selected.SlideID == cmd.SlideID && doc.Selected.ElementID == "" {
		return doc
	}

	next := doc.ShallowCopy()
	next.Selected = document.Selection{SlideID: cmd.SlideID}
	return next
}

func applyAddText(alloc *Allocator, doc *document.Document, cmd Command) *document.Document {
	si := doc.SelectedSlideIndex()
	if si < 0 {
		return doc
	}

	el := document.Element{
		ID:       alloc.NextElementID(),
		Type:     document.ElementText,
		X:        100,
		Y:        100,
		Width:    400,
		Height:   80,
		Content:  "Edit me",
		Style:    document.DefaultStyle(),
		RefWidth: doc.Viewport.Width, RefHeight: doc.Viewport.Height,
	}
	if cmd.Content != nil {
		el.Content = *cmd.Content
	}
	applyPlacement(&el, cmd)
	for k, v := range cmd.Style {
		el.Style[k] = v
	}

	return appendAndSelect(doc, si, el)
}

func applyAddImage(alloc *Allocator, doc *document.Document, cmd Command) *document.Document {
	si := doc.SelectedSlideIndex()
	if si < 0 {
		return doc
	}

	el := document.Element{
		ID:     alloc.NextElementID(),
		Type:   document.ElementImage,
		X:      100,
		Y:      100,
		Width:  400,
		Height: 300,
		Fit:    document.FitCover,
	}
	if cmd.Src != nil {
		el.Src = *cmd.Src
	}
	if cmd.Fit != nil && validFit(*cmd.Fit) {
		el.Fit = *cmd.Fit
	}
	if cmd.NaturalWidth != nil {
		el.NaturalWidth = *cmd.NaturalWidth
	}
	if cmd.NaturalHeight != nil {
		el.NaturalHeight = *cmd.NaturalHeight
	}
	applyPlacement(&el, cmd)

	return appendAndSelect(doc, si, el)
}

func applyUpdateText(doc *document.Document, cmd Command) *document.Document {
	si, ei := doc.FindElement(cmd.ElementID)
	if si < 0 || doc.Slides[si].Elements[ei].Type != document.ElementText {
		return doc
	}

	el := doc.Slides[si].Elements[ei]
	changed := false

	if cmd.Content != nil && el.Content != *cmd.Content {
		el.Content = *cmd.Content
		changed = true
	}
	if patchGeometry(&el, cmd) {
		changed = true
	}
	if len(cmd.Style) > 0 {
		// Merge, never replace: keys outside the enumerated set survive so
		// renderer-specific extensions can coexist with the core.
		merged := document.CloneStyle(el.Style)
		if merged == nil {
			merged = make(map[string]any, len(cmd.Style))
		}
		for k, v := range cmd.Style {
			// Values come from decoded JSON and may be slices or nested
			// objects, which a plain == would panic on.
			if cur, ok := merged[k]; ok && reflect.DeepEqual(cur, v) {
				continue
			}
			merged[k] = v
			changed = true
		}
		el.Style = merged
	}
	if !changed {
		return doc
	}

	return replaceElement(doc, si, ei, el)
}

func applyUpdateImage(doc *document.Document, cmd Command) *document.Document {
	si, ei := doc.FindElement(cmd.ElementID)
	if si < 0 || doc.Slides[si].Elements[ei].Type != document.ElementImage {
		return doc
	}

	el := doc.Slides[si].Elements[ei]
	changed := patchGeometry(&el, cmd)

	if cmd.Src != nil && el.Src != *cmd.Src {
		el.Src = *cmd.Src
		changed = true
	}
	if cmd.Fit != nil && validFit(*cmd.Fit) && el.Fit != *cmd.Fit {
		el.Fit = *cmd.Fit
		changed = true
	}
	if cmd.NaturalWidth != nil && el.NaturalWidth != *cmd.NaturalWidth {
		el.NaturalWidth = *cmd.NaturalWidth
		changed = true
	}
	if cmd.NaturalHeight != nil && el.NaturalHeight != *cmd.NaturalHeight {
		el.NaturalHeight = *cmd.NaturalHeight
		changed = true
	}
	if !changed {
		return doc
	}

	return replaceElement(doc, si, ei, el)
}

func applyMoveElement(doc *document.Document, cmd Command) *document.Document {
	if cmd.X == nil || cmd.Y == nil || !finite(*cmd.X) || !finite(*cmd.Y) {
		return doc
	}
	si, ei := doc.FindElement(cmd.ElementID)
	if si < 0 {
		return doc
	}

	el := doc.Slides[si].Elements[ei]
	if el.X == *cmd.X && el.Y == *cmd.Y && el.XPercent == nil && el.YPercent == nil {
		return doc
	}
	el.X = *cmd.X
	el.Y = *cmd.Y
	// A concrete move pins the layer to pixel form against the live canvas.
	el.XPercent = nil
	el.YPercent = nil
	el.RefWidth = doc.Viewport.Width
	el.RefHeight = doc.Viewport.Height

	return replaceElement(doc, si, ei, el)
}

func applyResizeElement(doc *document.Document, cmd Command) *document.Document {
	if cmd.Width == nil || cmd.Height == nil {
		return doc
	}
	w, h := *cmd.Width, *cmd.Height
	if !finite(w) || !finite(h) || w <= 0 || h <= 0 {
		return doc
	}
	si, ei := doc.FindElement(cmd.ElementID)
	if si < 0 {
		return doc
	}

	el := doc.Slides[si].Elements[ei]
	if el.Width == w && el.Height == h {
		return doc
	}
	el.Width = w
	el.Height = h

	return replaceElement(doc, si, ei, el)
}

func applySelectElement(doc *document.Document, cmd Command) *document.Document {
	si := doc.SelectedSlideIndex()
	if si < 0 || !slideHasElement(doc.Slides[si], cmd.ElementID) {
		return doc
	}
	if doc.Selected.ElementID == cmd.ElementID {
		return doc
	}

	next := doc.ShallowCopy()
	next.Selected = document.Selection{SlideID: doc.Selected.SlideID, ElementID: cmd.ElementID}
	if next.Selected.SlideID == "" {
		next.Selected.SlideID = doc.Slides[si].ID
	}
	return next
}

func applyDeleteElement(doc *document.Document, cmd Command) *document.Document {
	si := doc.SelectedSlideIndex()
	if si < 0 {
		return doc
	}
	ei := -1
	for i := range doc.Slides[si].Elements {
		if doc.Slides[si].Elements[i].ID == cmd.ElementID {
			ei = i
			break
		}
	}
	if ei < 0 {
		return doc
	}

	next := doc.ShallowCopy()
	next.Slides = document.CopySlides(doc.Slides)
	els := doc.Slides[si].Elements
	out := make([]document.Element, 0, len(els)-1)
	out = append(out, els[:ei]...)
	out = append(out, els[ei+1:]...)
	next.Slides[si].Elements = out

	if doc.Selected.ElementID == cmd.ElementID {
		next.Selected = document.Selection{SlideID: doc.Selected.SlideID}
	}
	return next
}

func applySetBackground(doc *document.Document, cmd Command) *document.Document {
	si := targetSlideIndex(doc, cmd)
	if si < 0 || cmd.Background == nil {
		return doc
	}

	bg := *cmd.Background
	bg.SignX = normSign(bg.SignX)
	bg.SignY = normSign(bg.SignY)
	if bg.Scale <= 0 {
		bg.Scale = 1
		if s, err := FitScale(bg.NaturalWidth, bg.NaturalHeight, doc.Viewport.Width, doc.Viewport.Height, document.FitContain); err == nil {
			bg.Scale = s
		}
	}

	next := doc.ShallowCopy()
	next.Slides = document.CopySlides(doc.Slides)
	next.Slides[si].Background = &bg
	return next
}

func applyUpdateBackground(doc *document.Document, cmd Command) *document.Document {
	si := targetSlideIndex(doc, cmd)
	if si < 0 || cmd.BackgroundPatch == nil || doc.Slides[si].Background == nil {
		return doc
	}

	bg := *doc.Slides[si].Background
	p := cmd.BackgroundPatch
	changed := false

	if p.Src != nil && bg.Src != *p.Src {
		bg.Src = *p.Src
		changed = true
	}
	if p.CXPercent != nil {
		if v := clampPercent(*p.CXPercent); bg.CXPercent != v {
			bg.CXPercent = v
			changed = true
		}
	}
	if p.CYPercent != nil {
		if v := clampPercent(*p.CYPercent); bg.CYPercent != v {
			bg.CYPercent = v
			changed = true
		}
	}
	if p.Scale != nil && *p.Scale > 0 && bg.Scale != *p.Scale {
		bg.Scale = *p.Scale
		changed = true
	}
	if p.Angle != nil && bg.Angle != *p.Angle {
		bg.Angle = *p.Angle
		changed = true
	}
	if p.ShearX != nil && bg.ShearX != *p.ShearX {
		bg.ShearX = *p.ShearX
		changed = true
	}
	if p.ShearY != nil && bg.ShearY != *p.ShearY {
		bg.ShearY = *p.ShearY
		changed = true
	}
	if p.SignX != nil && bg.SignX != normSign(*p.SignX) {
		bg.SignX = normSign(*p.SignX)
		changed = true
	}
	if p.SignY != nil && bg.SignY != normSign(*p.SignY) {
		bg.SignY = normSign(*p.SignY)
		changed = true
	}
	if p.Flip != nil && bg.Flip != *p.Flip {
		bg.Flip = *p.Flip
		changed = true
	}
	if p.UserScaled != nil && bg.UserScaled != *p.UserScaled {
		bg.UserScaled = *p.UserScaled
		changed = true
	}
	if !changed {
		return doc
	}

	next := doc.ShallowCopy()
	next.Slides = document.CopySlides(doc.Slides)
	next.Slides[si].Background = &bg
	return next
}

func applySetViewport(doc *document.Document, cmd Command) *document.Document {
	if cmd.Width == nil || cmd.Height == nil {
		return doc
	}
	w, h := *cmd.Width, *cmd.Height
	if !finite(w) || !finite(h) || w <= 0 || h <= 0 {
		return doc
	}

	vp := document.Viewport{Width: w, Height: h, Scale: doc.Viewport.Scale}
	if cmd.Scale != nil && *cmd.Scale > 0 && finite(*cmd.Scale) {
		vp.Scale = *cmd.Scale
	}
	if vp == doc.Viewport {
		return doc
	}

	next := doc.ShallowCopy()
	next.Viewport = vp
	return next
}

func applySetScale(doc *document.Document, cmd Command) *document.Document {
	if cmd.Scale == nil || !finite(*cmd.Scale) || *cmd.Scale <= 0 || doc.Viewport.Scale == *cmd.Scale {
		return doc
	}

	next := doc.ShallowCopy()
	next.Viewport.Scale = *cmd.Scale
	return next
}

func applyToggleUI(doc *document.Document, cmd Command) *document.Document {
	ui := doc.UI
	switch cmd.Key {
	case document.UIShowGrid:
		ui.ShowGrid = toggled(ui.ShowGrid, cmd.Value)
	case document.UISnapToGrid:
		ui.SnapToGrid = toggled(ui.SnapToGrid, cmd.Value)
	case document.UIShowAuthModal:
		ui.ShowAuthModal = toggled(ui.ShowAuthModal, cmd.Value)
	case document.UIShowShareModal:
		ui.ShowShareModal = toggled(ui.ShowShareModal, cmd.Value)
	default:
		return doc
	}
	if ui == doc.UI {
		return doc
	}

	next := doc.ShallowCopy()
	next.UI = ui
	return next
}

// --- shared helpers ---

// appendAndSelect appends an element and moves the selection onto it, so an
// add is a single undo step: undoing it removes the element and the
// selection together.
func appendAndSelect(doc *document.Document, si int, el document.Element) *document.Document {
	next := doc.ShallowCopy()
	next.Slides = document.CopySlides(doc.Slides)
	next.Slides[si].Elements = append(document.CopyElements(doc.Slides[si].Elements), el)
	next.Selected = document.Selection{SlideID: next.Slides[si].ID, ElementID: el.ID}
	return next
}

func replaceElement(doc *document.Document, si, ei int, el document.Element) *document.Document {
	next := doc.ShallowCopy()
	next.Slides = document.CopySlides(doc.Slides)
	next.Slides[si].Elements = document.CopyElements(doc.Slides[si].Elements)
	next.Slides[si].Elements[ei] = el
	return next
}

func applyPlacement(el *document.Element, cmd Command) {
	if cmd.X != nil && finite(*cmd.X) {
		el.X = *cmd.X
	}
	if cmd.Y != nil && finite(*cmd.Y) {
		el.Y = *cmd.Y
	}
	if cmd.Width != nil && finite(*cmd.Width) && *cmd.Width > 0 {
		el.Width = *cmd.Width
	}
	if cmd.Height != nil && finite(*cmd.Height) && *cmd.Height > 0 {
		el.Height = *cmd.Height
	}
	if cmd.Rotation != nil && finite(*cmd.Rotation) {
		el.Rotation = *cmd.Rotation
	}
}

func patchGeometry(el *document.Element, cmd Command) bool {
	changed := false
	if cmd.X != nil && finite(*cmd.X) && el.X != *cmd.X {
		el.X = *cmd.X
		changed = true
	}
	if cmd.Y != nil && finite(*cmd.Y) && el.Y != *cmd.Y {
		el.Y = *cmd.Y
		changed = true
	}
	if cmd.Width != nil && finite(*cmd.Width) && *cmd.Width > 0 && el.Width != *cmd.Width {
		el.Width = *cmd.Width
		changed = true
	}
	if cmd.Height != nil && finite(*cmd.Height) && *cmd.Height > 0 && el.Height != *cmd.Height {
		el.Height = *cmd.Height
		changed = true
	}
	if cmd.Rotation != nil && finite(*cmd.Rotation) && el.Rotation != *cmd.Rotation {
		el.Rotation = *cmd.Rotation
		changed = true
	}
	return changed
}

func targetSlideIndex(doc *document.Document, cmd Command) int {
	if cmd.SlideID != "" {
		return doc.SlideIndex(cmd.SlideID)
	}
	return doc.SelectedSlideIndex()
}

func slideHasElement(slide document.Slide, elementID string) bool {
	for i := range slide.Elements {
		if slide.Elements[i].ID == elementID {
			return true
		}
	}
	return false
}

func validFit(f document.FitMode) bool {
	return f == document.FitCover || f == document.FitContain
}

func toggled(cur bool, explicit *bool) bool {
	if explicit != nil {
		return *explicit
	}
	return !cur
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
