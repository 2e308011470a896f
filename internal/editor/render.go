package editor

import (
	"encoding/json"

	"github.com/invitera/invitera/backend-go/internal/document"
)

// RenderCommand is a single placement instruction for the frontend renderer.
// The renderer executes the buffer in order (back to front) on a Canvas2D
// context; the core itself never renders anything.
type RenderCommand struct {
	Op         string         `json:"op"` // "background", "text", "image"
	ElementID  string         `json:"elementId,omitempty"`
	Transform  []float64      `json:"transform,omitempty"` // [a, b, c, d, e, f]
	Left       float64        `json:"left,omitempty"`
	Top        float64        `json:"top,omitempty"`
	Width      float64        `json:"width,omitempty"`
	Height     float64        `json:"height,omitempty"`
	Rotation   float64        `json:"rotation,omitempty"` // degrees
	Content    string         `json:"content,omitempty"`
	FontSizePx float64        `json:"fontSizePx,omitempty"`
	Style      map[string]any `json:"style,omitempty"`
	Src        string         `json:"src,omitempty"`
	Fit        string         `json:"fit,omitempty"`
}

// CompileRenderPlan resolves one slide of a document against its viewport
// into a flat command buffer. All geometry is a pure function of
// (document, viewport); a zero-area viewport produces an empty plan.
func CompileRenderPlan(doc *document.Document, slideID string) []RenderCommand {
	if doc == nil || doc.Viewport.Width <= 0 || doc.Viewport.Height <= 0 {
		return nil
	}
	si := doc.SlideIndex(slideID)
	if si < 0 {
		if si = doc.SelectedSlideIndex(); si < 0 {
			return nil
		}
	}
	slide := doc.Slides[si]

	var plan []RenderCommand

	if slide.Background != nil {
		place := SetTransform(slide.Background, doc.Viewport)
		plan = append(plan, RenderCommand{
			Op:        "background",
			Transform: place.Matrix.ToSlice(),
			Src:       slide.Background.Src,
		})
	}

	for _, el := range slide.Elements {
		place := MapLayerPixel(el, doc.Viewport)
		cmd := RenderCommand{
			ElementID: el.ID,
			Left:      place.Left,
			Top:       place.Top,
			Width:     el.Width,
			Height:    el.Height,
			Rotation:  el.Rotation,
		}
		if el.Rotation != 0 {
			cmd.Transform = elementMatrix(el, place).ToSlice()
		}
		switch el.Type {
		case document.ElementText:
			cmd.Op = "text"
			cmd.Content = el.Content
			cmd.FontSizePx = place.FontSizePx
			cmd.Style = el.Style
		case document.ElementImage:
			cmd.Op = "image"
			cmd.Src = el.Src
			cmd.Fit = string(el.Fit)
		default:
			continue
		}
		plan = append(plan, cmd)
	}

	return plan
}

// elementMatrix builds the placement transform for one element: rotation
// about the element's pixel center at its resolved position.
func elementMatrix(el document.Element, place LayerPlacement) Matrix2D {
	cx := place.Left + el.Width/2
	cy := place.Top + el.Height/2
	return Translate(cx, cy).
		Multiply(RotateDegrees(el.Rotation)).
		Multiply(Translate(-cx, -cy))
}

// HitTest returns the id of the topmost element of a slide containing the
// viewport point (x, y), or "" when the point hits nothing. Rotated elements
// are tested in their own frame, so a click on a tilted corner lands where
// the renderer drew it.
func HitTest(doc *document.Document, slideID string, x, y float64) string {
	if doc == nil || doc.Viewport.Width <= 0 || doc.Viewport.Height <= 0 {
		return ""
	}
	si := doc.SlideIndex(slideID)
	if si < 0 {
		if si = doc.SelectedSlideIndex(); si < 0 {
			return ""
		}
	}

	els := doc.Slides[si].Elements
	for i := len(els) - 1; i >= 0; i-- {
		el := els[i]
		place := MapLayerPixel(el, doc.Viewport)
		lx, ly := x, y
		if el.Rotation != 0 {
			lx, ly = elementMatrix(el, place).Invert().TransformPoint(x, y)
		}
		if lx >= place.Left && lx <= place.Left+el.Width &&
			ly >= place.Top && ly <= place.Top+el.Height {
			return el.ID
		}
	}
	return ""
}

// RenderPlanJSON serializes a render plan for the wasm/browser boundary.
func RenderPlanJSON(plan []RenderCommand) string {
	if len(plan) == 0 {
		return "[]"
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return "[]"
	}
	return string(data)
}
