package editor

import "github.com/invitera/invitera/backend-go/internal/document"

// Command types form a closed enumeration. The reducer treats anything
// outside this list as a no-op.
const (
	CmdAddSlide    = "slide.add"
	CmdRemoveSlide = "slide.remove"
	CmdRenameSlide = "slide.rename"
	CmdSelectSlide = "slide.select"

	CmdAddText     = "text.add"
	CmdUpdateText  = "text.update"
	CmdAddImage    = "image.add"
	CmdUpdateImage = "image.update"

	CmdMoveElement   = "element.move"
	CmdResizeElement = "element.resize"
	CmdSelectElement = "element.select"
	CmdDeleteElement = "element.delete"

	CmdSetBackground    = "background.set"
	CmdUpdateBackground = "background.update"

	CmdSetViewport = "viewport.set"
	CmdSetScale    = "viewport.scale"
	CmdToggleUI    = "ui.toggle"
)

// Command is a single reducer instruction. One struct covers the whole
// enumeration, with pointer fields for optionals — a command is routinely
// decoded from client JSON in the collab protocol, so absent and zero must
// stay distinguishable.
type Command struct {
	Type string `json:"type"`

	SlideID   string `json:"slideId,omitempty"`
	ElementID string `json:"elementId,omitempty"`
	Name      string `json:"name,omitempty"`

	// Element placement.
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	// text.add / text.update.
	Content *string        `json:"content,omitempty"`
	Style   map[string]any `json:"style,omitempty"`

	// image.add / image.update.
	Src           *string           `json:"src,omitempty"`
	Fit           *document.FitMode `json:"fit,omitempty"`
	NaturalWidth  *float64          `json:"naturalWidth,omitempty"`
	NaturalHeight *float64          `json:"naturalHeight,omitempty"`

	// image.update / text.update geometry patch.
	Rotation *float64 `json:"rotation,omitempty"`

	// background.set / background.update.
	Background      *document.Background `json:"background,omitempty"`
	BackgroundPatch *BackgroundPatch     `json:"backgroundPatch,omitempty"`

	// viewport.set / viewport.scale.
	Scale *float64 `json:"scale,omitempty"`

	// ui.toggle.
	Key   string `json:"key,omitempty"`
	Value *bool  `json:"value,omitempty"`
}

// BackgroundPatch is a partial update of a slide's background transform.
type BackgroundPatch struct {
	Src        *string  `json:"src,omitempty"`
	CXPercent  *float64 `json:"cxPercent,omitempty"`
	CYPercent  *float64 `json:"cyPercent,omitempty"`
	Scale      *float64 `json:"scale,omitempty"`
	Angle      *float64 `json:"angle,omitempty"`
	ShearX     *float64 `json:"shearX,omitempty"`
	ShearY     *float64 `json:"shearY,omitempty"`
	SignX      *int     `json:"signX,omitempty"`
	SignY      *int     `json:"signY,omitempty"`
	Flip       *bool    `json:"flip,omitempty"`
	UserScaled *bool    `json:"userScaled,omitempty"`
}
