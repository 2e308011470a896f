package document

// Document is the full state of one invitation editor session: the slide deck,
// the current selection, the viewport, and advisory UI flags. It is treated as
// an immutable snapshot everywhere outside the reducer; a mutation produces a
// new Document sharing unchanged subtrees with the old one.
type Document struct {
	Slides   []Slide   `json:"slides"`
	Selected Selection `json:"selected"`
	Viewport Viewport  `json:"viewport"`
	UI       UIFlags   `json:"ui"`
}

// Selection points at the active slide and element. Empty string means none.
type Selection struct {
	SlideID   string `json:"slideId,omitempty"`
	ElementID string `json:"elementId,omitempty"`
}

// Viewport is the logical canvas size in design units plus a display scale.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

// UIFlags are purely advisory booleans mirrored into the editor chrome.
type UIFlags struct {
	ShowGrid       bool `json:"showGrid"`
	SnapToGrid     bool `json:"snapToGrid"`
	ShowAuthModal  bool `json:"showAuthModal"`
	ShowShareModal bool `json:"showShareModal"`
}

// UI flag keys accepted by the ui.toggle command.
const (
	UIShowGrid       = "showGrid"
	UISnapToGrid     = "snapToGrid"
	UIShowAuthModal  = "showAuthModal"
	UIShowShareModal = "showShareModal"
)

type Slide struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Elements   []Element   `json:"elements"`
	Background *Background `json:"background,omitempty"`
}

type ElementType string

const (
	ElementText  ElementType = "text"
	ElementImage ElementType = "image"
)

type FitMode string

const (
	FitCover   FitMode = "cover"
	FitContain FitMode = "contain"
)

// Element is a user-placed layer on a slide. Elements are ordered back to
// front within a slide. Rotation is in degrees.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation"`

	// Text fields. Style holds the enumerated keys (color, fontFamily,
	// fontSize, fontWeight, textAlign); unknown keys are preserved across
	// updates so renderer extensions can ride along without schema churn.
	Content string         `json:"content,omitempty"`
	Style   map[string]any `json:"style,omitempty"`

	// Image fields.
	Src           string  `json:"src,omitempty"`
	Fit           FitMode `json:"fit,omitempty"`
	NaturalWidth  float64 `json:"naturalWidth,omitempty"`
	NaturalHeight float64 `json:"naturalHeight,omitempty"`

	// Position addressing. When XPercent/YPercent are set, the stored X/Y are
	// ignored and the layer is addressed as a percentage of the canvas. When
	// RefWidth/RefHeight are set, X/Y (and fontSize) were recorded against
	// that reference canvas and get rescaled to the current viewport.
	XPercent  *float64 `json:"xPercent,omitempty"`
	YPercent  *float64 `json:"yPercent,omitempty"`
	RefWidth  float64  `json:"refWidth,omitempty"`
	RefHeight float64  `json:"refHeight,omitempty"`
}

// Well-known text style keys.
const (
	StyleColor      = "color"
	StyleFontFamily = "fontFamily"
	StyleFontSize   = "fontSize"
	StyleFontWeight = "fontWeight"
	StyleTextAlign  = "textAlign"
)

// Background is the affine transform of a slide's background image. The
// center is addressed as a percentage of the canvas so it survives viewport
// changes; Angle is in radians. SignX/SignY are -1 or +1 and combine with
// Flip into a single orientation bit (double negation is identity).
type Background struct {
	Src           string  `json:"src,omitempty"`
	CXPercent     float64 `json:"cxPercent"`
	CYPercent     float64 `json:"cyPercent"`
	Scale         float64 `json:"scale"`
	Angle         float64 `json:"angle"`
	ShearX        float64 `json:"shearX"`
	ShearY        float64 `json:"shearY"`
	SignX         int     `json:"signX"`
	SignY         int     `json:"signY"`
	Flip          bool    `json:"flip"`
	NaturalWidth  float64 `json:"naturalWidth,omitempty"`
	NaturalHeight float64 `json:"naturalHeight,omitempty"`

	// UserScaled marks that the user explicitly chose Scale; viewport changes
	// leave it alone instead of re-fitting.
	UserScaled bool `json:"userScaled,omitempty"`
}

// DefaultStyle returns the style applied to freshly added text elements.
func DefaultStyle() map[string]any {
	return map[string]any{
		StyleColor:      "#1a1a2e",
		StyleFontFamily: "Georgia",
		StyleFontSize:   32.0,
		StyleFontWeight: "normal",
		StyleTextAlign:  "center",
	}
}

// NewDefaultDocument creates the document seeded into a fresh invitation:
// one empty slide and a standard portrait viewport.
func NewDefaultDocument() *Document {
	return &Document{
		Slides: []Slide{
			{
				ID:       "slide_1",
				Name:     "Slide 1",
				Elements: []Element{},
			},
		},
		Selected: Selection{SlideID: "slide_1"},
		Viewport: Viewport{Width: 800, Height: 1200, Scale: 1},
		UI:       UIFlags{SnapToGrid: true},
	}
}
