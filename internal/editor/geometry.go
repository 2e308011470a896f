package editor

import (
	"errors"

	"github.com/invitera/invitera/backend-go/internal/document"
)

// ErrDegenerateCanvas is reported by FitScale when a canvas or image
// dimension is not strictly positive. The higher-level geometry entry points
// absorb it into sentinel values instead of propagating.
var ErrDegenerateCanvas = errors.New("degenerate canvas")

const defaultFontSize = 32.0

// FitScale computes the scale factor at which an image of natural size
// (natW, natH) exactly fits (contain) or exactly covers (cover) a canvas of
// (workW, workH).
func FitScale(natW, natH, workW, workH float64, fit document.FitMode) (float64, error) {
	if natW <= 0 || natH <= 0 || workW <= 0 || workH <= 0 {
		return 1, ErrDegenerateCanvas
	}
	rx := workW / natW
	ry := workH / natH
	if fit == document.FitCover {
		return max(rx, ry), nil
	}
	return min(rx, ry), nil
}

// ToPixelCenter converts a percentage-of-canvas coordinate to pixels.
func ToPixelCenter(percent, dimension float64) float64 {
	return percent * dimension / 100
}

// ToPercentCenter converts a pixel coordinate back to a percentage of the
// canvas, clamped to [0, 100]. A degenerate dimension maps to 0.
func ToPercentCenter(pixel, dimension float64) float64 {
	if dimension <= 0 {
		return 0
	}
	return clampPercent(100 * pixel / dimension)
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// BackgroundPlacement is the resolved placement of a slide background: the
// pixel center and the affine matrix to apply to image-centered coordinates.
type BackgroundPlacement struct {
	CX     float64
	CY     float64
	Matrix Matrix2D
}

// SetTransform resolves a background transform against a canvas. The matrix
// operates on coordinates centered on the image's midpoint, so the image's
// visual center always lands exactly on (CX, CY) no matter the angle, shear,
// sign, or flip.
//
// SignX, SignY, and Flip collapse into the orientation of the linear part:
// flipping an already-negative axis is the identity. A zero-area canvas yields
// the sentinel placement (identity matrix, center at the origin) and never
// panics; callers should check canvas area before rendering.
func SetTransform(bg *document.Background, canvas document.Viewport) BackgroundPlacement {
	if bg == nil || canvas.Width <= 0 || canvas.Height <= 0 {
		return BackgroundPlacement{Matrix: Identity()}
	}

	cx := ToPixelCenter(bg.CXPercent, canvas.Width)
	cy := ToPixelCenter(bg.CYPercent, canvas.Height)

	scale := bg.Scale
	if scale <= 0 {
		scale = 1
		if s, err := FitScale(bg.NaturalWidth, bg.NaturalHeight, canvas.Width, canvas.Height, document.FitContain); err == nil {
			scale = s
		}
	}

	sx := scale * float64(normSign(bg.SignX))
	sy := scale * float64(normSign(bg.SignY))
	if bg.Flip {
		sx = -sx
	}

	m := Translate(cx, cy).
		Multiply(Rotate(bg.Angle)).
		Multiply(Shear(bg.ShearX, bg.ShearY)).
		Multiply(Scale(sx, sy))

	return BackgroundPlacement{CX: cx, CY: cy, Matrix: m}
}

// RescaleOnViewportChange returns the background adjusted for a new canvas.
// The percentage-addressed center is invariant by construction, so only the
// scale moves: backgrounds the user never scaled re-fit with contain against
// the new canvas, while an explicit user scale is kept as-is.
func RescaleOnViewportChange(oldCanvas, newCanvas document.Viewport, bg *document.Background) *document.Background {
	if bg == nil {
		return nil
	}
	out := *bg
	if !bg.UserScaled {
		if s, err := FitScale(bg.NaturalWidth, bg.NaturalHeight, newCanvas.Width, newCanvas.Height, document.FitContain); err == nil {
			out.Scale = s
		}
	}
	return &out
}

// LayerPlacement is a layer's concrete pixel position under a given canvas.
type LayerPlacement struct {
	Left       float64
	Top        float64
	FontSizePx float64
}

// MapLayerPixel normalizes a layer's stored position to pixels for the given
// canvas. Percentage-form layers land at the same fractional position for
// every aspect ratio; pixel-form layers recorded against a reference canvas
// rescale proportionally, with the font size following the smaller axis ratio
// so text never overflows its box. A zero-area canvas maps everything to the
// origin.
func MapLayerPixel(el document.Element, canvas document.Viewport) LayerPlacement {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return LayerPlacement{}
	}

	left := el.X
	top := el.Y
	fontScale := 1.0

	switch {
	case el.XPercent != nil || el.YPercent != nil:
		if el.XPercent != nil {
			left = ToPixelCenter(*el.XPercent, canvas.Width)
		}
		if el.YPercent != nil {
			top = ToPixelCenter(*el.YPercent, canvas.Height)
		}
	case el.RefWidth > 0 && el.RefHeight > 0:
		left = el.X * canvas.Width / el.RefWidth
		top = el.Y * canvas.Height / el.RefHeight
		fontScale = min(canvas.Width/el.RefWidth, canvas.Height/el.RefHeight)
	}

	return LayerPlacement{
		Left:       left,
		Top:        top,
		FontSizePx: styleFontSize(el.Style) * fontScale,
	}
}

func styleFontSize(style map[string]any) float64 {
	v, ok := style[document.StyleFontSize]
	if !ok {
		return defaultFontSize
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return defaultFontSize
	}
}

func normSign(s int) int {
	if s < 0 {
		return -1
	}
	return 1
}
