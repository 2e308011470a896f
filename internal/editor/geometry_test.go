package editor

import (
	"errors"
	"math"
	"testing"

	"github.com/invitera/invitera/backend-go/internal/document"
)

const geomEps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < geomEps
}

func TestFitScale_Contain(t *testing.T) {
	s, err := FitScale(1600, 1200, 800, 600, document.FitContain)
	if err != nil {
		t.Fatalf("FitScale() error: %v", err)
	}
	if !almostEqual(s, 0.5) {
		t.Errorf("contain scale = %v, want 0.5", s)
	}

	// Wide canvas: contain follows the tighter axis.
	s, _ = FitScale(1000, 1000, 2000, 500, document.FitContain)
	if !almostEqual(s, 0.5) {
		t.Errorf("contain scale = %v, want 0.5", s)
	}
}

func TestFitScale_Cover(t *testing.T) {
	s, err := FitScale(1000, 1000, 2000, 500, document.FitCover)
	if err != nil {
		t.Fatalf("FitScale() error: %v", err)
	}
	if !almostEqual(s, 2.0) {
		t.Errorf("cover scale = %v, want 2.0", s)
	}
}

func TestFitScale_DegenerateCanvas(t *testing.T) {
	for _, dims := range [][4]float64{
		{0, 100, 100, 100},
		{100, -5, 100, 100},
		{100, 100, 0, 100},
		{100, 100, 100, 0},
	} {
		s, err := FitScale(dims[0], dims[1], dims[2], dims[3], document.FitContain)
		if !errors.Is(err, ErrDegenerateCanvas) {
			t.Errorf("FitScale(%v) error = %v, want ErrDegenerateCanvas", dims, err)
		}
		if s != 1 {
			t.Errorf("FitScale(%v) sentinel scale = %v, want 1", dims, s)
		}
	}
}

func TestPercentPixelRoundTrip(t *testing.T) {
	if got := ToPixelCenter(25, 800); !almostEqual(got, 200) {
		t.Errorf("ToPixelCenter(25, 800) = %v, want 200", got)
	}
	if got := ToPercentCenter(450, 600); !almostEqual(got, 75) {
		t.Errorf("ToPercentCenter(450, 600) = %v, want 75", got)
	}
	if got := ToPercentCenter(-30, 600); got != 0 {
		t.Errorf("negative pixel should clamp to 0, got %v", got)
	}
	if got := ToPercentCenter(900, 600); got != 100 {
		t.Errorf("overflow pixel should clamp to 100, got %v", got)
	}
	if got := ToPercentCenter(10, 0); got != 0 {
		t.Errorf("zero dimension should map to 0, got %v", got)
	}
}

func TestSetTransform_RotationPreservesCenter(t *testing.T) {
	canvas := document.Viewport{Width: 100, Height: 100, Scale: 1}
	bg := &document.Background{
		CXPercent: 50, CYPercent: 50,
		Scale: 1.3, SignX: 1, SignY: 1,
	}

	for _, angle := range []float64{0, math.Pi / 4, math.Pi / 2, math.Pi, 3 * math.Pi / 2} {
		bg.Angle = angle
		place := SetTransform(bg, canvas)
		gotX, gotY := place.Matrix.TransformPoint(0, 0)
		if !almostEqual(gotX, 50) || !almostEqual(gotY, 50) {
			t.Errorf("angle %v: center = (%v, %v), want (50, 50)", angle, gotX, gotY)
		}
	}
}

func TestSetTransform_CenterInvariantUnderShearSignFlip(t *testing.T) {
	canvas := document.Viewport{Width: 800, Height: 600, Scale: 1}
	bg := &document.Background{
		CXPercent: 25, CYPercent: 75,
		Scale: 2, Angle: 1.1, ShearX: 0.4, ShearY: -0.2,
		SignX: -1, SignY: 1, Flip: true,
	}

	place := SetTransform(bg, canvas)
	if !almostEqual(place.CX, 200) || !almostEqual(place.CY, 450) {
		t.Fatalf("pixel center = (%v, %v), want (200, 450)", place.CX, place.CY)
	}
	gotX, gotY := place.Matrix.TransformPoint(0, 0)
	if !almostEqual(gotX, 200) || !almostEqual(gotY, 450) {
		t.Errorf("matrix center = (%v, %v), want (200, 450)", gotX, gotY)
	}
}

func TestSetTransform_DoubleNegationIsIdentity(t *testing.T) {
	canvas := document.Viewport{Width: 100, Height: 100, Scale: 1}

	// signX = -1 combined with flip flips twice: the orientation must match
	// the plain positive transform.
	plain := SetTransform(&document.Background{
		CXPercent: 50, CYPercent: 50, Scale: 2, SignX: 1, SignY: 1,
	}, canvas)
	doubled := SetTransform(&document.Background{
		CXPercent: 50, CYPercent: 50, Scale: 2, SignX: -1, SignY: 1, Flip: true,
	}, canvas)

	if plain.Matrix != doubled.Matrix {
		t.Errorf("double negation matrix = %v, want %v", doubled.Matrix, plain.Matrix)
	}
	if plain.Matrix.Determinant() < 0 {
		t.Errorf("plain transform should preserve orientation, det = %v", plain.Matrix.Determinant())
	}
}

func TestSetTransform_ZeroCanvasSentinel(t *testing.T) {
	bg := &document.Background{CXPercent: 50, CYPercent: 50, Scale: 2, SignX: 1, SignY: 1}
	place := SetTransform(bg, document.Viewport{Width: 0, Height: 600})

	if !place.Matrix.IsIdentity() {
		t.Errorf("zero canvas matrix = %v, want identity", place.Matrix)
	}
	if place.CX != 0 || place.CY != 0 {
		t.Errorf("zero canvas center = (%v, %v), want origin", place.CX, place.CY)
	}
}

func TestRescaleOnViewportChange_KeepsPercentagesAndRefits(t *testing.T) {
	oldVP := document.Viewport{Width: 800, Height: 600, Scale: 1}
	newVP := document.Viewport{Width: 1600, Height: 600, Scale: 1}
	bg := &document.Background{
		CXPercent: 25, CYPercent: 75,
		NaturalWidth: 800, NaturalHeight: 600,
		Scale: 1, SignX: 1, SignY: 1,
	}

	out := RescaleOnViewportChange(oldVP, newVP, bg)

	if out.CXPercent != 25 || out.CYPercent != 75 {
		t.Errorf("percent center changed: (%v, %v)", out.CXPercent, out.CYPercent)
	}
	// contain against 1600x600 with a 800x600 natural image: height binds.
	if !almostEqual(out.Scale, 1.0) {
		t.Errorf("scale = %v, want 1.0", out.Scale)
	}

	place := SetTransform(out, newVP)
	if !almostEqual(place.CX, 400) || !almostEqual(place.CY, 450) {
		t.Errorf("pixel center = (%v, %v), want (400, 450)", place.CX, place.CY)
	}
}

func TestRescaleOnViewportChange_RespectsUserScale(t *testing.T) {
	oldVP := document.Viewport{Width: 800, Height: 600, Scale: 1}
	newVP := document.Viewport{Width: 400, Height: 300, Scale: 1}
	bg := &document.Background{
		CXPercent: 50, CYPercent: 50,
		NaturalWidth: 800, NaturalHeight: 600,
		Scale: 3.5, UserScaled: true, SignX: 1, SignY: 1,
	}

	out := RescaleOnViewportChange(oldVP, newVP, bg)
	if out.Scale != 3.5 {
		t.Errorf("user scale was overridden: %v", out.Scale)
	}
}

func TestMapLayerPixel_PercentFormAlignsAcrossRatios(t *testing.T) {
	px, py := 50.0, 50.0
	el := document.Element{
		ID: "el_1", Type: document.ElementText,
		Width: 100, Height: 40,
		XPercent: &px, YPercent: &py,
	}

	for _, vp := range []document.Viewport{
		{Width: 800, Height: 600, Scale: 1},
		{Width: 1600, Height: 600, Scale: 1},
		{Width: 320, Height: 1200, Scale: 2},
	} {
		place := MapLayerPixel(el, vp)
		if !almostEqual(place.Left, vp.Width/2) || !almostEqual(place.Top, vp.Height/2) {
			t.Errorf("viewport %vx%v: placed at (%v, %v), want center", vp.Width, vp.Height, place.Left, place.Top)
		}
	}
}

func TestMapLayerPixel_ReferenceWorkSize(t *testing.T) {
	el := document.Element{
		ID: "el_1", Type: document.ElementText,
		X: 100, Y: 300, Width: 200, Height: 80,
		RefWidth: 800, RefHeight: 1200,
		Style: map[string]any{document.StyleFontSize: 40.0},
	}

	place := MapLayerPixel(el, document.Viewport{Width: 1600, Height: 1200, Scale: 1})

	if !almostEqual(place.Left, 200) || !almostEqual(place.Top, 300) {
		t.Errorf("placed at (%v, %v), want (200, 300)", place.Left, place.Top)
	}
	// Font follows the smaller axis ratio: min(2, 1) = 1.
	if !almostEqual(place.FontSizePx, 40) {
		t.Errorf("fontSizePx = %v, want 40", place.FontSizePx)
	}
}

func TestMapLayerPixel_ZeroCanvas(t *testing.T) {
	el := document.Element{ID: "el_1", Type: document.ElementText, X: 10, Y: 10, Width: 5, Height: 5}
	place := MapLayerPixel(el, document.Viewport{Width: 0, Height: 0})
	if place != (LayerPlacement{}) {
		t.Errorf("zero canvas placement = %+v, want zero value", place)
	}
}
