package document

// NewSampleDocument builds the invitation shown in the anonymous playground:
// two slides, a background image with a non-trivial transform, and a few text
// layers so every editing surface has something to grab.
func NewSampleDocument() *Document {
	fifty := 50.0

	return &Document{
		Slides: []Slide{
			{
				ID:   "slide_1",
				Name: "Cover",
				Background: &Background{
					Src:           "/assets/sample/floral.png",
					CXPercent:     50,
					CYPercent:     50,
					Scale:         1,
					SignX:         1,
					SignY:         1,
					NaturalWidth:  1600,
					NaturalHeight: 2400,
				},
				Elements: []Element{
					{
						ID:       "el_1",
						Type:     ElementText,
						X:        0,
						Y:        0,
						Width:    600,
						Height:   120,
						XPercent: &fifty,
						YPercent: &fifty,
						Content:  "You're invited!",
						Style: map[string]any{
							StyleColor:      "#6b2d5c",
							StyleFontFamily: "Georgia",
							StyleFontSize:   48.0,
							StyleFontWeight: "bold",
							StyleTextAlign:  "center",
						},
					},
				},
			},
			{
				ID:   "slide_2",
				Name: "Details",
				Elements: []Element{
					{
						ID:        "el_2",
						Type:      ElementText,
						X:         100,
						Y:         320,
						Width:     600,
						Height:    200,
						RefWidth:  800,
						RefHeight: 1200,
						Content:   "Saturday, June 14 · 6 PM\nThe Orchard House",
						Style:     DefaultStyle(),
					},
					{
						ID:            "el_3",
						Type:          ElementImage,
						X:             200,
						Y:             640,
						Width:         400,
						Height:        300,
						Src:           "/assets/sample/map.png",
						Fit:           FitCover,
						NaturalWidth:  1024,
						NaturalHeight: 768,
					},
				},
			},
		},
		Selected: Selection{SlideID: "slide_1"},
		Viewport: Viewport{Width: 800, Height: 1200, Scale: 1},
		UI:       UIFlags{SnapToGrid: true},
	}
}
