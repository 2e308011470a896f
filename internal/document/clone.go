package document

// Snapshot helpers. Documents are copy-on-write: a reducer step copies only
// the spine it touches and shares everything else with the previous snapshot.

// ShallowCopy returns a new Document sharing the slides slice.
func (d *Document) ShallowCopy() *Document {
	c := *d
	return &c
}

// CopySlides returns a fresh slice with the same slide values. Element slices
// inside each slide are still shared; replace them individually when edited.
func CopySlides(slides []Slide) []Slide {
	out := make([]Slide, len(slides))
	copy(out, slides)
	return out
}

// CopyElements returns a fresh element slice for one slide.
func CopyElements(elements []Element) []Element {
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}

// CloneStyle copies a style map so a merge never mutates a shared snapshot.
func CloneStyle(style map[string]any) map[string]any {
	if style == nil {
		return nil
	}
	out := make(map[string]any, len(style))
	for k, v := range style {
		out[k] = v
	}
	return out
}

// SlideIndex returns the position of a slide by id, or -1.
func (d *Document) SlideIndex(slideID string) int {
	for i := range d.Slides {
		if d.Slides[i].ID == slideID {
			return i
		}
	}
	return -1
}

// FindElement locates an element anywhere in the document and returns the
// slide index and element index, or (-1, -1).
func (d *Document) FindElement(elementID string) (int, int) {
	for si := range d.Slides {
		for ei := range d.Slides[si].Elements {
			if d.Slides[si].Elements[ei].ID == elementID {
				return si, ei
			}
		}
	}
	return -1, -1
}

// SelectedSlideIndex returns the index of the selected slide, falling back to
// the first slide when nothing is selected. Returns -1 on an empty deck.
func (d *Document) SelectedSlideIndex() int {
	if d.Selected.SlideID != "" {
		if i := d.SlideIndex(d.Selected.SlideID); i >= 0 {
			return i
		}
	}
	if len(d.Slides) > 0 {
		return 0
	}
	return -1
}
