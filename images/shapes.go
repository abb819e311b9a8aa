// Package images - Image processing utilities
package images

// Rect is a lightweight axis-aligned bounding box in corner form.
type Rect struct {
	// X2,Y2 are exclusive (like image.Rectangle).
	X1, Y1, X2, Y2 float32
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() float32 { return r.X2 - r.X1 }

// Height returns the vertical extent of the box.
func (r Rect) Height() float32 { return r.Y2 - r.Y1 }

// Area returns the area of the box, or zero for degenerate boxes.
func (r Rect) Area() float32 {
	w := r.Width()
	h := r.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// CalculateIoU computes the Intersection over Union of two boxes.
//
// IoU = Area of Intersection / Area of Union, a value in [0, 1] that measures
// how much the boxes overlap: 1.0 for identical boxes, 0.0 for disjoint ones.
// It drives Non-Maximum Suppression, where near-duplicate detections of the
// same object are discarded in favor of the highest-scoring one.
//
// Arguments:
//   - r: The first rectangle.
//   - o: The other rectangle to compare against.
//
// Returns:
//   - float32: The IoU score. Degenerate (zero-area) boxes yield 0.
func CalculateIoU(r, o Rect) float32 {
	// Intersection corners: the overlap cannot start before both boxes have
	// begun, and ends as soon as the first one ends.
	ix1 := max32(r.X1, o.X1)
	iy1 := max32(r.Y1, o.Y1)
	ix2 := min32(r.X2, o.X2)
	iy2 := min32(r.Y2, o.Y2)

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	intersection := iw * ih

	// Inclusion-exclusion: union = areaR + areaO - intersection.
	union := r.Area() + o.Area() - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

// ClampBox clamps a box into the square [0, maxSize) region. X1/Y1 are raised
// to at least zero and X2/Y2 lowered so the box never exceeds maxSize on
// either axis. This is the single overflow guard applied everywhere a box
// might exceed the model input bounds.
//
// Arguments:
//   - r: The box to clamp.
//   - maxSize: The exclusive upper bound for both axes.
//
// Returns:
//   - Rect: The clamped box.
func ClampBox(r Rect, maxSize float32) Rect {
	if r.X1 < 0 {
		r.X1 = 0
	}
	if r.Y1 < 0 {
		r.Y1 = 0
	}
	if r.X2 > maxSize {
		r.X2 = maxSize
	}
	if r.Y2 > maxSize {
		r.Y2 = maxSize
	}
	if r.X2 < r.X1 {
		r.X2 = r.X1
	}
	if r.Y2 < r.Y1 {
		r.Y2 = r.Y1
	}
	return r
}

// EnlargeBox grows (or shrinks) a box about its own center by the given
// factor. The new width and height are the old ones multiplied by factor and
// the box is re-centered, widening removal coverage beyond the tight
// detection box.
//
// Arguments:
//   - r: The box to enlarge.
//   - factor: The scale factor applied to both dimensions.
//
// Returns:
//   - Rect: The enlarged box.
func EnlargeBox(r Rect, factor float32) Rect {
	if factor == 1 {
		return r
	}
	cx := (r.X1 + r.X2) / 2
	cy := (r.Y1 + r.Y2) / 2
	hw := r.Width() * factor / 2
	hh := r.Height() * factor / 2
	return Rect{X1: cx - hw, Y1: cy - hh, X2: cx + hw, Y2: cy + hh}
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
