// Package postprocess - Postprocessing utilities for detection models.
package postprocess

import "github.com/xamde/AutoKorrektur/images"

// MaskCoefficientCount is the fixed length of the per-detection mask
// coefficient vector produced by the detection model.
const MaskCoefficientCount = 32

// Result represents a single decoded detection.
type Result struct {
	// The bounding box of the detection in model input space, corner form.
	Box images.Rect
	// The confidence score of the detection in [0, 1].
	Score float32
	// The predicted class index of the detection.
	Class int
	// The original candidate row the detection was decoded from. Used to
	// break score ties deterministically.
	Row int
	// The mask coefficients weighting the prototype masks for this
	// detection. Always exactly MaskCoefficientCount entries.
	MaskCoefficients []float32
}
