// Package yolov8seg - Decoding for the YOLOv8 segmentation detection model.
//
// The model contract is fixed by the upstream export: a square 640x640 RGB
// input and two outputs, the candidate tensor [1,116,8400] (4 box values, 80
// class scores, 32 mask coefficients per candidate column) and the prototype
// mask tensor [1,32,160,160].
package yolov8seg

// Contract constants fixed by the upstream model export.
const (
	// InputSize is the square model input resolution.
	InputSize = 640
	// NumCandidates is the number of candidate columns in the output tensor.
	NumCandidates = 8400
	// NumClasses is the number of class scores per candidate.
	NumClasses = 80
	// NumBoxValues is the number of box values (cx, cy, w, h) per candidate.
	NumBoxValues = 4
	// NumCoefficients is the number of mask coefficients per candidate.
	NumCoefficients = 32
	// NumChannels is the total channel count per candidate column.
	NumChannels = NumBoxValues + NumClasses + NumCoefficients
	// PrototypeChannels is the number of prototype masks.
	PrototypeChannels = 32
	// PrototypeSize is the square prototype mask resolution.
	PrototypeSize = 160
)

// outputView is a typed view over the flat [116,8400] output buffer. Indexing
// through explicit shape metadata instead of nested slices keeps the channel
// and candidate strides in one place.
type outputView struct {
	data       []float32
	channels   int
	candidates int
}

// at returns the value for the given channel and candidate column.
func (v outputView) at(channel, candidate int) float32 {
	return v.data[channel*v.candidates+candidate]
}
