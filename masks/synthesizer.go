// Package masks - Segmentation mask synthesis from prototype masks.
//
// A detection's mask is a weighted combination of the model's 32 learned
// prototype masks, selected by the detection's coefficient vector. The
// synthesizer folds every accepted detection into a single binary overlay:
// 0 marks pixels to remove, 255 marks background to keep.
package masks

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/xamde/AutoKorrektur/images"
	"github.com/xamde/AutoKorrektur/models/model"
	"github.com/xamde/AutoKorrektur/models/postprocess"
	"github.com/xamde/AutoKorrektur/models/yolov8seg"
)

const (
	// MaskRemove is the overlay value for pixels to be inpainted away.
	MaskRemove = 0
	// MaskKeep is the overlay value for background pixels.
	MaskKeep = 255
	// binarizeThreshold is the probability above which a pixel belongs to
	// the detection's mask.
	binarizeThreshold = 0.5
)

// Config defines the tunable mask synthesis parameters.
type Config struct {
	// UpscaleFactor enlarges each detection's source box about its center
	// before mask placement, widening removal coverage beyond the tight
	// detection box. 1.0 leaves boxes unchanged.
	UpscaleFactor float32 `json:"upscaleFactor" yaml:"upscaleFactor"`
	// DownshiftFraction shifts the finished overlay down by this fraction
	// of its height, compensating for masks that undershoot a vehicle's
	// ground contact patch. Zero is the identity.
	DownshiftFraction float32 `json:"downshiftFraction" yaml:"downshiftFraction"`
}

// DefaultConfig returns the calibrated synthesis parameters.
func DefaultConfig() Config {
	return Config{UpscaleFactor: 1.2, DownshiftFraction: 0.025}
}

// Synthesizer combines prototype masks and per-detection coefficients into a
// single binary segmentation mask at model resolution.
type Synthesizer struct {
	config    Config
	modelSize int
}

// NewSynthesizer creates a synthesizer for the given model resolution.
//
// Arguments:
//   - config: The synthesis parameters.
//   - modelSize: The square model input resolution the mask is sized to.
//
// Returns:
//   - *Synthesizer: The configured synthesizer.
func NewSynthesizer(config Config, modelSize int) *Synthesizer {
	if config.UpscaleFactor <= 0 {
		config.UpscaleFactor = 1
	}
	if modelSize <= 0 {
		modelSize = yolov8seg.InputSize
	}
	return &Synthesizer{config: config, modelSize: modelSize}
}

// Synthesize builds the binary removal mask for the kept detections.
//
// Per detection: the 32 prototype grids are combined by a 1x32 by 32x25600
// matrix product weighted with the detection's coefficients, squashed through
// the logistic sigmoid, cropped to the (upscale-enlarged) detection box
// mapped into prototype space, resized to the box's extent at model
// resolution, binarized at 0.5, and unioned into the overlay. The overlay
// starts all background and a pixel is forced to MaskRemove if any detection
// claims it. Missing or malformed prototype data fails loudly; it is never
// silently downgraded to a rectangular mask, which would hide upstream model
// defects.
//
// Arguments:
//   - prototypes: The flat [1,32,160,160] prototype tensor data.
//   - detections: The detections kept after suppression.
//
// Returns:
//   - *image.Gray: The overlay, every pixel exactly 0 or 255. All 255 when
//     no detections are given.
//   - error: model.ErrModelContract for absent or malformed prototype data
//     or a wrong-length coefficient vector.
func (s *Synthesizer) Synthesize(prototypes []float32, detections []postprocess.Result) (*image.Gray, error) {
	if err := yolov8seg.ValidatePrototypes(prototypes); err != nil {
		return nil, err
	}

	overlay := NewOverlay(s.modelSize, s.modelSize)
	if len(detections) == 0 {
		return overlay, nil
	}

	protoArea := yolov8seg.PrototypeSize * yolov8seg.PrototypeSize
	protoMat := tensor.New(
		tensor.WithShape(yolov8seg.PrototypeChannels, protoArea),
		tensor.WithBacking(prototypes),
	)

	for _, detection := range detections {
		if len(detection.MaskCoefficients) != yolov8seg.NumCoefficients {
			return nil, errors.Wrapf(model.ErrModelContract,
				"detection at row %d has %d mask coefficients, want %d",
				detection.Row, len(detection.MaskCoefficients), yolov8seg.NumCoefficients)
		}

		grid, err := combinePrototypes(protoMat, detection.MaskCoefficients)
		if err != nil {
			return nil, err
		}

		s.unionDetection(overlay, grid, detection.Box)
	}

	if s.config.DownshiftFraction > 0 {
		Downshift(overlay, s.config.DownshiftFraction)
	}

	return overlay, nil
}

// combinePrototypes computes sigmoid(coefficients x prototypes) as a flat
// 160x160 probability grid.
func combinePrototypes(protoMat *tensor.Dense, coefficients []float32) ([]float32, error) {
	coefMat := tensor.New(
		tensor.WithShape(1, yolov8seg.NumCoefficients),
		tensor.WithBacking(coefficients),
	)
	product, err := coefMat.MatMul(protoMat)
	if err != nil {
		return nil, errors.Wrap(err, "combining prototype masks")
	}

	grid := product.Data().([]float32)
	for i, v := range grid {
		grid[i] = sigmoid(v)
	}
	return grid, nil
}

// unionDetection crops the probability grid to the detection's enlarged box,
// scales it to model resolution, and marks removal pixels in the overlay.
func (s *Synthesizer) unionDetection(overlay *image.Gray, grid []float32, box images.Rect) {
	maxSize := float32(s.modelSize)
	placed := images.ClampBox(images.EnlargeBox(box, s.config.UpscaleFactor), maxSize)

	// Target region in model space, at least one pixel.
	tx0 := int(placed.X1)
	ty0 := int(placed.Y1)
	tx1 := int(math32.Ceil(placed.X2))
	ty1 := int(math32.Ceil(placed.Y2))
	if tx1 > s.modelSize {
		tx1 = s.modelSize
	}
	if ty1 > s.modelSize {
		ty1 = s.modelSize
	}
	if tx1 <= tx0 || ty1 <= ty0 {
		return
	}

	// The same region in prototype grid space.
	scale := float32(yolov8seg.PrototypeSize) / maxSize
	gx0 := int(placed.X1 * scale)
	gy0 := int(placed.Y1 * scale)
	gx1 := int(math32.Ceil(placed.X2 * scale))
	gy1 := int(math32.Ceil(placed.Y2 * scale))

	crop, cw, ch := images.CropGrid(grid,
		yolov8seg.PrototypeSize, yolov8seg.PrototypeSize, gx0, gy0, gx1, gy1)
	resized := images.ResampleGrid(crop, cw, ch, tx1-tx0, ty1-ty0)

	tw := tx1 - tx0
	for y := ty0; y < ty1; y++ {
		rowOffset := (y - ty0) * tw
		for x := tx0; x < tx1; x++ {
			if resized[rowOffset+(x-tx0)] > binarizeThreshold {
				overlay.SetGray(x, y, color.Gray{Y: MaskRemove})
			}
		}
	}
}

// NewOverlay allocates an all-background mask.
//
// Arguments:
//   - width, height: The overlay dimensions.
//
// Returns:
//   - *image.Gray: A mask with every pixel set to MaskKeep.
func NewOverlay(width, height int) *image.Gray {
	overlay := image.NewGray(image.Rect(0, 0, width, height))
	for i := range overlay.Pix {
		overlay.Pix[i] = MaskKeep
	}
	return overlay
}

// Downshift translates the overlay down by round(height*fraction) rows in
// place. The bottom-most rows are discarded and the newly exposed top rows
// are filled with background. A zero fraction leaves the mask byte-for-byte
// identical.
//
// Arguments:
//   - overlay: The mask to shift.
//   - fraction: The fraction of the height to shift by.
func Downshift(overlay *image.Gray, fraction float32) {
	if fraction <= 0 {
		return
	}
	height := overlay.Rect.Dy()
	shift := int(math32.Round(float32(height) * fraction))
	if shift <= 0 {
		return
	}
	if shift > height {
		shift = height
	}

	stride := overlay.Stride
	for y := height - 1; y >= shift; y-- {
		copy(overlay.Pix[y*stride:y*stride+stride], overlay.Pix[(y-shift)*stride:(y-shift)*stride+stride])
	}
	for y := 0; y < shift; y++ {
		row := overlay.Pix[y*stride : y*stride+stride]
		for i := range row {
			row[i] = MaskKeep
		}
	}
}

// CropToContent cuts a model-resolution overlay down to the region covered by
// actual image content, discarding the letterbox padding bands on the right
// and bottom. The content sub-rectangle divides out the transform's ratios,
// the same correction applied to reported boxes, so the result pairs
// dimensionally with the working image the transform was computed for.
//
// Arguments:
//   - overlay: The mask at model resolution.
//   - transform: The letterbox geometry the masked image was preprocessed
//     with.
//
// Returns:
//   - *image.Gray: The content region, or the overlay itself when no padding
//     was applied.
func CropToContent(overlay *image.Gray, transform images.LetterboxTransform) *image.Gray {
	if transform.XRatio <= 0 || transform.YRatio <= 0 {
		return overlay
	}
	width := overlay.Rect.Dx()
	height := overlay.Rect.Dy()
	contentW := int(math32.Round(float32(width) / transform.XRatio))
	contentH := int(math32.Round(float32(height) / transform.YRatio))
	if contentW < 1 {
		contentW = 1
	}
	if contentH < 1 {
		contentH = 1
	}
	if contentW > width {
		contentW = width
	}
	if contentH > height {
		contentH = height
	}
	if contentW == width && contentH == height {
		return overlay
	}

	cropped := image.NewGray(image.Rect(0, 0, contentW, contentH))
	for y := 0; y < contentH; y++ {
		copy(cropped.Pix[y*cropped.Stride:y*cropped.Stride+contentW],
			overlay.Pix[y*overlay.Stride:y*overlay.Stride+contentW])
	}
	return cropped
}

// sigmoid is the logistic function in float32.
func sigmoid(v float32) float32 {
	return 1 / (1 + math32.Exp(-v))
}
