package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamde/AutoKorrektur/images"
	"github.com/xamde/AutoKorrektur/inference"
	"github.com/xamde/AutoKorrektur/masks"
	"github.com/xamde/AutoKorrektur/models/model"
	"github.com/xamde/AutoKorrektur/models/yolov8seg"
	"github.com/xamde/AutoKorrektur/util"
)

// stubEngine is an in-memory Engine test double. It records its inputs and
// answers with canned outputs, or echoes a named input tensor back.
type stubEngine struct {
	outputs    map[string]*inference.Tensor
	echoInput  string
	echoOutput string
	err        error
	calls      int
	lastInputs map[string]*inference.Tensor
}

func (s *stubEngine) Infer(_ context.Context, inputs map[string]*inference.Tensor) (map[string]*inference.Tensor, error) {
	s.calls++
	s.lastInputs = inputs
	if s.err != nil {
		return nil, s.err
	}
	if s.echoInput != "" {
		return map[string]*inference.Tensor{s.echoOutput: inputs[s.echoInput]}, nil
	}
	return s.outputs, nil
}

func (s *stubEngine) Close() error { return nil }

// detectionOutputs builds the detector's two canned output tensors carrying
// the given candidates. Prototypes are saturated so every candidate's mask
// covers its whole box.
func detectionOutputs(candidates ...[6]float32) map[string]*inference.Tensor {
	raw := make([]float32, yolov8seg.NumChannels*yolov8seg.NumCandidates)
	for column, c := range candidates {
		cx, cy, w, h, class, score := c[0], c[1], c[2], c[3], int(c[4]), c[5]
		raw[0*yolov8seg.NumCandidates+column] = cx
		raw[1*yolov8seg.NumCandidates+column] = cy
		raw[2*yolov8seg.NumCandidates+column] = w
		raw[3*yolov8seg.NumCandidates+column] = h
		raw[(yolov8seg.NumBoxValues+class)*yolov8seg.NumCandidates+column] = score
		for k := 0; k < yolov8seg.NumCoefficients; k++ {
			raw[(yolov8seg.NumBoxValues+yolov8seg.NumClasses+k)*yolov8seg.NumCandidates+column] = 1
		}
	}

	prototypes := make([]float32, yolov8seg.PrototypeChannels*yolov8seg.PrototypeSize*yolov8seg.PrototypeSize)
	for i := range prototypes {
		prototypes[i] = 1
	}

	return map[string]*inference.Tensor{
		model.DetectionOutputName: inference.NewFloat32Tensor(
			[]int64{1, yolov8seg.NumChannels, yolov8seg.NumCandidates}, raw),
		model.PrototypeOutputName: inference.NewFloat32Tensor(
			[]int64{1, yolov8seg.PrototypeChannels, yolov8seg.PrototypeSize, yolov8seg.PrototypeSize}, prototypes),
	}
}

// echoInpainter returns an engine that hands the image tensor back unchanged.
func echoInpainter() *stubEngine {
	return &stubEngine{echoInput: model.InpaintImageInputName, echoOutput: model.InpaintOutputName}
}

func testInput(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 130, B: 140, A: 255})
		}
	}
	return img
}

// TestNewValidatesEngines validates the constructor's engine requirements.
func TestNewValidatesEngines(t *testing.T) {
	_, err := New(Args{Inpainter: echoInpainter(), Config: DefaultConfig()})
	require.Error(t, err, "a missing detector must be rejected")

	_, err = New(Args{Detector: &stubEngine{}, Config: DefaultConfig()})
	require.Error(t, err, "a missing inpainter must be rejected")

	config := DefaultConfig()
	config.DelegateMask = true
	_, err = New(Args{Detector: &stubEngine{}, Inpainter: echoInpainter(), Config: config})
	require.Error(t, err, "mask delegation without a mask engine must be rejected")

	_, err = New(Args{Detector: &stubEngine{}, Inpainter: echoInpainter(), Config: DefaultConfig()})
	require.NoError(t, err)
}

// TestProcessRemovesDetectedVehicle validates the full sequence with one
// detected car: the mask marks the box region and the inpainted output comes
// back at working resolution.
func TestProcessRemovesDetectedVehicle(t *testing.T) {
	detector := &stubEngine{outputs: detectionOutputs([6]float32{320, 320, 200, 200, 2, 0.9})}
	inpainter := echoInpainter()

	p, err := New(Args{Detector: detector, Inpainter: inpainter, Config: DefaultConfig()})
	require.NoError(t, err)

	result, err := p.Process(context.Background(), testInput(64, 48))

	require.NoError(t, err)
	require.Len(t, result.Detections, 1, "the confident car should be kept")
	assert.Equal(t, 2, result.Detections[0].Class)
	require.Len(t, result.Boxes, 1)

	assert.EqualValues(t, masks.MaskRemove, result.Mask.GrayAt(320, 320).Y,
		"the detection's center should be marked for removal")
	assert.EqualValues(t, masks.MaskKeep, result.Mask.GrayAt(5, 5).Y,
		"background should be kept")

	require.NotNil(t, result.Output)
	assert.Equal(t, 64, result.Output.Bounds().Dx(), "output should be at working resolution")
	assert.Equal(t, 48, result.Output.Bounds().Dy())
	assert.Equal(t, 1, inpainter.calls, "the inpainter should run exactly once")

	// The inpainter's mask input follows the image's dimensions.
	maskInput := inpainter.lastInputs[model.InpaintMaskInputName]
	require.NotNil(t, maskInput)
	assert.Equal(t, []int64{1, 1, 48, 64}, maskInput.Shape)
}

// TestProcessSkipsInpaintingWithoutDetections validates the passthrough path:
// no kept detections means an untouched working image and an all-background
// mask, and the inpainting model is never invoked.
func TestProcessSkipsInpaintingWithoutDetections(t *testing.T) {
	detector := &stubEngine{outputs: detectionOutputs()}
	inpainter := echoInpainter()

	p, err := New(Args{Detector: detector, Inpainter: inpainter, Config: DefaultConfig()})
	require.NoError(t, err)

	result, err := p.Process(context.Background(), testInput(64, 48))

	require.NoError(t, err)
	assert.Empty(t, result.Detections)
	assert.Equal(t, 0, inpainter.calls, "inpainting should be skipped entirely")
	require.NotNil(t, result.Output)
	assert.Equal(t, 64, result.Output.Bounds().Dx())
	for _, pix := range result.Mask.Pix {
		require.EqualValues(t, masks.MaskKeep, pix)
	}
}

// TestProcessNonTargetClassIsIgnored validates that confident detections of
// non-vehicle classes do not trigger removal.
func TestProcessNonTargetClassIsIgnored(t *testing.T) {
	// Class 0 is person.
	detector := &stubEngine{outputs: detectionOutputs([6]float32{320, 320, 200, 200, 0, 0.95})}
	inpainter := echoInpainter()

	p, err := New(Args{Detector: detector, Inpainter: inpainter, Config: DefaultConfig()})
	require.NoError(t, err)

	result, err := p.Process(context.Background(), testInput(64, 48))

	require.NoError(t, err)
	assert.Empty(t, result.Detections, "a person should never be removed")
	assert.Equal(t, 0, inpainter.calls)
}

// TestProcessMissingPrototypesFailsLoudly validates that an absent prototype
// output aborts the image instead of degrading the mask.
func TestProcessMissingPrototypesFailsLoudly(t *testing.T) {
	outputs := detectionOutputs([6]float32{320, 320, 200, 200, 2, 0.9})
	delete(outputs, model.PrototypeOutputName)
	detector := &stubEngine{outputs: outputs}

	p, err := New(Args{Detector: detector, Inpainter: echoInpainter(), Config: DefaultConfig()})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), testInput(64, 48))

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrModelContract),
		"missing prototypes should classify as a model contract violation")
}

// TestProcessDetectorFailurePropagates validates that an engine failure
// surfaces to the caller.
func TestProcessDetectorFailurePropagates(t *testing.T) {
	detector := &stubEngine{err: errors.Wrap(model.ErrInference, "session exploded")}

	p, err := New(Args{Detector: detector, Inpainter: echoInpainter(), Config: DefaultConfig()})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), testInput(64, 48))

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInference))
}

// encodePNG renders a decodable file record for batch tests.
func encodePNG(t *testing.T, path string, width, height int) util.ImageFile {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testInput(width, height)))
	return util.ImageFile{
		Path: path,
		Image: images.Image{
			Format: images.FormatPNG,
			Data:   buf.Bytes(),
			Width:  width,
			Height: height,
		},
	}
}

// TestProcessBatchIsolatesFailures validates that one broken file does not
// abort the rest of the batch.
func TestProcessBatchIsolatesFailures(t *testing.T) {
	detector := &stubEngine{outputs: detectionOutputs()}
	p, err := New(Args{Detector: detector, Inpainter: echoInpainter(), Config: DefaultConfig()})
	require.NoError(t, err)

	broken := util.ImageFile{
		Path:  "broken.png",
		Image: images.Image{Format: images.FormatPNG, Data: []byte("not a png")},
	}
	files := []util.ImageFile{broken, encodePNG(t, "good.png", 64, 48)}

	results := p.ProcessBatch(context.Background(), files)

	require.Len(t, results, 2, "every file should get an entry")
	assert.Equal(t, "broken.png", results[0].Path)
	assert.Error(t, results[0].Err, "the broken file should record its failure")
	assert.Nil(t, results[0].Result)
	assert.Equal(t, "good.png", results[1].Path)
	assert.NoError(t, results[1].Err, "the good file should still process")
	require.NotNil(t, results[1].Result)
}

// TestProcessBatchHonorsCancellation validates that a cancelled context stops
// issuing work while still producing one entry per file.
func TestProcessBatchHonorsCancellation(t *testing.T) {
	detector := &stubEngine{outputs: detectionOutputs()}
	p, err := New(Args{Detector: detector, Inpainter: echoInpainter(), Config: DefaultConfig()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []util.ImageFile{encodePNG(t, "a.png", 32, 32), encodePNG(t, "b.png", 32, 32)}
	results := p.ProcessBatch(ctx, files)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Equal(t, 0, detector.calls, "no engine work after cancellation")
}

// TestProcessAlignsMaskWithWorkingImage validates the removal geometry for a
// letterboxed input: with a 640x320 image the model square carries 320 rows
// of padding, and the mask handed to the inpainter must cover the vehicle at
// its working-space location, not a padding-compressed one.
func TestProcessAlignsMaskWithWorkingImage(t *testing.T) {
	// Box (270,110)-(370,210) in model space; for this geometry the content
	// region maps one-to-one onto the working image.
	detector := &stubEngine{outputs: detectionOutputs([6]float32{320, 160, 100, 100, 2, 0.9})}
	inpainter := echoInpainter()

	config := DefaultConfig()
	config.UpscaleFactor = 1.0
	config.DownshiftFraction = 0

	p, err := New(Args{Detector: detector, Inpainter: inpainter, Config: config})
	require.NoError(t, err)

	result, err := p.Process(context.Background(), testInput(640, 320))

	require.NoError(t, err)
	require.Len(t, result.Detections, 1)

	maskInput := inpainter.lastInputs[model.InpaintMaskInputName]
	require.NotNil(t, maskInput)
	assert.Equal(t, []int64{1, 1, 320, 640}, maskInput.Shape,
		"the mask input should match the working image, not the model square")

	at := func(x, y int) uint8 { return maskInput.Bytes[y*640+x] }
	assert.EqualValues(t, masks.MaskRemove, at(320, 160), "the vehicle's center must be marked for removal")
	assert.EqualValues(t, masks.MaskRemove, at(275, 115), "the vehicle's corner must be marked for removal")
	assert.EqualValues(t, masks.MaskKeep, at(320, 40), "rows above the vehicle stay background")
	assert.EqualValues(t, masks.MaskKeep, at(320, 280), "rows below the vehicle stay background")
	assert.EqualValues(t, masks.MaskKeep, at(50, 160), "columns beside the vehicle stay background")

	require.NotNil(t, result.Output)
	assert.Equal(t, 640, result.Output.Bounds().Dx())
	assert.Equal(t, 320, result.Output.Bounds().Dy())
}
