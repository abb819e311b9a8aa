// Package inpaint - Tensor marshaling for the generative inpainting model.
//
// The adapter converts an image+mask pair into the model's channel-first
// tensor layout and converts the model's output back into an image. Both
// directions honor the engine's declared element type: uint8 in [0,255] or
// float32 normalized to [0,1].
package inpaint

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"

	"github.com/xamde/AutoKorrektur/inference"
	"github.com/xamde/AutoKorrektur/models/model"
)

// Adapter marshals image and mask rasters across the inpainting model
// boundary.
type Adapter struct {
	dtype inference.DataType
}

// NewAdapter creates an adapter for the model's declared input element type.
//
// Arguments:
//   - dtype: inference.Uint8 or inference.Float32.
//
// Returns:
//   - *Adapter: The configured adapter.
func NewAdapter(dtype inference.DataType) *Adapter {
	return &Adapter{dtype: dtype}
}

// ToTensors converts the image and its finalized mask into the model's input
// tensors, shaped [1,3,H,W] and [1,1,H,W]. The mask is resampled to the
// image's dimensions with smooth interpolation and re-binarized, so the pair
// always shares identical dimensions and the mask stays strictly {0,255}.
//
// Arguments:
//   - img: The image to inpaint, at working resolution.
//   - mask: The finalized removal mask (0 = remove, 255 = keep).
//
// Returns:
//   - *inference.Tensor: The image tensor.
//   - *inference.Tensor: The mask tensor.
//   - error: model.ErrInvalidImage for nil or zero-sized inputs.
func (a *Adapter) ToTensors(img image.Image, mask *image.Gray) (*inference.Tensor, *inference.Tensor, error) {
	if img == nil || mask == nil {
		return nil, nil, errors.Wrap(model.ErrInvalidImage, "inpaint adapter requires image and mask")
	}
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	if width <= 0 || height <= 0 {
		return nil, nil, errors.Wrapf(model.ErrInvalidImage,
			"inpaint image has invalid dimensions %dx%d", width, height)
	}

	resized := resampleMask(mask, width, height)

	imageTensor := a.imageTensor(img, width, height)
	maskTensor := a.maskTensor(resized, width, height)
	return imageTensor, maskTensor, nil
}

// FromTensor converts the model's [1,3,H,W] output back into a channel-last
// image. Every value is clamped to [0,255] with floor/ceiling clamping, never
// wrapped.
//
// Arguments:
//   - t: The output tensor.
//
// Returns:
//   - image.Image: The reconstructed image.
//   - error: model.ErrModelContract on a wrong shape or element count.
func (a *Adapter) FromTensor(t *inference.Tensor) (image.Image, error) {
	if t == nil {
		return nil, errors.Wrap(model.ErrModelContract, "inpainting model returned no tensor")
	}
	if len(t.Shape) != 4 || t.Shape[0] != 1 || t.Shape[1] != 3 {
		return nil, errors.Wrapf(model.ErrModelContract,
			"inpainting output shape %v, want [1 3 H W]", t.Shape)
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrap(model.ErrModelContract, err.Error())
	}

	height := int(t.Shape[2])
	width := int(t.Shape[3])
	plane := width * height
	out := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			out.SetRGBA(x, y, color.RGBA{
				R: a.clampedValue(t, idx),
				G: a.clampedValue(t, plane+idx),
				B: a.clampedValue(t, 2*plane+idx),
				A: 255,
			})
		}
	}
	return out, nil
}

// clampedValue reads one output element as a byte, clamping to [0,255].
func (a *Adapter) clampedValue(t *inference.Tensor, idx int) uint8 {
	var v float32
	if t.DType == inference.Uint8 {
		return t.Bytes[idx]
	}
	v = t.Floats[idx]
	// Float outputs arrive in the input's convention: normalized when the
	// inputs were normalized.
	if a.dtype == inference.Float32 {
		v *= 255
	}
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// imageTensor marshals the image into [1,3,H,W] in the declared dtype.
func (a *Adapter) imageTensor(img image.Image, width, height int) *inference.Tensor {
	plane := width * height
	shape := []int64{1, 3, int64(height), int64(width)}
	bounds := img.Bounds()

	if a.dtype == inference.Uint8 {
		data := make([]uint8, 3*plane)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				idx := y*width + x
				data[idx] = uint8(r >> 8)
				data[plane+idx] = uint8(g >> 8)
				data[2*plane+idx] = uint8(b >> 8)
			}
		}
		return inference.NewUint8Tensor(shape, data)
	}

	data := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*width + x
			data[idx] = float32(r>>8) / 255.0
			data[plane+idx] = float32(g>>8) / 255.0
			data[2*plane+idx] = float32(b>>8) / 255.0
		}
	}
	return inference.NewFloat32Tensor(shape, data)
}

// maskTensor marshals the mask into [1,1,H,W] in the declared dtype.
func (a *Adapter) maskTensor(mask *image.Gray, width, height int) *inference.Tensor {
	shape := []int64{1, 1, int64(height), int64(width)}

	if a.dtype == inference.Uint8 {
		data := make([]uint8, width*height)
		for y := 0; y < height; y++ {
			copy(data[y*width:(y+1)*width], mask.Pix[y*mask.Stride:y*mask.Stride+width])
		}
		return inference.NewUint8Tensor(shape, data)
	}

	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			data[y*width+x] = float32(mask.Pix[y*mask.Stride+x]) / 255.0
		}
	}
	return inference.NewFloat32Tensor(shape, data)
}

// resampleMask resizes the mask to the target dimensions with smooth
// interpolation and re-binarizes the result so every pixel stays exactly 0
// or 255.
func resampleMask(mask *image.Gray, width, height int) *image.Gray {
	if mask.Bounds().Dx() == width && mask.Bounds().Dy() == height {
		return mask
	}
	resized := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)
	for i, v := range resized.Pix {
		if v >= 128 {
			resized.Pix[i] = 255
		} else {
			resized.Pix[i] = 0
		}
	}
	return resized
}
