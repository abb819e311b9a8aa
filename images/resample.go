// Package images - Resampling for single-channel float grids.
package images

// ResampleGrid resizes a single-channel float32 grid to the requested
// dimensions using bilinear interpolation. It is used to scale probability
// mask crops from prototype resolution up to model resolution, where a full
// separable-kernel resampler would be overkill for smooth probability fields.
//
// Arguments:
//   - src: The source grid in row-major order, len == srcW*srcH.
//   - srcW, srcH: The source dimensions.
//   - dstW, dstH: The destination dimensions.
//
// Returns:
//   - []float32: A newly allocated grid of len dstW*dstH.
func ResampleGrid(src []float32, srcW, srcH, dstW, dstH int) []float32 {
	dst := make([]float32, dstW*dstH)
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return dst
	}

	// Identity fast path.
	if srcW == dstW && srcH == dstH {
		copy(dst, src)
		return dst
	}

	xScale := float64(srcW) / float64(dstW)
	yScale := float64(srcH) / float64(dstH)

	for dy := 0; dy < dstH; dy++ {
		// Sample at pixel centers to keep the grid alignment symmetric.
		sy := (float64(dy)+0.5)*yScale - 0.5
		y0 := int(sy)
		if sy < 0 {
			sy = 0
			y0 = 0
		}
		y1 := y0 + 1
		if y1 >= srcH {
			y1 = srcH - 1
		}
		fy := float32(sy - float64(y0))

		for dx := 0; dx < dstW; dx++ {
			sx := (float64(dx)+0.5)*xScale - 0.5
			x0 := int(sx)
			if sx < 0 {
				sx = 0
				x0 = 0
			}
			x1 := x0 + 1
			if x1 >= srcW {
				x1 = srcW - 1
			}
			fx := float32(sx - float64(x0))

			top := src[y0*srcW+x0]*(1-fx) + src[y0*srcW+x1]*fx
			bottom := src[y1*srcW+x0]*(1-fx) + src[y1*srcW+x1]*fx
			dst[dy*dstW+dx] = top*(1-fy) + bottom*fy
		}
	}

	return dst
}

// CropGrid extracts the rectangle [x0,x1)x[y0,y1) from a row-major grid.
// Coordinates are clamped to the grid and the crop is never smaller than 1x1.
//
// Arguments:
//   - src: The source grid, len == w*h.
//   - w, h: The source dimensions.
//   - x0, y0, x1, y1: The crop rectangle.
//
// Returns:
//   - []float32: The cropped grid.
//   - int: The crop width.
//   - int: The crop height.
func CropGrid(src []float32, w, h, x0, y0, x1, y1 int) ([]float32, int, int) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > w {
		x1 = w
	}
	if y1 > h {
		y1 = h
	}
	if x1 <= x0 {
		x1 = x0 + 1
		if x1 > w {
			x0, x1 = w-1, w
		}
	}
	if y1 <= y0 {
		y1 = y0 + 1
		if y1 > h {
			y0, y1 = h-1, h
		}
	}

	cw := x1 - x0
	ch := y1 - y0
	out := make([]float32, cw*ch)
	for y := 0; y < ch; y++ {
		copy(out[y*cw:(y+1)*cw], src[(y0+y)*w+x0:(y0+y)*w+x1])
	}
	return out, cw, ch
}
