// Package inference - Named tensors crossing the engine boundary.
package inference

import "github.com/pkg/errors"

// DataType identifies the element type of a Tensor.
type DataType int

const (
	// Float32 is a 32-bit floating point tensor.
	Float32 DataType = iota
	// Uint8 is an 8-bit unsigned integer tensor.
	Uint8
)

// Tensor is a dense tensor with explicit shape metadata, the unit of exchange
// with an inference engine. Exactly one of Floats or Bytes is populated,
// matching DType.
type Tensor struct {
	// Shape is the tensor's dimensions, e.g. [1,3,640,640].
	Shape []int64
	// DType is the element type.
	DType DataType
	// Floats holds the elements of a Float32 tensor in row-major order.
	Floats []float32
	// Bytes holds the elements of a Uint8 tensor in row-major order.
	Bytes []uint8
}

// NewFloat32Tensor wraps float32 data with its shape.
//
// Arguments:
//   - shape: The tensor dimensions.
//   - data: The row-major element data.
//
// Returns:
//   - *Tensor: The wrapped tensor.
func NewFloat32Tensor(shape []int64, data []float32) *Tensor {
	return &Tensor{Shape: shape, DType: Float32, Floats: data}
}

// NewUint8Tensor wraps uint8 data with its shape.
//
// Arguments:
//   - shape: The tensor dimensions.
//   - data: The row-major element data.
//
// Returns:
//   - *Tensor: The wrapped tensor.
func NewUint8Tensor(shape []int64, data []uint8) *Tensor {
	return &Tensor{Shape: shape, DType: Uint8, Bytes: data}
}

// Elems returns the number of elements implied by the shape.
func (t *Tensor) Elems() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Validate checks that the backing slice length matches the shape product.
//
// Returns:
//   - error: A description of the mismatch, or nil.
func (t *Tensor) Validate() error {
	want := t.Elems()
	switch t.DType {
	case Float32:
		if int64(len(t.Floats)) != want {
			return errors.Errorf("float32 tensor has %d elements, shape %v implies %d",
				len(t.Floats), t.Shape, want)
		}
	case Uint8:
		if int64(len(t.Bytes)) != want {
			return errors.Errorf("uint8 tensor has %d elements, shape %v implies %d",
				len(t.Bytes), t.Shape, want)
		}
	default:
		return errors.Errorf("unknown tensor data type %d", t.DType)
	}
	return nil
}
