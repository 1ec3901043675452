package tensor

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when tensor shapes are incompatible for
	// the requested operation
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrEmpty is returned when a tensor has a zero sized dimension
	ErrEmpty = errors.New("empty tensor")
)

// Tensor is a dense float32 tensor stored in row-major order.  Spatial maps
// use the NCHW layout (batch, channel, height, width) and per-point features
// use (batch, channel, points)
type Tensor struct {
	shape []int
	Data  []float32
}

// New returns a zero filled tensor of the given shape
func New(shape ...int) *Tensor {

	size := 1

	for _, d := range shape {
		size *= d
	}

	return &Tensor{
		shape: append([]int(nil), shape...),
		Data:  make([]float32, size),
	}
}

// FromData wraps the given buffer as a tensor of the given shape.  The buffer
// is not copied
func FromData(data []float32, shape ...int) (*Tensor, error) {

	size := 1

	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("%w: negative dimension in %v", ErrShapeMismatch, shape)
		}
		size *= d
	}

	if size != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d",
			ErrShapeMismatch, shape, size, len(data))
	}

	return &Tensor{
		shape: append([]int(nil), shape...),
		Data:  data,
	}, nil
}

// Shape returns a copy of the tensor dimensions
func (t *Tensor) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Rank returns the number of dimensions
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension i
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// Len returns the total number of elements
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Clone returns a deep copy of the tensor
func (t *Tensor) Clone() *Tensor {

	c := &Tensor{
		shape: append([]int(nil), t.shape...),
		Data:  make([]float32, len(t.Data)),
	}

	copy(c.Data, t.Data)

	return c
}

// Dims4 returns the NCHW dimensions of a spatial map
func (t *Tensor) Dims4() (b, c, h, w int, err error) {

	if len(t.shape) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("%w: expected 4-D NCHW tensor, got shape %v",
			ErrShapeMismatch, t.shape)
	}

	return t.shape[0], t.shape[1], t.shape[2], t.shape[3], nil
}

// Spatial validates the tensor is a non-empty NCHW spatial map and returns
// its dimensions
func (t *Tensor) Spatial() (b, c, h, w int, err error) {

	b, c, h, w, err = t.Dims4()

	if err != nil {
		return 0, 0, 0, 0, err
	}

	if b == 0 || c == 0 || h == 0 || w == 0 {
		return 0, 0, 0, 0, fmt.Errorf("%w: spatial map has shape %v", ErrEmpty, t.shape)
	}

	return b, c, h, w, nil
}

// At returns the value of a 4-D tensor at the given NCHW coordinate
func (t *Tensor) At(n, ch, y, x int) float32 {
	return t.Data[t.offset(n, ch, y, x)]
}

// Set assigns the value of a 4-D tensor at the given NCHW coordinate
func (t *Tensor) Set(n, ch, y, x int, v float32) {
	t.Data[t.offset(n, ch, y, x)] = v
}

// offset works out the flat buffer index of an NCHW coordinate
func (t *Tensor) offset(n, ch, y, x int) int {
	// index = ((n*C + ch)*H + y)*W + x
	return ((n*t.shape[1]+ch)*t.shape[2]+y)*t.shape[3] + x
}

// String returns the tensor shape formatted for printing
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}

// SameShape reports whether two tensors have identical dimensions
func SameShape(a, b *Tensor) bool {

	if len(a.shape) != len(b.shape) {
		return false
	}

	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}

	return true
}
