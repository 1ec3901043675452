/*
Package predictor provides the point predictor used by the refinement head.
A point predictor maps the feature vector of every sampled point to class
logits with weights shared across points, which is equivalent to a 1x1
convolution over a (batch, channel, points) tensor.
*/
package predictor

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/swdee/go-pointrend/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Predictor maps per-point feature vectors to per-point class logits
type Predictor interface {
	// InChannels is the feature vector length expected per point
	InChannels() int
	// OutChannels is the number of logits produced per point
	OutChannels() int
	// Predict takes a (B, InChannels, N) tensor and returns a
	// (B, OutChannels, N) tensor
	Predict(features *tensor.Tensor) (*tensor.Tensor, error)
}

// Linear is a 1x1 convolution with weights of shape (out, in) and a bias per
// output channel
type Linear struct {
	weights *mat.Dense
	bias    []float64
}

// NewLinear returns a Linear layer from row-major (out, in) weights and an
// out length bias
func NewLinear(in, out int, weights, bias []float64) (*Linear, error) {

	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("%w: linear layer %d -> %d", tensor.ErrEmpty, in, out)
	}

	if len(weights) != in*out {
		return nil, fmt.Errorf("%w: expected %d weights, got %d",
			tensor.ErrShapeMismatch, in*out, len(weights))
	}

	if len(bias) != out {
		return nil, fmt.Errorf("%w: expected %d bias values, got %d",
			tensor.ErrShapeMismatch, out, len(bias))
	}

	w := make([]float64, len(weights))
	copy(w, weights)

	return &Linear{
		weights: mat.NewDense(out, in, w),
		bias:    append([]float64(nil), bias...),
	}, nil
}

// NewLinearFromTensors returns a Linear layer from exported 1x1 convolution
// parameters, a weight tensor of shape (out, in) or (out, in, 1) and a bias
// tensor of out values
func NewLinearFromTensors(weight, bias *tensor.Tensor) (*Linear, error) {

	shape := weight.Shape()

	if len(shape) == 3 && shape[2] == 1 {
		shape = shape[:2]
	}

	if len(shape) != 2 {
		return nil, fmt.Errorf("%w: expected (out, in) weights, got %v",
			tensor.ErrShapeMismatch, weight.Shape())
	}

	w := make([]float64, weight.Len())

	for i, v := range weight.Data {
		w[i] = float64(v)
	}

	b := make([]float64, bias.Len())

	for i, v := range bias.Data {
		b[i] = float64(v)
	}

	return NewLinear(shape[1], shape[0], w, b)
}

// NewLinearInit returns a Linear layer with weights and bias drawn uniformly
// from [-1/sqrt(in), 1/sqrt(in)], the default initialisation of a 1x1
// convolution
func NewLinearInit(in, out int, rng *rand.Rand) (*Linear, error) {

	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("%w: linear layer %d -> %d", tensor.ErrEmpty, in, out)
	}

	bound := 1 / math.Sqrt(float64(in))

	weights := make([]float64, in*out)

	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * bound
	}

	bias := make([]float64, out)

	for i := range bias {
		bias[i] = (rng.Float64()*2 - 1) * bound
	}

	return NewLinear(in, out, weights, bias)
}

// InChannels returns the input feature length
func (l *Linear) InChannels() int {
	_, c := l.weights.Dims()
	return c
}

// OutChannels returns the number of output logits
func (l *Linear) OutChannels() int {
	r, _ := l.weights.Dims()
	return r
}

// Predict applies the layer independently to every point
func (l *Linear) Predict(features *tensor.Tensor) (*tensor.Tensor, error) {

	b, n, err := checkFeatures(features, l.InChannels())

	if err != nil {
		return nil, err
	}

	in := l.InChannels()
	out := l.OutChannels()
	res := tensor.New(b, out, n)

	if n == 0 {
		return res, nil
	}

	src := make([]float64, in*n)
	var dst mat.Dense

	for bi := 0; bi < b; bi++ {

		for i, v := range features.Data[bi*in*n : (bi+1)*in*n] {
			src[i] = float64(v)
		}

		// (out, in) x (in, N) = (out, N)
		dst.Reset()
		dst.Mul(l.weights, mat.NewDense(in, n, src))

		for o := 0; o < out; o++ {
			row := dst.RawRowView(o)
			floats.AddConst(l.bias[o], row)

			base := (bi*out + o) * n

			for i, v := range row {
				res.Data[base+i] = float32(v)
			}
		}
	}

	return res, nil
}

// MLP chains Linear layers with a ReLU between consecutive layers.  The last
// layer produces raw logits
type MLP struct {
	layers []*Linear
}

// NewMLP returns an MLP of the given layers, each layer's input length must
// match the previous layer's output length
func NewMLP(layers ...*Linear) (*MLP, error) {

	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: mlp has no layers", tensor.ErrEmpty)
	}

	for i := 1; i < len(layers); i++ {
		if layers[i].InChannels() != layers[i-1].OutChannels() {
			return nil, fmt.Errorf("%w: layer %d expects %d channels, previous layer gives %d",
				tensor.ErrShapeMismatch, i, layers[i].InChannels(), layers[i-1].OutChannels())
		}
	}

	return &MLP{layers: layers}, nil
}

// NewMLPInit returns an MLP with randomly initialised layers of the given
// channel sizes, eg: sizes 533, 256, 21 gives two layers
func NewMLPInit(rng *rand.Rand, sizes ...int) (*MLP, error) {

	if len(sizes) < 2 {
		return nil, fmt.Errorf("%w: mlp needs at least 2 channel sizes", tensor.ErrEmpty)
	}

	layers := make([]*Linear, 0, len(sizes)-1)

	for i := 1; i < len(sizes); i++ {
		l, err := NewLinearInit(sizes[i-1], sizes[i], rng)

		if err != nil {
			return nil, err
		}

		layers = append(layers, l)
	}

	return NewMLP(layers...)
}

// InChannels returns the input feature length of the first layer
func (m *MLP) InChannels() int {
	return m.layers[0].InChannels()
}

// OutChannels returns the output length of the last layer
func (m *MLP) OutChannels() int {
	return m.layers[len(m.layers)-1].OutChannels()
}

// Predict runs every layer in turn
func (m *MLP) Predict(features *tensor.Tensor) (*tensor.Tensor, error) {

	x := features

	for i, l := range m.layers {
		y, err := l.Predict(x)

		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}

		if i < len(m.layers)-1 {
			relu(y.Data)
		}

		x = y
	}

	return x, nil
}

// relu clamps negative values to zero in place
func relu(v []float32) {
	for i := range v {
		if v[i] < 0 {
			v[i] = 0
		}
	}
}

// checkFeatures validates a (B, C, N) feature tensor against the expected
// channel count and returns B and N
func checkFeatures(features *tensor.Tensor, channels int) (b, n int, err error) {

	if features.Rank() != 3 {
		return 0, 0, fmt.Errorf("%w: expected (B, C, N) features, got %v",
			tensor.ErrShapeMismatch, features.Shape())
	}

	if features.Dim(1) != channels {
		return 0, 0, fmt.Errorf("%w: expected %d feature channels, got %d",
			tensor.ErrShapeMismatch, channels, features.Dim(1))
	}

	return features.Dim(0), features.Dim(2), nil
}
