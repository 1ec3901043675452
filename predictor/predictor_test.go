package predictor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-pointrend/tensor"
)

func TestLinearPredict(t *testing.T) {

	// 3 input channels -> 2 output channels
	l, err := NewLinear(3, 2, []float64{
		1, 0, -1,
		0.5, 2, 0,
	}, []float64{0.5, -1})
	require.NoError(t, err)

	assert.Equal(t, 3, l.InChannels())
	assert.Equal(t, 2, l.OutChannels())

	// batch of 2 with 2 points each, laid out (B, C, N)
	features, err := tensor.FromData([]float32{
		// batch 0
		1, 2,
		3, 4,
		5, 6,
		// batch 1
		0, 1,
		0, 1,
		0, 1,
	}, 2, 3, 2)
	require.NoError(t, err)

	out, err := l.Predict(features)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 2}, out.Shape())

	expected := []float32{
		// batch 0: ch0 = x0 - x2 + 0.5, ch1 = 0.5*x0 + 2*x1 - 1
		-3.5, -3.5,
		5.5, 8,
		// batch 1
		0.5, 0.5,
		-1, 1.5,
	}

	assert.InDeltaSlice(t, expected, out.Data, 1e-6)
}

func TestLinearRejectsBadShapes(t *testing.T) {

	_, err := NewLinear(3, 2, make([]float64, 5), make([]float64, 2))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = NewLinear(3, 2, make([]float64, 6), make([]float64, 3))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = NewLinear(0, 2, nil, make([]float64, 2))
	assert.ErrorIs(t, err, tensor.ErrEmpty)

	l, err := NewLinear(3, 2, make([]float64, 6), make([]float64, 2))
	require.NoError(t, err)

	_, err = l.Predict(tensor.New(1, 4, 5))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = l.Predict(tensor.New(1, 3, 5, 1))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestLinearInitBounds(t *testing.T) {

	l, err := NewLinearInit(533, 21, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Equal(t, 533, l.InChannels())
	assert.Equal(t, 21, l.OutChannels())

	bound := 1 / 23.08679
	r, c := l.weights.Dims()

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.LessOrEqual(t, l.weights.At(i, j), bound)
			assert.GreaterOrEqual(t, l.weights.At(i, j), -bound)
		}
	}
}

func TestMLPAppliesReLUBetweenLayers(t *testing.T) {

	// first layer negates, second layer sums.  relu zeroes the negated
	// positive input
	first, err := NewLinear(1, 1, []float64{-1}, []float64{0})
	require.NoError(t, err)

	second, err := NewLinear(1, 1, []float64{1}, []float64{1})
	require.NoError(t, err)

	m, err := NewMLP(first, second)
	require.NoError(t, err)

	features, _ := tensor.FromData([]float32{2, -3}, 1, 1, 2)

	out, err := m.Predict(features)
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 4}, out.Data)
}

func TestMLPChecksLayerChain(t *testing.T) {

	rng := rand.New(rand.NewSource(1))

	a, _ := NewLinearInit(4, 3, rng)
	b, _ := NewLinearInit(2, 1, rng)

	_, err := NewMLP(a, b)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	m, err := NewMLPInit(rng, 533, 256, 21)
	require.NoError(t, err)

	assert.Equal(t, 533, m.InChannels())
	assert.Equal(t, 21, m.OutChannels())

	out, err := m.Predict(tensor.New(2, 533, 7))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 21, 7}, out.Shape())
}

func TestNewLinearFromTensors(t *testing.T) {

	// conv1d style (out, in, 1) weights
	weight, _ := tensor.FromData([]float32{1, 2, 3, 4, 5, 6}, 2, 3, 1)
	bias, _ := tensor.FromData([]float32{0.5, -0.5}, 2)

	l, err := NewLinearFromTensors(weight, bias)
	require.NoError(t, err)

	assert.Equal(t, 3, l.InChannels())
	assert.Equal(t, 2, l.OutChannels())
	assert.Equal(t, 6.0, l.weights.At(1, 2))

	_, err = NewLinearFromTensors(tensor.New(2, 3, 2), bias)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)

	_, err = NewLinearFromTensors(weight, tensor.New(3))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}
