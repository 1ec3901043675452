package tensor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomMap returns an NCHW tensor filled with reproducible random values
func randomMap(seed int64, shape ...int) *Tensor {

	rng := rand.New(rand.NewSource(seed))
	t := New(shape...)

	for i := range t.Data {
		t.Data[i] = rng.Float32()*4 - 2
	}

	return t
}

func TestFromDataValidatesSize(t *testing.T) {

	_, err := FromData(make([]float32, 5), 1, 2, 3)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	tt, err := FromData(make([]float32, 6), 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, tt.Shape())
}

func TestSpatialRejectsEmptyAndWrongRank(t *testing.T) {

	tests := []struct {
		shape []int
		err   error
	}{
		{[]int{1, 2, 3}, ErrShapeMismatch},
		{[]int{1, 2, 0, 4}, ErrEmpty},
		{[]int{1, 2, 4, 0}, ErrEmpty},
		{[]int{0, 2, 4, 4}, ErrEmpty},
		{[]int{1, 2, 4, 4}, nil},
	}

	for _, tc := range tests {
		_, _, _, _, err := New(tc.shape...).Spatial()

		if tc.err == nil {
			assert.NoError(t, err, "shape %v", tc.shape)
		} else {
			assert.ErrorIs(t, err, tc.err, "shape %v", tc.shape)
		}
	}
}

func TestAtSetOffset(t *testing.T) {

	tt := New(2, 3, 4, 5)
	tt.Set(1, 2, 3, 4, 7)

	assert.Equal(t, float32(7), tt.Data[len(tt.Data)-1])
	assert.Equal(t, float32(7), tt.At(1, 2, 3, 4))
}

func TestResizeBilinearAlignCorners(t *testing.T) {

	// 1x1x2x2 map, corners must be preserved after resizing
	src, err := FromData([]float32{
		0, 1,
		2, 3,
	}, 1, 1, 2, 2)
	require.NoError(t, err)

	out, err := ResizeBilinear(src, 3, 3)
	require.NoError(t, err)

	expected := []float32{
		0, 0.5, 1,
		1, 1.5, 2,
		2, 2.5, 3,
	}

	assert.InDeltaSlice(t, expected, out.Data, 1e-6)
	assert.Equal(t, []int{1, 1, 3, 3}, out.Shape())
}

func TestResizeBilinearIdentity(t *testing.T) {

	src := randomMap(1, 2, 3, 5, 7)

	out, err := ResizeBilinear(src, 5, 7)
	require.NoError(t, err)

	assert.InDeltaSlice(t, src.Data, out.Data, 1e-6)

	// output must not alias the input
	out.Data[0] = 99
	assert.NotEqual(t, float32(99), src.Data[0])
}

func TestResizeBilinearSinglePixel(t *testing.T) {

	src, err := FromData([]float32{4}, 1, 1, 1, 1)
	require.NoError(t, err)

	out, err := ResizeBilinear(src, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, []float32{4, 4, 4, 4}, out.Data)
}

func TestSampleBilinear(t *testing.T) {

	src, err := FromData([]float32{
		0, 1,
		2, 3,
		// channel 2
		10, 10,
		10, 10,
	}, 1, 2, 2, 2)
	require.NoError(t, err)

	dst := make([]float32, 2)

	// cell centres map to exact pixel values
	SampleBilinear(src, 0, 0.25, 0.75, dst)
	assert.InDeltaSlice(t, []float32{1, 10}, dst, 1e-6)

	// the centre of the grid is the mean of all four pixels
	SampleBilinear(src, 0, 0.5, 0.5, dst)
	assert.InDeltaSlice(t, []float32{1.5, 10}, dst, 1e-6)

	// locations outside the pixel centres clamp to the border
	SampleBilinear(src, 0, 0.0, 0.0, dst)
	assert.InDeltaSlice(t, []float32{0, 10}, dst, 1e-6)

	SampleBilinear(src, 0, 0.99, 0.99, dst)
	assert.InDeltaSlice(t, []float32{3, 10}, dst, 1e-6)
}

func TestGatherScatterRoundTrip(t *testing.T) {

	src := randomMap(2, 2, 3, 4, 4)

	idx := [][]int{
		{0, 5, 15, 7},
		{3, 3, 12, 1},
	}

	g, err := Gather(src, idx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, g.Shape())

	assert.Equal(t, src.At(0, 1, 1, 1), g.Data[(0*3+1)*4+1])
	assert.Equal(t, src.At(1, 2, 3, 0), g.Data[(1*3+2)*4+2])

	back, err := Scatter(src, idx, g)
	require.NoError(t, err)

	assert.Equal(t, src.Data, back.Data)
}

func TestScatterOverwritesOnlyIndexed(t *testing.T) {

	src := New(1, 2, 2, 2)
	vals, err := FromData([]float32{5, 6}, 1, 2, 1)
	require.NoError(t, err)

	out, err := Scatter(src, [][]int{{3}}, vals)
	require.NoError(t, err)

	assert.Equal(t, []float32{0, 0, 0, 5, 0, 0, 0, 6}, out.Data)
	assert.Equal(t, make([]float32, 8), src.Data, "input must be left untouched")
}

func TestGatherRejectsBadIndices(t *testing.T) {

	src := New(2, 1, 2, 2)

	_, err := Gather(src, [][]int{{0}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Gather(src, [][]int{{0}, {4}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Gather(src, [][]int{{0, 1}, {2}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestConcat(t *testing.T) {

	a, _ := FromData([]float32{1, 2, 3, 4}, 2, 1, 2)
	b, _ := FromData([]float32{5, 6, 7, 8, 9, 10, 11, 12}, 2, 2, 2)

	out, err := Concat(a, b)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 2, 5, 6, 7, 8, 3, 4, 9, 10, 11, 12}, out.Data)

	c := New(2, 1, 3)
	_, err = Concat(a, c)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFloat16RoundTrip(t *testing.T) {

	src, _ := FromData([]float32{0, 1, -2.5, 0.5, 65504}, 5)

	bits := src.ToFloat16()

	out, err := FromFloat16(bits, 5)
	require.NoError(t, err)

	assert.Equal(t, src.Data, out.Data)
}
