package tensor

import (
	"fmt"
	"math"
)

// ResizeBilinear resizes the spatial dimensions of an NCHW map to outH x
// outW using bilinear interpolation with aligned corners, so the centres of
// the corner pixels of the input and output coincide.  A new tensor is
// always returned
func ResizeBilinear(t *Tensor, outH, outW int) (*Tensor, error) {

	b, c, h, w, err := t.Spatial()

	if err != nil {
		return nil, err
	}

	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("%w: resize target %dx%d", ErrEmpty, outH, outW)
	}

	out := New(b, c, outH, outW)

	// precompute source coordinates and weights for each output row/column
	y0s, y1s, wys := alignCornersAxis(h, outH)
	x0s, x1s, wxs := alignCornersAxis(w, outW)

	inPlane := h * w
	outPlane := outH * outW

	for p := 0; p < b*c; p++ {
		src := t.Data[p*inPlane : (p+1)*inPlane]
		dst := out.Data[p*outPlane : (p+1)*outPlane]

		for oy := 0; oy < outH; oy++ {
			top := src[y0s[oy]*w:]
			bottom := src[y1s[oy]*w:]
			wy := wys[oy]

			for ox := 0; ox < outW; ox++ {
				x0, x1, wx := x0s[ox], x1s[ox], wxs[ox]

				upper := top[x0]*(1-wx) + top[x1]*wx
				lower := bottom[x0]*(1-wx) + bottom[x1]*wx

				dst[oy*outW+ox] = upper*(1-wy) + lower*wy
			}
		}
	}

	return out, nil
}

// alignCornersAxis returns the neighbouring source indices and interpolation
// weight for every output position along one axis
func alignCornersAxis(in, out int) (i0, i1 []int, wt []float32) {

	i0 = make([]int, out)
	i1 = make([]int, out)
	wt = make([]float32, out)

	scale := float64(0)

	if out > 1 {
		scale = float64(in-1) / float64(out-1)
	}

	for o := 0; o < out; o++ {
		src := float64(o) * scale
		lo := int(math.Floor(src))

		if lo > in-1 {
			lo = in - 1
		}

		hi := lo + 1

		if hi > in-1 {
			hi = in - 1
		}

		i0[o] = lo
		i1[o] = hi
		wt[o] = float32(src - float64(lo))
	}

	return i0, i1, wt
}

// SampleBilinear reads the channel vector of batch element n at the
// normalised location (row, col) in [0,1) using pixel centre coordinates.
// Locations beyond the outer pixel centres are clamped to the border.  The
// result is written to dst which must hold C values
func SampleBilinear(t *Tensor, n int, row, col float32, dst []float32) {

	c, h, w := t.shape[1], t.shape[2], t.shape[3]

	y := clampf(row*float32(h)-0.5, 0, float32(h-1))
	x := clampf(col*float32(w)-0.5, 0, float32(w-1))

	y0 := int(y)
	x0 := int(x)
	y1 := min(y0+1, h-1)
	x1 := min(x0+1, w-1)

	wy := y - float32(y0)
	wx := x - float32(x0)

	plane := h * w
	base := n * c * plane

	for ch := 0; ch < c; ch++ {
		p := t.Data[base+ch*plane : base+(ch+1)*plane]

		upper := p[y0*w+x0]*(1-wx) + p[y0*w+x1]*wx
		lower := p[y1*w+x0]*(1-wx) + p[y1*w+x1]*wx

		dst[ch] = upper*(1-wy) + lower*wy
	}
}

// clampf restricts val to the range lo to hi
func clampf(val, lo, hi float32) float32 {

	if val < lo {
		return lo
	}

	if val > hi {
		return hi
	}

	return val
}
