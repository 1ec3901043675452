package tensor

import "fmt"

// Gather extracts the channel vectors of an NCHW map at the given flattened
// spatial indices.  idx holds one index slice per batch element, all of the
// same length N, and the result has shape (B, C, N)
func Gather(t *Tensor, idx [][]int) (*Tensor, error) {

	b, c, h, w, err := t.Spatial()

	if err != nil {
		return nil, err
	}

	n, err := checkIndices(idx, b, h*w)

	if err != nil {
		return nil, err
	}

	out := New(b, c, n)
	plane := h * w

	for bi := 0; bi < b; bi++ {
		for ch := 0; ch < c; ch++ {
			src := t.Data[(bi*c+ch)*plane : (bi*c+ch+1)*plane]
			dst := out.Data[(bi*c+ch)*n : (bi*c+ch+1)*n]

			for i, k := range idx[bi] {
				dst[i] = src[k]
			}
		}
	}

	return out, nil
}

// Scatter returns a copy of the NCHW map t where the entries at the given
// flattened spatial indices are overwritten by the (B, C, N) values in src.
// All other entries carry over unchanged
func Scatter(t *Tensor, idx [][]int, src *Tensor) (*Tensor, error) {

	b, c, h, w, err := t.Spatial()

	if err != nil {
		return nil, err
	}

	n, err := checkIndices(idx, b, h*w)

	if err != nil {
		return nil, err
	}

	if src.Rank() != 3 || src.Dim(0) != b || src.Dim(1) != c || src.Dim(2) != n {
		return nil, fmt.Errorf("%w: scatter source %v does not match (%d, %d, %d)",
			ErrShapeMismatch, src.shape, b, c, n)
	}

	out := t.Clone()
	plane := h * w

	for bi := 0; bi < b; bi++ {
		for ch := 0; ch < c; ch++ {
			dst := out.Data[(bi*c+ch)*plane : (bi*c+ch+1)*plane]
			vals := src.Data[(bi*c+ch)*n : (bi*c+ch+1)*n]

			for i, k := range idx[bi] {
				dst[k] = vals[i]
			}
		}
	}

	return out, nil
}

// checkIndices validates one equal length index slice per batch element and
// returns the common length
func checkIndices(idx [][]int, batch, cells int) (int, error) {

	if len(idx) != batch {
		return 0, fmt.Errorf("%w: %d index sets for batch of %d",
			ErrShapeMismatch, len(idx), batch)
	}

	n := len(idx[0])

	for bi, set := range idx {
		if len(set) != n {
			return 0, fmt.Errorf("%w: batch element %d has %d indices, expected %d",
				ErrShapeMismatch, bi, len(set), n)
		}

		for _, k := range set {
			if k < 0 || k >= cells {
				return 0, fmt.Errorf("%w: index %d out of range [0-%d)",
					ErrShapeMismatch, k, cells)
			}
		}
	}

	return n, nil
}

// Concat joins tensors along the channel axis (dimension 1).  All other
// dimensions must match
func Concat(ts ...*Tensor) (*Tensor, error) {

	if len(ts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrEmpty)
	}

	first := ts[0]

	if first.Rank() < 2 {
		return nil, fmt.Errorf("%w: concat needs rank >= 2, got %v", ErrShapeMismatch, first.shape)
	}

	// inner is the element count following the channel axis
	inner := 1

	for _, d := range first.shape[2:] {
		inner *= d
	}

	channels := 0

	for _, t := range ts {
		if t.Rank() != first.Rank() || t.shape[0] != first.shape[0] {
			return nil, fmt.Errorf("%w: cannot concat %v with %v", ErrShapeMismatch, t.shape, first.shape)
		}

		for i := 2; i < t.Rank(); i++ {
			if t.shape[i] != first.shape[i] {
				return nil, fmt.Errorf("%w: cannot concat %v with %v", ErrShapeMismatch, t.shape, first.shape)
			}
		}

		channels += t.shape[1]
	}

	shape := first.Shape()
	shape[1] = channels
	out := New(shape...)

	batch := first.shape[0]
	pos := 0

	for bi := 0; bi < batch; bi++ {
		for _, t := range ts {
			chunk := t.shape[1] * inner
			copy(out.Data[pos:pos+chunk], t.Data[bi*chunk:(bi+1)*chunk])
			pos += chunk
		}
	}

	return out, nil
}
