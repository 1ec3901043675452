package sampling

import (
	"fmt"
	"math"

	"github.com/swdee/go-pointrend/tensor"
)

// scratch holds the second best score per cell while building an
// uncertainty map
var scratch = newBufferPool()

// Uncertainty returns the negated margin between the best and second best
// class scores, so a larger value means the two leading classes are closer
// together and the prediction is less certain
func Uncertainty(scores []float32) float32 {

	top1 := float32(math.Inf(-1))
	top2 := float32(math.Inf(-1))

	for _, s := range scores {
		if s > top1 {
			top2 = top1
			top1 = s
		} else if s > top2 {
			top2 = s
		}
	}

	return -(top1 - top2)
}

// UncertaintyMap computes the uncertainty of every spatial cell of batch
// element n of an NCHW score map and writes it row-major into dst, which
// must hold H*W values
func UncertaintyMap(scores *tensor.Tensor, n int, dst []float32) error {

	_, c, h, w, err := scores.Spatial()

	if err != nil {
		return err
	}

	if c < 2 {
		return fmt.Errorf("%w: uncertainty needs at least 2 classes, got %d",
			ErrInvalidConfig, c)
	}

	plane := h * w

	if len(dst) < plane {
		return fmt.Errorf("%w: uncertainty buffer holds %d values, need %d",
			tensor.ErrShapeMismatch, len(dst), plane)
	}

	base := n * c * plane

	// dst tracks the best score of each cell, the pooled buffer the second
	// best, until the final pass turns them into margins
	top1 := dst[:plane]
	buf := scratch.Get(plane)
	defer scratch.Put(buf)

	top2 := *buf

	copy(top1, scores.Data[base:base+plane])

	for i := range top2 {
		top2[i] = float32(math.Inf(-1))
	}

	// walk channel planes so memory is read sequentially
	for ch := 1; ch < c; ch++ {
		p := scores.Data[base+ch*plane : base+(ch+1)*plane]

		for i, s := range p {
			if s > top1[i] {
				top2[i] = top1[i]
				top1[i] = s
			} else if s > top2[i] {
				top2[i] = s
			}
		}
	}

	for i := range top1 {
		top1[i] = -(top1[i] - top2[i])
	}

	return nil
}
