package sampling

import "github.com/swdee/go-pointrend/tensor"

// Point is a normalised location within a spatial grid.  Row and Col are in
// the range [0,1) and independent of the grid resolution
type Point struct {
	Row float32
	Col float32
}

// Cell returns the row-major flattened index of the grid cell containing the
// point on an h x w grid
func (p Point) Cell(h, w int) int {

	row := int(p.Row * float32(h))
	col := int(p.Col * float32(w))

	if row < 0 {
		row = 0
	} else if row > h-1 {
		row = h - 1
	}

	if col < 0 {
		col = 0
	} else if col > w-1 {
		col = w - 1
	}

	return row*w + col
}

// cellCentre returns the point at the centre of the cell with the given
// flattened index
func cellCentre(idx, h, w int) Point {
	return Point{
		Row: (float32(idx/w) + 0.5) / float32(h),
		Col: (float32(idx%w) + 0.5) / float32(w),
	}
}

// FlatIndices converts a point set into flattened cell indices on an h x w
// grid.  The same point set maps to different indices on grids of different
// resolution
func FlatIndices(points [][]Point, h, w int) [][]int {

	idx := make([][]int, len(points))

	for b, set := range points {
		idx[b] = make([]int, len(set))

		for i, p := range set {
			idx[b][i] = p.Cell(h, w)
		}
	}

	return idx
}

// PointsTensor converts a point set into a (B, N, 2) tensor holding the
// (row, col) pair of each point
func PointsTensor(points [][]Point) *tensor.Tensor {

	n := 0

	if len(points) > 0 {
		n = len(points[0])
	}

	out := tensor.New(len(points), n, 2)

	for b, set := range points {
		for i, p := range set {
			out.Data[(b*n+i)*2+0] = p.Row
			out.Data[(b*n+i)*2+1] = p.Col
		}
	}

	return out
}
