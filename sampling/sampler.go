package sampling

import (
	"cmp"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/swdee/go-pointrend/tensor"
)

// ErrInvalidConfig is returned when sampling parameters are out of range
var ErrInvalidConfig = errors.New("invalid configuration")

// Sampler selects the points of a score map to be refined
type Sampler interface {
	// Sample returns one ordered point set per batch element of the NCHW
	// class score map
	Sample(scores *tensor.Tensor) ([][]Point, error)
}

// TrainingParams defines the parameters of the training sampling policy
type TrainingParams struct {
	// K is the oversampling factor, K*N random candidates are drawn before
	// picking the most uncertain
	K int `yaml:"k"`
	// Beta is the fraction of the N points taken from the most uncertain
	// candidates, the remainder are uniform random coverage points
	Beta float32 `yaml:"beta"`
	// Points is the number of points N to sample per batch element.  When
	// zero it is a quarter of the score map cells
	Points int `yaml:"points"`
}

// TrainingDefaultParams returns the training policy parameters
// - K: 3
// - Beta: 0.75
// - Points: derived from the score map size
func TrainingDefaultParams() TrainingParams {
	return TrainingParams{
		K:    3,
		Beta: 0.75,
	}
}

// Validate checks the parameters are within range
func (p TrainingParams) Validate() error {

	if p.K <= 0 {
		return fmt.Errorf("%w: k must be greater than 0, got %d", ErrInvalidConfig, p.K)
	}

	if p.Beta < 0 || p.Beta > 1 {
		return fmt.Errorf("%w: beta must be within [0,1], got %g", ErrInvalidConfig, p.Beta)
	}

	if p.Points < 0 {
		return fmt.Errorf("%w: points must not be negative, got %d", ErrInvalidConfig, p.Points)
	}

	return nil
}

// InferenceParams defines the parameters of the inference sampling policy
type InferenceParams struct {
	// Points is the number of most uncertain cells N refined per step
	Points int `yaml:"points"`
}

// InferenceDefaultParams returns the inference policy parameters
// - Points: 4048
func InferenceDefaultParams() InferenceParams {
	return InferenceParams{
		Points: 4048,
	}
}

// Validate checks the parameters are within range
func (p InferenceParams) Validate() error {

	if p.Points <= 0 {
		return fmt.Errorf("%w: points must be greater than 0, got %d", ErrInvalidConfig, p.Points)
	}

	return nil
}

// TrainingSampler implements the stochastic, coverage biased policy.  It
// holds its own random source and is not safe for concurrent use
type TrainingSampler struct {
	// Params are the sampling parameters
	Params TrainingParams
	rng    *rand.Rand
}

// NewTrainingSampler returns a training sampler drawing from a random source
// seeded with seed
func NewTrainingSampler(p TrainingParams, seed int64) *TrainingSampler {
	return &TrainingSampler{
		Params: p,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Sample draws K*N random candidates per batch element, keeps the Beta*N
// most uncertain of them and appends (1-Beta)*N uniform random points.
// Each candidate and coverage point draws its row before its column
func (s *TrainingSampler) Sample(scores *tensor.Tensor) ([][]Point, error) {

	if err := s.Params.Validate(); err != nil {
		return nil, err
	}

	b, c, h, w, err := scores.Spatial()

	if err != nil {
		return nil, err
	}

	if c < 2 {
		return nil, fmt.Errorf("%w: uncertainty needs at least 2 classes, got %d",
			ErrInvalidConfig, c)
	}

	n := s.Params.Points

	if n == 0 {
		n = h * w / 4
	}

	if n == 0 {
		return nil, fmt.Errorf("%w: score map %dx%d is too small to derive a point count",
			ErrInvalidConfig, h, w)
	}

	n = min(n, h*w)

	numCandidates := s.Params.K * n
	numImportant := int(s.Params.Beta * float32(n))

	candidates := make([]Point, numCandidates)
	uncertainty := make([]float32, numCandidates)
	order := make([]int, numCandidates)
	vec := make([]float32, c)

	points := make([][]Point, b)

	for bi := 0; bi < b; bi++ {

		for i := range candidates {
			candidates[i] = s.randomPoint()

			tensor.SampleBilinear(scores, bi, candidates[i].Row, candidates[i].Col, vec)
			uncertainty[i] = Uncertainty(vec)
			order[i] = i
		}

		// most uncertain first, equal values keep draw order
		slices.SortStableFunc(order, func(x, y int) int {
			return cmp.Compare(uncertainty[y], uncertainty[x])
		})

		set := make([]Point, 0, n)

		for _, i := range order[:numImportant] {
			set = append(set, candidates[i])
		}

		for len(set) < n {
			set = append(set, s.randomPoint())
		}

		points[bi] = set
	}

	return points, nil
}

// randomPoint draws a uniform point over [0,1) x [0,1)
func (s *TrainingSampler) randomPoint() Point {
	row := s.rng.Float32()
	col := s.rng.Float32()

	return Point{Row: row, Col: col}
}

// InferenceSampler implements the deterministic top-N policy.  It is safe
// for concurrent use
type InferenceSampler struct {
	// Params are the sampling parameters
	Params  InferenceParams
	bufPool *bufferPool
}

// NewInferenceSampler returns an inference sampler
func NewInferenceSampler(p InferenceParams) *InferenceSampler {
	return &InferenceSampler{
		Params:  p,
		bufPool: newBufferPool(),
	}
}

// Sample returns the centres of the N most uncertain cells of each batch
// element, most uncertain first.  Cells of equal uncertainty are ordered by
// their row-major index.  N is clamped to the number of cells
func (s *InferenceSampler) Sample(scores *tensor.Tensor) ([][]Point, error) {

	if err := s.Params.Validate(); err != nil {
		return nil, err
	}

	b, _, h, w, err := scores.Spatial()

	if err != nil {
		return nil, err
	}

	cells := h * w
	n := min(s.Params.Points, cells)

	buf := s.bufPool.Get(cells)
	defer s.bufPool.Put(buf)

	uncertainty := *buf
	order := make([]int, cells)
	points := make([][]Point, b)

	for bi := 0; bi < b; bi++ {

		if err := UncertaintyMap(scores, bi, uncertainty); err != nil {
			return nil, err
		}

		for i := range order {
			order[i] = i
		}

		slices.SortStableFunc(order, func(x, y int) int {
			return cmp.Compare(uncertainty[y], uncertainty[x])
		})

		set := make([]Point, n)

		for i, idx := range order[:n] {
			set[i] = cellCentre(idx, h, w)
		}

		points[bi] = set
	}

	return points, nil
}
