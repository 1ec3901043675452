package pointrend

import (
	"fmt"

	"github.com/swdee/go-pointrend/predictor"
	"github.com/swdee/go-pointrend/sampling"
	"github.com/swdee/go-pointrend/tensor"
)

var (
	// ErrShapeMismatch is returned when input maps have incompatible shapes
	ErrShapeMismatch = tensor.ErrShapeMismatch
	// ErrEmpty is returned when an input map has a zero sized dimension
	ErrEmpty = tensor.ErrEmpty
	// ErrInvalidConfig is returned for out of range parameters
	ErrInvalidConfig = sampling.ErrInvalidConfig
)

// Mode selects the behaviour of a forward pass
type Mode int

const (
	// Training runs a single sampling and prediction step on the coarse map
	Training Mode = iota
	// Inference iteratively refines the coarse map up to the input resolution
	Inference
)

// String returns a readable description of the Mode
func (m Mode) String() string {
	switch m {
	case Training:
		return "training"
	case Inference:
		return "inference"
	default:
		return "unknown"
	}
}

// HeadOutput holds the result of a PointHead forward pass
type HeadOutput struct {
	// Rend are the predicted logits of shape (B, classes, N) at the sampled
	// points, set in Training mode
	Rend *tensor.Tensor
	// Points are the point sets Rend was predicted at, set in Training mode
	Points [][]sampling.Point
	// Fine is the refined (B, classes, H, W) score map at input resolution,
	// set in Inference mode
	Fine *tensor.Tensor
}

// PointHead refines a coarse class score map at selected uncertain points
type PointHead struct {
	// Params are the head configuration parameters
	Params Params
	// TrainSampler selects points in Training mode
	TrainSampler sampling.Sampler
	// InferSampler selects points in Inference mode
	InferSampler sampling.Sampler
	// predictor maps point features to class logits
	predictor predictor.Predictor
}

// NewPointHead returns a PointHead using the given point predictor and the
// standard training and inference sampling policies
func NewPointHead(p Params, pred predictor.Predictor) (*PointHead, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if pred.InChannels() != p.InChannels {
		return nil, fmt.Errorf("%w: predictor expects %d channels, params give %d",
			ErrShapeMismatch, pred.InChannels(), p.InChannels)
	}

	if pred.OutChannels() != p.NumClasses {
		return nil, fmt.Errorf("%w: predictor produces %d logits, params give %d classes",
			ErrShapeMismatch, pred.OutChannels(), p.NumClasses)
	}

	return &PointHead{
		Params:       p,
		TrainSampler: sampling.NewTrainingSampler(p.Training, p.Seed),
		InferSampler: sampling.NewInferenceSampler(p.Inference),
		predictor:    pred,
	}, nil
}

// Forward runs the head in the given mode.  x is the backbone input image
// tensor and only its shape is used, res2 is the fine feature map and coarse
// the coarse class score map
func (h *PointHead) Forward(mode Mode, x, res2, coarse *tensor.Tensor) (HeadOutput, error) {
	switch mode {
	case Training:
		return h.Train(x, res2, coarse)
	case Inference:
		fine, err := h.Infer(x, res2, coarse)
		return HeadOutput{Fine: fine}, err
	default:
		return HeadOutput{}, fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, mode)
	}
}

// Train samples points on the coarse map with the training policy and
// predicts their logits.  The returned point sets are the ones the logits
// belong to, for the caller to compute a loss against
func (h *PointHead) Train(x, res2, coarse *tensor.Tensor) (HeadOutput, error) {

	if _, _, err := h.checkInputs(x, res2, coarse); err != nil {
		return HeadOutput{}, err
	}

	points, err := h.TrainSampler.Sample(coarse)

	if err != nil {
		return HeadOutput{}, fmt.Errorf("sampling points: %w", err)
	}

	rend, _, err := h.predictAt(coarse, res2, points)

	if err != nil {
		return HeadOutput{}, err
	}

	return HeadOutput{
		Rend:   rend,
		Points: points,
	}, nil
}

// refineState is the evolving state of the inference refinement loop
type refineState struct {
	// scores is the current class score map
	scores *tensor.Tensor
	// targetH and targetW is the resolution refinement stops at
	targetH int
	targetW int
}

// done reports whether the score map has reached the target resolution
func (s refineState) done() bool {
	return s.scores.Dim(2) == s.targetH && s.scores.Dim(3) == s.targetW
}

// nextSize doubles the current resolution without overshooting the target
func (s refineState) nextSize() (int, int) {
	return min(s.scores.Dim(2)*2, s.targetH), min(s.scores.Dim(3)*2, s.targetW)
}

// Infer repeatedly upsamples the coarse map by two, samples the most
// uncertain points of the upsampled map and overwrites them with freshly
// predicted logits until the map reaches the resolution of x.  A coarse map
// already at the resolution of x is returned as an unchanged copy
func (h *PointHead) Infer(x, res2, coarse *tensor.Tensor) (*tensor.Tensor, error) {

	targetH, targetW, err := h.checkInputs(x, res2, coarse)

	if err != nil {
		return nil, err
	}

	state := refineState{
		scores:  coarse.Clone(),
		targetH: targetH,
		targetW: targetW,
	}

	for !state.done() {
		state, err = h.refineStep(state, res2)

		if err != nil {
			return nil, err
		}
	}

	return state.scores, nil
}

// refineStep performs one upsample, sample, predict and scatter transition
func (h *PointHead) refineStep(state refineState, res2 *tensor.Tensor) (refineState, error) {

	outH, outW := state.nextSize()

	up, err := tensor.ResizeBilinear(state.scores, outH, outW)

	if err != nil {
		return state, fmt.Errorf("upsampling to %dx%d: %w", outH, outW, err)
	}

	points, err := h.InferSampler.Sample(up)

	if err != nil {
		return state, fmt.Errorf("sampling points: %w", err)
	}

	rend, idx, err := h.predictAt(up, res2, points)

	if err != nil {
		return state, err
	}

	refined, err := tensor.Scatter(up, idx, rend)

	if err != nil {
		return state, fmt.Errorf("scattering refined logits: %w", err)
	}

	state.scores = refined

	return state, nil
}

// predictAt gathers the score map and fine feature map at the given points,
// concatenates them and runs the point predictor.  The flattened indices of
// the points on the score map are returned for scattering
func (h *PointHead) predictAt(scores, res2 *tensor.Tensor,
	points [][]sampling.Point) (*tensor.Tensor, [][]int, error) {

	scoreIdx := sampling.FlatIndices(points, scores.Dim(2), scores.Dim(3))
	fineIdx := sampling.FlatIndices(points, res2.Dim(2), res2.Dim(3))

	coarseFeat, err := tensor.Gather(scores, scoreIdx)

	if err != nil {
		return nil, nil, fmt.Errorf("gathering score features: %w", err)
	}

	fineFeat, err := tensor.Gather(res2, fineIdx)

	if err != nil {
		return nil, nil, fmt.Errorf("gathering fine features: %w", err)
	}

	features, err := tensor.Concat(coarseFeat, fineFeat)

	if err != nil {
		return nil, nil, err
	}

	rend, err := h.predictor.Predict(features)

	if err != nil {
		return nil, nil, fmt.Errorf("point predictor: %w", err)
	}

	return rend, scoreIdx, nil
}

// checkInputs validates the input, fine feature and coarse maps before any
// computation and returns the input resolution.  Per dimension the coarse
// map may not exceed res2, and res2 may not exceed the input
func (h *PointHead) checkInputs(x, res2, coarse *tensor.Tensor) (int, int, error) {

	xb, _, xh, xw, err := x.Spatial()

	if err != nil {
		return 0, 0, fmt.Errorf("input: %w", err)
	}

	fb, fc, fh, fw, err := res2.Spatial()

	if err != nil {
		return 0, 0, fmt.Errorf("res2: %w", err)
	}

	cb, cc, ch, cw, err := coarse.Spatial()

	if err != nil {
		return 0, 0, fmt.Errorf("coarse: %w", err)
	}

	if xb != fb || xb != cb {
		return 0, 0, fmt.Errorf("%w: batch sizes differ, input %d, res2 %d, coarse %d",
			ErrShapeMismatch, xb, fb, cb)
	}

	// resolution grows from coarse through res2 to the input
	if fh > xh || fw > xw {
		return 0, 0, fmt.Errorf("%w: res2 map %dx%d is larger than input %dx%d",
			ErrShapeMismatch, fh, fw, xh, xw)
	}

	if ch > fh || cw > fw {
		return 0, 0, fmt.Errorf("%w: coarse map %dx%d is larger than res2 map %dx%d",
			ErrShapeMismatch, ch, cw, fh, fw)
	}

	if cc != h.Params.NumClasses {
		return 0, 0, fmt.Errorf("%w: coarse map has %d channels, expected %d classes",
			ErrShapeMismatch, cc, h.Params.NumClasses)
	}

	if cc+fc != h.Params.InChannels {
		return 0, 0, fmt.Errorf("%w: %d class + %d res2 channels do not match %d point features",
			ErrShapeMismatch, cc, fc, h.Params.InChannels)
	}

	return xh, xw, nil
}
