package pointrend

import (
	"fmt"

	"github.com/swdee/go-pointrend/predictor"
	"github.com/swdee/go-pointrend/sampling"
	"github.com/swdee/go-pointrend/tensor"
)

// names of the tensors in a Result
const (
	// OutputCoarse is the backbone coarse class score map
	OutputCoarse = "coarse"
	// OutputRes2 is the backbone fine feature map
	OutputRes2 = "res2"
	// OutputRend is the (B, classes, N) point logits of a Training pass
	OutputRend = "rend"
	// OutputPoints is the (B, N, 2) point coordinates of a Training pass
	OutputPoints = "points"
	// OutputFine is the refined full resolution score map of an Inference pass
	OutputFine = "fine"
)

// Backbone is the feature extractor run ahead of the point head.  Its
// outputs must include OutputCoarse and OutputRes2, any other outputs are
// passed through to the Result
type Backbone interface {
	Forward(x *tensor.Tensor) (map[string]*tensor.Tensor, error)
}

// BackboneFunc adapts a function to the Backbone interface
type BackboneFunc func(x *tensor.Tensor) (map[string]*tensor.Tensor, error)

// Forward calls f(x)
func (f BackboneFunc) Forward(x *tensor.Tensor) (map[string]*tensor.Tensor, error) {
	return f(x)
}

// Result holds the union of the backbone outputs and the head outputs
type Result map[string]*tensor.Tensor

// PointRend runs a backbone followed by the point refinement head
type PointRend struct {
	backbone Backbone
	head     *PointHead
}

// New returns a PointRend model from a backbone and a point predictor
func New(backbone Backbone, pred predictor.Predictor, p Params) (*PointRend, error) {

	head, err := NewPointHead(p, pred)

	if err != nil {
		return nil, err
	}

	return &PointRend{
		backbone: backbone,
		head:     head,
	}, nil
}

// Head returns the point refinement head
func (m *PointRend) Head() *PointHead {
	return m.head
}

// Forward runs the backbone on x and refines its output in the given mode
func (m *PointRend) Forward(mode Mode, x *tensor.Tensor) (Result, error) {

	outputs, err := m.backbone.Forward(x)

	if err != nil {
		return nil, fmt.Errorf("backbone: %w", err)
	}

	coarse, ok := outputs[OutputCoarse]

	if !ok {
		return nil, fmt.Errorf("%w: backbone did not produce %q", ErrShapeMismatch, OutputCoarse)
	}

	res2, ok := outputs[OutputRes2]

	if !ok {
		return nil, fmt.Errorf("%w: backbone did not produce %q", ErrShapeMismatch, OutputRes2)
	}

	head, err := m.head.Forward(mode, x, res2, coarse)

	if err != nil {
		return nil, fmt.Errorf("point head %s: %w", mode, err)
	}

	res := make(Result, len(outputs)+2)

	for k, v := range outputs {
		res[k] = v
	}

	switch mode {
	case Training:
		res[OutputRend] = head.Rend
		res[OutputPoints] = sampling.PointsTensor(head.Points)
	case Inference:
		res[OutputFine] = head.Fine
	}

	return res, nil
}
