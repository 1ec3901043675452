package pointrend

import (
	"fmt"
	"os"

	"github.com/swdee/go-pointrend/sampling"
	"gopkg.in/yaml.v3"
)

// Params defines the configuration of the point refinement head
type Params struct {
	// NumClasses is the number of class score channels in the coarse map and
	// the number of logits the point predictor produces
	NumClasses int `yaml:"num_classes"`
	// InChannels is the per-point feature length fed to the point predictor,
	// the class channels plus the fine feature map channels
	InChannels int `yaml:"in_channels"`
	// Training are the parameters of the training sampling policy
	Training sampling.TrainingParams `yaml:"training"`
	// Inference are the parameters of the inference sampling policy
	Inference sampling.InferenceParams `yaml:"inference"`
	// Seed seeds the random source of the training sampler
	Seed int64 `yaml:"seed"`
}

// DefaultParams returns an instance of Params configured for a DeepLabV3
// backbone trained on Pascal VOC featuring:
// - Classes: 21
// - Point features: 533 (512 res2 channels + 21 class scores)
// - Training: k=3, beta=0.75, a quarter of the coarse cells
// - Inference: 4048 points per refinement step
func DefaultParams() Params {
	return Params{
		NumClasses: 21,
		InChannels: 533,
		Training:   sampling.TrainingDefaultParams(),
		Inference:  sampling.InferenceDefaultParams(),
	}
}

// Validate checks the parameters are usable
func (p Params) Validate() error {

	if p.NumClasses < 2 {
		return fmt.Errorf("%w: num_classes must be at least 2, got %d",
			ErrInvalidConfig, p.NumClasses)
	}

	if p.InChannels <= p.NumClasses {
		return fmt.Errorf("%w: in_channels %d must exceed num_classes %d",
			ErrInvalidConfig, p.InChannels, p.NumClasses)
	}

	if err := p.Training.Validate(); err != nil {
		return fmt.Errorf("training: %w", err)
	}

	if err := p.Inference.Validate(); err != nil {
		return fmt.Errorf("inference: %w", err)
	}

	return nil
}

// LoadParams reads Params from a YAML file.  Fields missing from the file
// keep their DefaultParams value
func LoadParams(path string) (Params, error) {

	p := DefaultParams()

	data, err := os.ReadFile(path)

	if err != nil {
		if os.IsNotExist(err) {
			return p, fmt.Errorf("config file not found: %s", path)
		}
		return p, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := p.Validate(); err != nil {
		return p, err
	}

	return p, nil
}

// SaveParams writes Params to a YAML file
func SaveParams(path string, p Params) error {

	data, err := yaml.Marshal(p)

	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
