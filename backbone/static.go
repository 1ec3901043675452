/*
Package backbone provides Backbone implementations for the point refinement
head.  The backbone network itself runs elsewhere, such as on an NPU, and
its output tensors are handed over as raw dumps.
*/
package backbone

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/swdee/go-pointrend/tensor"
	"gopkg.in/yaml.v3"
)

// DType is the element type of a raw tensor dump
type DType string

const (
	Float32 DType = "float32"
	Float16 DType = "float16"
)

// size returns the number of bytes per element
func (d DType) size() (int, error) {
	switch d {
	case Float32:
		return 4, nil
	case Float16:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", string(d))
	}
}

// OutputSpec describes one dumped backbone output
type OutputSpec struct {
	// Name is the output name, eg: coarse or res2
	Name string `yaml:"name"`
	// Shape is the NCHW shape of the tensor
	Shape []int `yaml:"shape"`
	// DType is the element type of the little endian raw file
	DType DType `yaml:"dtype"`
	// File is the raw dump path, relative paths are resolved against the
	// manifest directory
	File string `yaml:"file"`
}

// Manifest lists the dumped outputs of one backbone run
type Manifest struct {
	Outputs []OutputSpec `yaml:"outputs"`
}

// Static is a Backbone that returns the same precomputed outputs for any
// input of a matching batch size
type Static struct {
	outputs map[string]*tensor.Tensor
}

// NewStatic returns a Static backbone serving the given outputs
func NewStatic(outputs map[string]*tensor.Tensor) *Static {
	return &Static{outputs: outputs}
}

// LoadManifest reads a manifest YAML file and returns a Static backbone
// serving every raw dump it lists
func LoadManifest(path string) (*Static, error) {

	outputs, err := LoadTensors(path)

	if err != nil {
		return nil, err
	}

	return NewStatic(outputs), nil
}

// LoadTensors reads a manifest YAML file and loads every raw dump it lists,
// keyed by output name
func LoadTensors(path string) (map[string]*tensor.Tensor, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest file not found: %s", path)
		}
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}

	var m Manifest

	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest YAML: %w", err)
	}

	if len(m.Outputs) == 0 {
		return nil, fmt.Errorf("manifest %s lists no outputs", path)
	}

	dir := filepath.Dir(path)
	outputs := make(map[string]*tensor.Tensor, len(m.Outputs))

	for i, spec := range m.Outputs {
		if spec.Name == "" {
			return nil, fmt.Errorf("outputs[%d].name is required", i)
		}

		if _, exists := outputs[spec.Name]; exists {
			return nil, fmt.Errorf("output %q listed twice", spec.Name)
		}

		file := spec.File

		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}

		t, err := loadRaw(file, spec.DType, spec.Shape)

		if err != nil {
			return nil, fmt.Errorf("output %q: %w", spec.Name, err)
		}

		outputs[spec.Name] = t
	}

	return outputs, nil
}

// loadRaw reads a little endian raw tensor dump
func loadRaw(file string, dtype DType, shape []int) (*tensor.Tensor, error) {

	size, err := dtype.size()

	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	buf, err := io.ReadAll(f)

	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if len(buf)%size != 0 {
		return nil, fmt.Errorf("%w: %s holds %d bytes, not a multiple of %d",
			tensor.ErrShapeMismatch, file, len(buf), size)
	}

	n := len(buf) / size

	switch dtype {
	case Float16:
		vals := make([]uint16, n)

		for i := range vals {
			vals[i] = binary.LittleEndian.Uint16(buf[i*2:])
		}

		return tensor.FromFloat16(vals, shape...)

	default:
		vals := make([]float32, n)

		for i := range vals {
			vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}

		return tensor.FromData(vals, shape...)
	}
}

// SaveRaw writes a tensor as a little endian raw dump of the given dtype
func SaveRaw(file string, t *tensor.Tensor, dtype DType) error {

	size, err := dtype.size()

	if err != nil {
		return err
	}

	buf := make([]byte, t.Len()*size)

	switch dtype {
	case Float16:
		for i, v := range t.ToFloat16() {
			binary.LittleEndian.PutUint16(buf[i*2:], v)
		}

	default:
		for i, v := range t.Data {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
	}

	if err := os.WriteFile(file, buf, 0644); err != nil {
		return fmt.Errorf("writing raw file: %w", err)
	}

	return nil
}

// Forward returns the precomputed outputs.  The batch size of x must match
// that of every output
func (s *Static) Forward(x *tensor.Tensor) (map[string]*tensor.Tensor, error) {

	if x.Rank() == 0 {
		return nil, fmt.Errorf("%w: input has no dimensions", tensor.ErrShapeMismatch)
	}

	out := make(map[string]*tensor.Tensor, len(s.outputs))

	for name, t := range s.outputs {
		if t.Rank() == 0 || t.Dim(0) != x.Dim(0) {
			return nil, fmt.Errorf("%w: output %q %v does not match input batch %d",
				tensor.ErrShapeMismatch, name, t.Shape(), x.Dim(0))
		}

		out[name] = t
	}

	return out, nil
}
