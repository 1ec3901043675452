package pointrend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams(t *testing.T) {

	p := DefaultParams()

	assert.NoError(t, p.Validate())
	assert.Equal(t, 21, p.NumClasses)
	assert.Equal(t, 533, p.InChannels)
	assert.Equal(t, 3, p.Training.K)
	assert.Equal(t, float32(0.75), p.Training.Beta)
	assert.Equal(t, 4048, p.Inference.Points)
}

func TestParamsValidate(t *testing.T) {

	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"one class", func(p *Params) { p.NumClasses = 1 }},
		{"no fine channels", func(p *Params) { p.InChannels = p.NumClasses }},
		{"zero k", func(p *Params) { p.Training.K = 0 }},
		{"beta above one", func(p *Params) { p.Training.Beta = 1.01 }},
		{"zero inference points", func(p *Params) { p.Inference.Points = 0 }},
	}

	for _, tc := range tests {
		p := DefaultParams()
		tc.modify(&p)

		assert.ErrorIs(t, p.Validate(), ErrInvalidConfig, tc.name)
	}
}

func TestSaveLoadParams(t *testing.T) {

	path := filepath.Join(t.TempDir(), "pointrend.yaml")

	p := DefaultParams()
	p.Training.Points = 48
	p.Seed = 99

	require.NoError(t, SaveParams(path, p))

	loaded, err := LoadParams(path)
	require.NoError(t, err)

	assert.Equal(t, p, loaded)
}

func TestLoadParamsPartialFile(t *testing.T) {

	path := filepath.Join(t.TempDir(), "pointrend.yaml")

	require.NoError(t, os.WriteFile(path, []byte("training:\n  beta: 0.5\n  k: 3\n"), 0644))

	p, err := LoadParams(path)
	require.NoError(t, err)

	assert.Equal(t, float32(0.5), p.Training.Beta)
	assert.Equal(t, 21, p.NumClasses)
	assert.Equal(t, 4048, p.Inference.Points)
}

func TestLoadParamsErrors(t *testing.T) {

	dir := t.TempDir()

	_, err := LoadParams(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "config file not found")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("num_classes: [1"), 0644))

	_, err = LoadParams(bad)
	assert.ErrorContains(t, err, "parsing config YAML")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("training:\n  k: -2\n"), 0644))

	_, err = LoadParams(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
