package backbone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-pointrend/tensor"
)

func TestLoadManifest(t *testing.T) {

	dir := t.TempDir()

	coarse, _ := tensor.FromData([]float32{0.5, -1, 2, 3.25, 0, 1, 1, 8}, 1, 2, 2, 2)
	res2, _ := tensor.FromData([]float32{1, 2, 3, 4}, 1, 1, 2, 2)

	require.NoError(t, SaveRaw(filepath.Join(dir, "coarse.bin"), coarse, Float16))
	require.NoError(t, SaveRaw(filepath.Join(dir, "res2.bin"), res2, Float32))

	manifest := `outputs:
  - name: coarse
    shape: [1, 2, 2, 2]
    dtype: float16
    file: coarse.bin
  - name: res2
    shape: [1, 1, 2, 2]
    dtype: float32
    file: res2.bin
`
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))

	bb, err := LoadManifest(path)
	require.NoError(t, err)

	out, err := bb.Forward(tensor.New(1, 3, 8, 8))
	require.NoError(t, err)

	assert.Equal(t, coarse.Data, out["coarse"].Data)
	assert.Equal(t, []int{1, 2, 2, 2}, out["coarse"].Shape())
	assert.Equal(t, res2.Data, out["res2"].Data)

	_, err = bb.Forward(tensor.New(2, 3, 8, 8))
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}

func TestLoadManifestErrors(t *testing.T) {

	dir := t.TempDir()

	raw := filepath.Join(dir, "odd.bin")
	require.NoError(t, os.WriteFile(raw, []byte{1, 2, 3}, 0644))

	tests := []struct {
		name     string
		manifest string
		contains string
	}{
		{"no outputs", "outputs: []\n", "lists no outputs"},
		{"missing name", "outputs:\n  - file: odd.bin\n    dtype: float32\n", "name is required"},
		{"bad dtype", "outputs:\n  - name: a\n    file: odd.bin\n    dtype: int8\n", "unsupported dtype"},
		{"odd size", "outputs:\n  - name: a\n    file: odd.bin\n    dtype: float16\n    shape: [1]\n", "not a multiple"},
		{"missing file", "outputs:\n  - name: a\n    file: none.bin\n    dtype: float32\n", "error opening file"},
		{"bad yaml", "outputs: [", "parsing manifest YAML"},
	}

	for _, tc := range tests {
		path := filepath.Join(dir, "manifest.yaml")
		require.NoError(t, os.WriteFile(path, []byte(tc.manifest), 0644))

		_, err := LoadManifest(path)
		assert.ErrorContains(t, err, tc.contains, tc.name)
	}

	_, err := LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "manifest file not found")
}

func TestLoadManifestShapeMismatch(t *testing.T) {

	dir := t.TempDir()

	require.NoError(t, SaveRaw(filepath.Join(dir, "a.bin"), tensor.New(1, 2, 2, 2), Float32))

	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path,
		[]byte("outputs:\n  - name: a\n    file: a.bin\n    dtype: float32\n    shape: [1, 2, 3, 3]\n"), 0644))

	_, err := LoadManifest(path)
	assert.ErrorIs(t, err, tensor.ErrShapeMismatch)
}
