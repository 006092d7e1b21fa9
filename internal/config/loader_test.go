package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covlight/covlight/internal/thresholds"
)

func TestLoad(t *testing.T) {
	content := `root: /repo
artifacts:
  - coverage/lcov.info
exclude:
  - "**/node_modules/**"
thresholds:
  lines: 80
  branches: 70.5
print:
  page_fit: true
  max_hotspots: 3
  max_files: 10
  editor_cmd: "code --goto {file}:{line}"
`
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Loader{}.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/repo", cfg.Root)
	assert.Equal(t, []string{"coverage/lcov.info"}, cfg.Artifacts)
	assert.Equal(t, []string{"**/node_modules/**"}, cfg.Exclude)
	require.NotNil(t, cfg.Thresholds.Lines)
	assert.Equal(t, 80.0, *cfg.Thresholds.Lines)
	require.NotNil(t, cfg.Thresholds.Branches)
	assert.Equal(t, 70.5, *cfg.Thresholds.Branches)
	assert.Nil(t, cfg.Thresholds.Functions)
	assert.True(t, cfg.Print.PageFit)
	assert.Equal(t, uint32(3), cfg.Print.MaxHotspots)
	assert.Equal(t, uint32(10), cfg.Print.MaxFiles)
	assert.Equal(t, "code --goto {file}:{line}", cfg.Print.EditorCmd)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("thresholds: [unclosed"), 0o644))

	_, err := Loader{}.Load(path)

	assert.Error(t, err)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Loader{}.Load(filepath.Join(t.TempDir(), DefaultFileName))
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	ok, err := Loader{}.Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	ok, err = Loader{}.Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteRoundTrip(t *testing.T) {
	lines := 85.0
	cfg := Config{
		Exclude:    []string{"target/**"},
		Thresholds: thresholds.Thresholds{Lines: &lines},
		Print:      PrintConfig{PageFit: true},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))

	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	loaded, err := Loader{}.Load(path)

	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	// omitempty keeps the file minimal
	assert.NotContains(t, buf.String(), "artifacts")
	assert.NotContains(t, buf.String(), "functions")
}
