package coveragepy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	content := `{
		"meta": {"version": "7.4.0"},
		"files": {
			"pkg/mod.py": {
				"executed_lines": [1, 2, 5],
				"missing_lines": [7],
				"summary": {
					"num_statements": 4,
					"covered_lines": 3,
					"missing_lines": 1
				}
			},
			"pkg/empty.py": {
				"summary": {"num_statements": 0, "covered_lines": 0}
			}
		}
	}`

	totals, err := ParseText(strings.NewReader(content), "/repo")

	require.NoError(t, err)
	// files with no statements at all carry no signal and are dropped
	require.Len(t, totals, 1)
	entry := totals["/repo/pkg/mod.py"]
	assert.Equal(t, uint32(4), entry.Total)
	assert.Equal(t, uint32(3), entry.Covered)
}

func TestParseText_CoveredClampedToTotal(t *testing.T) {
	content := `{
		"files": {
			"a.py": {"summary": {"num_statements": 2, "covered_lines": 9}}
		}
	}`

	totals, err := ParseText(strings.NewReader(content), "/repo")

	require.NoError(t, err)
	entry := totals["/repo/a.py"]
	assert.Equal(t, uint32(2), entry.Total)
	assert.Equal(t, uint32(2), entry.Covered)
}

func TestParseText_Invalid(t *testing.T) {
	_, err := ParseText(strings.NewReader("nope"), "/repo")
	assert.Error(t, err)
}

func TestReadFile_Missing(t *testing.T) {
	totals, ok, err := ReadFile(filepath.Join(t.TempDir(), "coverage.json"), "/repo")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, totals)
}

func TestReadRepo(t *testing.T) {
	root := t.TempDir()
	content := `{"files": {"m.py": {"summary": {"num_statements": 5, "covered_lines": 5}}}}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "coverage.json"), []byte(content), 0o644))

	totals, ok, err := ReadRepo(root)

	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, totals, 1)
}
