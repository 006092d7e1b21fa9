package llvmcov

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covlight/covlight/internal/coverage"
)

func TestParseStatementHits_MaxMergeWithinDocument(t *testing.T) {
	// Two segments land on the same (line, col); within one export the
	// larger count wins instead of summing.
	content := `{
		"type": "llvm.coverage.json.export",
		"version": "2.0.1",
		"data": [{
			"files": [{
				"filename": "/repo/src/lib.rs",
				"segments": [
					[3, 5, 7, true, true, false],
					[3, 5, 10, true, true, false],
					[3, 5, 2, true, true, false]
				]
			}]
		}]
	}`

	hits, err := ParseStatementHits(strings.NewReader(content), "/repo")

	require.NoError(t, err)
	require.Len(t, hits, 1)
	file := hits["/repo/src/lib.rs"]
	require.Len(t, file, 1)
	assert.Equal(t, uint32(10), file[coverage.StatementID(3, 5)])
}

func TestParseStatementHits_SegmentFilters(t *testing.T) {
	content := `{
		"data": [{
			"files": [{
				"filename": "src/a.rs",
				"segments": [
					[1, 1, 5, true, true, false],
					[2, 1, 5, false, true, false],
					[3, 1, 5, true, false, false],
					[4, 1, 5, true, true, true],
					[0, 1, 5, true, true, false]
				]
			}]
		}]
	}`

	hits, err := ParseStatementHits(strings.NewReader(content), "/repo")

	require.NoError(t, err)
	file := hits["/repo/src/a.rs"]
	// only the first segment survives: no-count, non-entry, gap, and
	// zero-line segments are all skipped
	require.Len(t, file, 1)
	assert.Equal(t, uint32(5), file[coverage.StatementID(1, 1)])
}

func TestParseStatementHits_HugeCountClamps(t *testing.T) {
	content := `{
		"data": [{
			"files": [{
				"filename": "src/a.rs",
				"segments": [
					[1, 1, 18446744073709551615, true, true, false],
					[2, 1, 5000000000, true, true, false]
				]
			}]
		}]
	}`

	hits, err := ParseStatementHits(strings.NewReader(content), "/repo")

	require.NoError(t, err)
	file := hits["/repo/src/a.rs"]
	require.Len(t, file, 2)
	assert.Equal(t, uint32(math.MaxUint32), file[coverage.StatementID(1, 1)])
	assert.Equal(t, uint32(math.MaxUint32), file[coverage.StatementID(2, 1)])
}

func TestParseStatementHits_SkipsUnknownKeys(t *testing.T) {
	content := `{
		"type": "llvm.coverage.json.export",
		"data": [{
			"totals": {"lines": {"count": 100, "covered": 80}},
			"functions": [{"name": "f", "count": 1, "regions": [[1,1,1,1,1,0,0,0]]}],
			"files": [{
				"expansions": [],
				"summary": {"lines": {"count": 10}},
				"filename": "src/b.rs",
				"branches": [[1, 2, 1, 3, 0, 0, 0, 0, 4]],
				"segments": [[7, 1, 2, true, true, false]]
			}]
		}]
	}`

	hits, err := ParseStatementHits(strings.NewReader(content), "/repo")

	require.NoError(t, err)
	file := hits["/repo/src/b.rs"]
	require.Len(t, file, 1)
	assert.Equal(t, uint32(2), file[coverage.StatementID(7, 1)])
}

func TestParseStatementHits_MultipleFiles(t *testing.T) {
	content := `{
		"data": [{
			"files": [
				{"filename": "src/a.rs", "segments": [[1, 1, 1, true, true, false]]},
				{"filename": "src/b.rs", "segments": [[2, 1, 0, true, true, false]]}
			]
		}]
	}`

	hits, err := ParseStatementHits(strings.NewReader(content), "/repo")

	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Contains(t, hits, "/repo/src/a.rs")
	assert.Contains(t, hits, "/repo/src/b.rs")
}

func TestParseStatementHits_MalformedSegment(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "short segment",
			content: `{"data": [{"files": [{"filename": "a", "segments": [[1, 2, 3]]}]}]}`,
		},
		{
			name:    "non-numeric line",
			content: `{"data": [{"files": [{"filename": "a", "segments": [["x", 2, 3, true, true, false]]}]}]}`,
		},
		{
			name:    "non-bool flag",
			content: `{"data": [{"files": [{"filename": "a", "segments": [[1, 2, 3, 9, true, false]]}]}]}`,
		},
		{
			name:    "truncated document",
			content: `{"data": [{"files": [{"filename": "a", "segments": [[1, 2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatementHits(strings.NewReader(tt.content), "/repo")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	hits, ok, err := ReadFile(filepath.Join(t.TempDir(), "coverage.json"), "/repo")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, hits)
}

func TestReadRepo(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "coverage"), 0o755))
	content := `{"data": [{"files": [{"filename": "src/c.rs", "segments": [[1, 1, 4, true, true, false]]}]}]}`
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "coverage", "coverage.json"), []byte(content), 0o644))

	hits, ok, err := ReadRepo(root)

	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, hits, 1)
}

func TestStatementTotals(t *testing.T) {
	hitsByPath := map[string]map[uint64]uint32{
		"/repo/src/a.rs": {
			coverage.StatementID(1, 1): 3,
			coverage.StatementID(2, 1): 0,
			coverage.StatementID(3, 1): 1,
		},
	}

	totals := StatementTotals(hitsByPath)

	require.Len(t, totals, 1)
	assert.Equal(t, uint32(3), totals["/repo/src/a.rs"].Total)
	assert.Equal(t, uint32(2), totals["/repo/src/a.rs"].Covered)
}
