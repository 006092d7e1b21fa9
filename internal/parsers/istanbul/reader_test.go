package istanbul

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText_PrefersLineMap(t *testing.T) {
	content := `{
		"src/app.ts": {
			"path": "src/app.ts",
			"l": {"1": 3, "2": 0},
			"f": {"0": 2},
			"fnMap": {"0": {"name": "handler", "line": 1}},
			"b": {"0": [1, 0]},
			"branchMap": {"0": {"line": 2}}
		}
	}`

	report, err := ParseText(content)

	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	file := report.Files[0]
	assert.Equal(t, "src/app.ts", file.Path)
	assert.Equal(t, uint32(2), file.LinesTotal)
	assert.Equal(t, uint32(1), file.LinesCovered)
	assert.Equal(t, []uint32{2}, file.UncoveredLines)
	assert.Equal(t, uint32(2), file.FunctionHits["0"])
	assert.Equal(t, "handler", file.FunctionMap["0"].Name)
	assert.Equal(t, []uint32{1, 0}, file.BranchHits["0"])
	assert.Equal(t, uint32(2), file.BranchMap["0"])
}

func TestParseText_RebuildsLinesFromStatements(t *testing.T) {
	content := `{
		"src/util.ts": {
			"s": {"0": 4, "1": 4, "2": 0},
			"statementMap": {
				"0": {"start": {"line": 1}, "end": {"line": 1}},
				"1": {"start": {"line": 1}, "end": {"line": 1}},
				"2": {"start": {"line": 5}, "end": {"line": 6}}
			}
		}
	}`

	report, err := ParseText(content)

	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	file := report.Files[0]
	// statements sharing line 1 sum
	assert.Equal(t, uint32(8), file.LineHits[1])
	assert.Equal(t, uint32(0), file.LineHits[5])
	assert.Equal(t, uint32(2), file.LinesTotal)
	assert.Equal(t, uint32(1), file.LinesCovered)

	require.NotNil(t, file.StatementsTotal)
	require.NotNil(t, file.StatementsCovered)
	assert.Equal(t, uint32(3), *file.StatementsTotal)
	assert.Equal(t, uint32(2), *file.StatementsCovered)
	assert.Equal(t, uint32(5), file.StatementMap[2].Start)
	assert.Equal(t, uint32(6), file.StatementMap[2].End)
}

func TestParseText_MapKeyUsedWhenPathFieldAbsent(t *testing.T) {
	content := `{"lib/x.js": {"l": {"1": 1}}}`

	report, err := ParseText(content)

	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, "lib/x.js", report.Files[0].Path)
}

func TestParseText_FunctionWithoutMetadata(t *testing.T) {
	content := `{"a.js": {"l": {"1": 1}, "f": {"0": 0}}}`

	report, err := ParseText(content)

	require.NoError(t, err)
	file := report.Files[0]
	assert.Equal(t, "(anonymous)", file.FunctionMap["0"].Name)
}

func TestParseText_Invalid(t *testing.T) {
	_, err := ParseText("not json")
	assert.Error(t, err)
}

func TestReadTree(t *testing.T) {
	root := t.TempDir()
	shardA := filepath.Join(root, "shard-a")
	shardB := filepath.Join(root, "shard-b")
	require.NoError(t, os.MkdirAll(shardA, 0o755))
	require.NoError(t, os.MkdirAll(shardB, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(shardA, "coverage-final.json"),
		[]byte(`{"x.ts": {"l": {"1": 1}}}`), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(shardB, "coverage-final.json"),
		[]byte(`broken`), 0o644))

	reports := ReadTree(root)

	// the malformed shard is skipped, not fatal
	require.Len(t, reports, 1)
	assert.Equal(t, "x.ts", reports[0].Files[0].Path)
}

func TestReadTree_MissingRoot(t *testing.T) {
	reports := ReadTree(filepath.Join(t.TempDir(), "absent"))
	assert.Empty(t, reports)
}
