package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixture() Report {
	return Report{Files: []FileCoverage{
		{Path: "/repo/src/lib.rs", LineHits: map[uint32]uint32{1: 1}},
		{Path: "/repo/src/gen/schema.rs", LineHits: map[uint32]uint32{1: 1}},
		{Path: "/repo/node_modules/dep/index.js", LineHits: map[uint32]uint32{1: 1}},
		{Path: "/repo/tests/it.rs", LineHits: map[uint32]uint32{1: 1}},
	}}
}

func paths(r Report) []string {
	out := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, f.Path)
	}
	return out
}

func TestFilter_NoGlobsKeepsEverything(t *testing.T) {
	out := Filter(filterFixture(), "/repo", nil, nil)
	assert.Len(t, out.Files, 4)
}

func TestFilter_Excludes(t *testing.T) {
	out := Filter(filterFixture(), "/repo", nil, []string{"**/node_modules/**", "src/gen/**"})

	assert.Equal(t, []string{"/repo/src/lib.rs", "/repo/tests/it.rs"}, paths(out))
}

func TestFilter_IncludesRestrict(t *testing.T) {
	out := Filter(filterFixture(), "/repo", []string{"src/**"}, nil)

	assert.Equal(t, []string{"/repo/src/lib.rs", "/repo/src/gen/schema.rs"}, paths(out))
}

func TestFilter_ExcludeWinsOverInclude(t *testing.T) {
	out := Filter(filterFixture(), "/repo", []string{"src/**"}, []string{"src/gen/**"})

	assert.Equal(t, []string{"/repo/src/lib.rs"}, paths(out))
}

func TestFilter_InvalidPatternIgnored(t *testing.T) {
	out := Filter(filterFixture(), "/repo", nil, []string{"[", "tests/**"})

	assert.NotContains(t, paths(out), "/repo/tests/it.rs")
	assert.Contains(t, paths(out), "/repo/src/lib.rs")
}

func TestFilter_CommutesWithMerge(t *testing.T) {
	a := Report{Files: []FileCoverage{
		{Path: "src/lib.rs", LineHits: map[uint32]uint32{1: 1}},
		{Path: "tests/it.rs", LineHits: map[uint32]uint32{1: 1}},
	}}
	b := Report{Files: []FileCoverage{
		{Path: "src/lib.rs", LineHits: map[uint32]uint32{2: 0}},
	}}
	excludes := []string{"tests/**"}

	mergedThenFiltered := Filter(Merge([]Report{a, b}, "/repo"), "/repo", nil, excludes)
	filteredThenMerged := Merge([]Report{
		Filter(a, "/repo", nil, excludes),
		Filter(b, "/repo", nil, excludes),
	}, "/repo")

	require.Equal(t, paths(mergedThenFiltered), paths(filteredThenMerged))
	assert.Equal(t, mergedThenFiltered.Totals(), filteredThenMerged.Totals())
}

func TestGlobSet(t *testing.T) {
	set := NewGlobSet([]string{"**/*.rs", "["})

	assert.False(t, set.Empty())
	assert.True(t, set.Match("src/deep/mod.rs"))
	assert.False(t, set.Match("src/mod.py"))
	assert.True(t, NewGlobSet(nil).Empty())
}
