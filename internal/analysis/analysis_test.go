package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covlight/covlight/internal/coverage"
)

func TestSummarize_LineOnlyFile(t *testing.T) {
	file := coverage.FileCoverage{
		LineHits:     map[uint32]uint32{1: 2, 2: 0, 3: 1, 4: 0},
		FunctionHits: map[string]uint32{"1:f": 1, "3:g": 0},
		BranchHits:   map[string][]uint32{"2:0": {1, 0, 0}},
	}

	s := Summarize(file)

	assert.Equal(t, Counts{Covered: 2, Total: 4}, s.Lines)
	// statements mirror lines when no statement detail exists
	assert.Equal(t, Counts{Covered: 2, Total: 4}, s.Statements)
	assert.Equal(t, Counts{Covered: 1, Total: 2}, s.Functions)
	assert.Equal(t, Counts{Covered: 1, Total: 3}, s.Branches)
}

func TestSummarize_StatementHitsPreferred(t *testing.T) {
	file := coverage.FileCoverage{
		LineHits: map[uint32]uint32{1: 1, 2: 0},
		StatementHits: map[uint64]uint32{
			coverage.StatementID(1, 1): 1,
			coverage.StatementID(1, 9): 0,
			coverage.StatementID(2, 1): 0,
		},
	}

	s := Summarize(file)

	assert.Equal(t, Counts{Covered: 1, Total: 3}, s.Statements)
	assert.Equal(t, Counts{Covered: 1, Total: 2}, s.Lines)
}

func TestSummarize_StatementTotalsOverlay(t *testing.T) {
	total, covered := uint32(10), uint32(6)
	file := coverage.FileCoverage{
		LineHits:          map[uint32]uint32{1: 1},
		StatementsTotal:   &total,
		StatementsCovered: &covered,
	}

	s := Summarize(file)

	assert.Equal(t, Counts{Covered: 6, Total: 10}, s.Statements)
}

func TestCountsPct(t *testing.T) {
	assert.Equal(t, 100.0, Counts{}.Pct())
	assert.Equal(t, 25.0, Counts{Covered: 1, Total: 4}.Pct())
}

func TestUncoveredBlocks_CoalescesAndOrdersByLength(t *testing.T) {
	file := coverage.FileCoverage{
		LineHits: map[uint32]uint32{
			1: 1, 3: 0, 4: 0, 5: 0, 7: 1, 9: 0,
		},
	}

	blocks := UncoveredBlocks(file)

	require.Len(t, blocks, 2)
	assert.Equal(t, UncoveredRange{Start: 3, End: 5}, blocks[0])
	assert.Equal(t, UncoveredRange{Start: 9, End: 9}, blocks[1])
	assert.Equal(t, uint32(3), blocks[0].Len())
}

func TestUncoveredBlocks_EqualLengthsOrderByStart(t *testing.T) {
	file := coverage.FileCoverage{
		LineHits: map[uint32]uint32{9: 0, 10: 0, 2: 0, 3: 0},
	}

	blocks := UncoveredBlocks(file)

	require.Len(t, blocks, 2)
	assert.Equal(t, UncoveredRange{Start: 2, End: 3}, blocks[0])
	assert.Equal(t, UncoveredRange{Start: 9, End: 10}, blocks[1])
}

func TestUncoveredBlocks_FromStatementSpans(t *testing.T) {
	file := coverage.FileCoverage{
		LineHits: map[uint32]uint32{1: 1},
		StatementHits: map[uint64]uint32{
			coverage.StatementID(4, 1): 0,
			coverage.StatementID(6, 1): 0,
			coverage.StatementID(9, 1): 1,
		},
		StatementMap: map[uint64]coverage.LineRange{
			coverage.StatementID(4, 1): {Start: 4, End: 5},
			coverage.StatementID(6, 1): {Start: 6, End: 6},
		},
	}

	blocks := UncoveredBlocks(file)

	require.Len(t, blocks, 1)
	assert.Equal(t, UncoveredRange{Start: 4, End: 6}, blocks[0])
}

func TestUncoveredBlocks_SpanFallsBackToIDLine(t *testing.T) {
	// no StatementMap entry: the packed id's line half is used instead
	file := coverage.FileCoverage{
		StatementHits: map[uint64]uint32{
			coverage.StatementID(12, 3): 0,
		},
	}

	blocks := UncoveredBlocks(file)

	require.Len(t, blocks, 1)
	assert.Equal(t, UncoveredRange{Start: 12, End: 12}, blocks[0])
}

func TestMissedFunctions(t *testing.T) {
	file := coverage.FileCoverage{
		FunctionHits: map[string]uint32{"9:b": 0, "3:a": 0, "5:c": 2, "0:x": 0},
		FunctionMap: map[string]coverage.FunctionMeta{
			"9:b": {Name: "crate::mod::sub::b", Line: 9},
			"3:a": {Name: "a", Line: 3},
			"5:c": {Name: "c", Line: 5},
		},
	}

	missed := MissedFunctions(file)

	require.Len(t, missed, 3)
	assert.Equal(t, MissedFunction{Name: "(anonymous)", Line: 0}, missed[0])
	assert.Equal(t, MissedFunction{Name: "a", Line: 3}, missed[1])
	assert.Equal(t, MissedFunction{Name: "mod::sub::b", Line: 9}, missed[2])
}

func TestMissedBranches(t *testing.T) {
	file := coverage.FileCoverage{
		BranchHits: map[string][]uint32{
			"7:0": {1, 0, 0},
			"2:0": {0, 1},
			"4:0": {1, 1},
		},
		BranchMap: map[string]uint32{"7:0": 7, "2:0": 2, "4:0": 4},
	}

	missed := MissedBranches(file)

	require.Len(t, missed, 2)
	assert.Equal(t, MissedBranch{ID: "2:0", Line: 2, ZeroPaths: []uint32{0}}, missed[0])
	assert.Equal(t, MissedBranch{ID: "7:0", Line: 7, ZeroPaths: []uint32{1, 2}}, missed[1])
}

func TestCompositeBarPct(t *testing.T) {
	summary := FileSummary{
		Lines:     Counts{Covered: 80, Total: 100},
		Functions: Counts{Covered: 9, Total: 10},
		Branches:  Counts{Covered: 7, Total: 10},
	}

	// weakest metric is branches at 70; one 10-line hotspot over 100
	// lines adds a 5-point concentration penalty
	pct := CompositeBarPct(summary, []UncoveredRange{{Start: 1, End: 10}})
	assert.InDelta(t, 65.0, pct, 0.001)
}

func TestCompositeBarPct_PenaltyCapped(t *testing.T) {
	summary := FileSummary{Lines: Counts{Covered: 10, Total: 100}}

	// a 90-line hotspot would be 45 points; the cap holds it at 15,
	// and 10 - 15 floors at zero
	pct := CompositeBarPct(summary, []UncoveredRange{{Start: 11, End: 100}})
	assert.InDelta(t, 0.0, pct, 0.001)
}

func TestCompositeBarPct_NoHotspots(t *testing.T) {
	summary := FileSummary{Lines: Counts{Covered: 3, Total: 4}}
	assert.InDelta(t, 75.0, CompositeBarPct(summary, nil), 0.001)
}

func TestFormatFunctionName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"plain", "plain"},
		{"a::b", "a::b"},
		{"crate::mod::sub::leaf", "mod::sub::leaf"},
		{"foo::<impl Bar>[412]::baz", "foo::<impl Bar>::baz"},
		{"[abc]name", "name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFunctionName(tt.raw), tt.raw)
	}
}
