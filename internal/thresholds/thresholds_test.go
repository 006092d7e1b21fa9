package thresholds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covlight/covlight/internal/analysis"
	"github.com/covlight/covlight/internal/coverage"
)

func floor(v float64) *float64 { return &v }

func TestCheck_ShortfallMessage(t *testing.T) {
	report := coverage.Report{Files: []coverage.FileCoverage{
		{LinesTotal: 100, LinesCovered: 75},
	}}

	lines, ok := Check(Thresholds{Lines: floor(80)}, report)

	assert.False(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, "Lines: 75.00% < 80% (short 5.00%)", lines[0])
}

func TestCheck_NoFloorsPasses(t *testing.T) {
	report := coverage.Report{Files: []coverage.FileCoverage{{LinesTotal: 10}}}

	lines, ok := Check(Thresholds{}, report)

	assert.True(t, ok)
	assert.Empty(t, lines)
}

func TestCheck_MetFloorPasses(t *testing.T) {
	report := coverage.Report{Files: []coverage.FileCoverage{
		{LinesTotal: 4, LinesCovered: 3},
	}}

	lines, ok := Check(Thresholds{Lines: floor(75)}, report)

	assert.True(t, ok)
	assert.Empty(t, lines)
}

func TestCheck_VacuousMetricPasses(t *testing.T) {
	// no branches anywhere: branch coverage is vacuously 100%
	report := coverage.Report{Files: []coverage.FileCoverage{
		{LinesTotal: 2, LinesCovered: 2},
	}}

	lines, ok := Check(Thresholds{Branches: floor(90)}, report)

	assert.True(t, ok)
	assert.Empty(t, lines)
}

func TestFailureLines_FixedOrder(t *testing.T) {
	totals := Totals{
		Statements: analysis.Counts{Covered: 1, Total: 10},
		Branches:   analysis.Counts{Covered: 1, Total: 10},
		Functions:  analysis.Counts{Covered: 1, Total: 10},
		Lines:      analysis.Counts{Covered: 1, Total: 10},
	}
	floors := Thresholds{
		Lines:      floor(50),
		Functions:  floor(50),
		Branches:   floor(50),
		Statements: floor(50),
	}

	lines := FailureLines(floors, totals)

	require.Len(t, lines, 4)
	assert.Equal(t, "Statements: 10.00% < 50% (short 40.00%)", lines[0])
	assert.Equal(t, "Branches: 10.00% < 50% (short 40.00%)", lines[1])
	assert.Equal(t, "Functions: 10.00% < 50% (short 40.00%)", lines[2])
	assert.Equal(t, "Lines: 10.00% < 50% (short 40.00%)", lines[3])
}

func TestComputeTotals_StatementFallback(t *testing.T) {
	total, covered := uint32(8), uint32(4)
	report := coverage.Report{Files: []coverage.FileCoverage{
		{LinesTotal: 10, LinesCovered: 5, StatementsTotal: &total, StatementsCovered: &covered},
		{LinesTotal: 6, LinesCovered: 6},
	}}

	totals := ComputeTotals(report)

	// first file uses its statement counts, second falls back to lines
	assert.Equal(t, analysis.Counts{Covered: 10, Total: 14}, totals.Statements)
	assert.Equal(t, analysis.Counts{Covered: 11, Total: 16}, totals.Lines)
}

func TestComputeTotals_FunctionsAndBranches(t *testing.T) {
	report := coverage.Report{Files: []coverage.FileCoverage{{
		FunctionHits: map[string]uint32{"1:a": 1, "2:b": 0},
		BranchHits:   map[string][]uint32{"3:0": {1, 0}, "5:0": {2}},
	}}}

	totals := ComputeTotals(report)

	assert.Equal(t, analysis.Counts{Covered: 1, Total: 2}, totals.Functions)
	assert.Equal(t, analysis.Counts{Covered: 2, Total: 3}, totals.Branches)
}

func TestThresholdsEmpty(t *testing.T) {
	assert.True(t, Thresholds{}.Empty())
	assert.False(t, Thresholds{Statements: floor(1)}.Empty())
}
