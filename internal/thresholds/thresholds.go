// Package thresholds evaluates repo-wide coverage floors against a
// merged report and formats the shortfall lines a failing check prints.
package thresholds

import (
	"fmt"

	"github.com/covlight/covlight/internal/analysis"
	"github.com/covlight/covlight/internal/coverage"
)

// Thresholds holds minimum percentages per metric. A nil floor means the
// metric is not enforced.
type Thresholds struct {
	Lines      *float64 `yaml:"lines,omitempty"`
	Functions  *float64 `yaml:"functions,omitempty"`
	Branches   *float64 `yaml:"branches,omitempty"`
	Statements *float64 `yaml:"statements,omitempty"`
}

// Empty reports whether no floor is configured.
func (t Thresholds) Empty() bool {
	return t.Lines == nil && t.Functions == nil && t.Branches == nil && t.Statements == nil
}

// Totals aggregates the four metrics over every file in a report.
type Totals struct {
	Statements analysis.Counts
	Branches   analysis.Counts
	Functions  analysis.Counts
	Lines      analysis.Counts
}

// ComputeTotals sums per-file counts across the report. Files without
// statement detail contribute their line counts to the statement totals,
// so a mixed-format report still yields one comparable statement figure.
func ComputeTotals(report coverage.Report) Totals {
	var out Totals
	for _, file := range report.Files {
		out.Lines.Total = coverage.SatAddU32(out.Lines.Total, file.LinesTotal)
		out.Lines.Covered = coverage.SatAddU32(out.Lines.Covered, file.LinesCovered)

		out.Functions.Total = coverage.SatAddU32(out.Functions.Total, coverage.ClampU32(uint64(len(file.FunctionHits))))
		for _, hit := range file.FunctionHits {
			if hit > 0 {
				out.Functions.Covered = coverage.SatAddU32(out.Functions.Covered, 1)
			}
		}

		for _, arms := range file.BranchHits {
			out.Branches.Total = coverage.SatAddU32(out.Branches.Total, coverage.ClampU32(uint64(len(arms))))
			for _, hit := range arms {
				if hit > 0 {
					out.Branches.Covered = coverage.SatAddU32(out.Branches.Covered, 1)
				}
			}
		}

		if file.StatementsTotal != nil && file.StatementsCovered != nil {
			out.Statements.Total = coverage.SatAddU32(out.Statements.Total, *file.StatementsTotal)
			out.Statements.Covered = coverage.SatAddU32(out.Statements.Covered, *file.StatementsCovered)
		} else {
			out.Statements.Total = coverage.SatAddU32(out.Statements.Total, file.LinesTotal)
			out.Statements.Covered = coverage.SatAddU32(out.Statements.Covered, file.LinesCovered)
		}
	}
	return out
}

// FailureLines returns one formatted line per metric falling short of
// its floor, in the fixed order statements, branches, functions, lines.
// An empty slice means every configured floor is met.
func FailureLines(t Thresholds, totals Totals) []string {
	var out []string
	out = appendIfShort(out, "Statements", t.Statements, totals.Statements)
	out = appendIfShort(out, "Branches", t.Branches, totals.Branches)
	out = appendIfShort(out, "Functions", t.Functions, totals.Functions)
	out = appendIfShort(out, "Lines", t.Lines, totals.Lines)
	return out
}

// Check evaluates the floors against a report. The returned lines are
// non-empty exactly when the check fails.
func Check(t Thresholds, report coverage.Report) (lines []string, ok bool) {
	if t.Empty() {
		return nil, true
	}
	lines = FailureLines(t, ComputeTotals(report))
	return lines, len(lines) == 0
}

func appendIfShort(out []string, label string, floor *float64, counts analysis.Counts) []string {
	if floor == nil {
		return out
	}
	actual := counts.Pct()
	if !(actual < *floor) {
		return out
	}
	short := *floor - actual
	if short < 0 {
		short = 0
	}
	return append(out, fmt.Sprintf("%s: %.2f%% < %.0f%% (short %.2f%%)", label, actual, *floor, short))
}
