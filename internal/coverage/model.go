// Package coverage defines the common coverage data model shared by every
// artifact parser, plus the merge, filter, and path-normalization stages
// that operate on it.
//
// A Report is built fresh per invocation from on-disk artifacts and never
// persisted. All transformations construct new values; nothing here mutates
// artifacts on disk.
package coverage

import (
	"math"
	"slices"
)

// Report is an unordered collection of per-file coverage, keyed by
// normalized absolute path after merge.
type Report struct {
	Files []FileCoverage
}

// FileCoverage holds every counter the engine tracks for one source file.
//
// LineHits is sparse: only instrumented lines are present, and a line is
// covered iff its count is > 0. StatementHits and StatementMap are present
// only when the source format carries sub-line statement granularity;
// analysis falls back to LineHits when they are absent.
type FileCoverage struct {
	Path string

	LinesTotal   uint32
	LinesCovered uint32

	// Statement totals are nil unless a statement-granular source
	// contributed to this file.
	StatementsTotal   *uint32
	StatementsCovered *uint32

	StatementHits map[uint64]uint32
	StatementMap  map[uint64]LineRange

	UncoveredLines []uint32
	LineHits       map[uint32]uint32

	FunctionHits map[string]uint32
	FunctionMap  map[string]FunctionMeta

	BranchHits map[string][]uint32
	BranchMap  map[string]uint32
}

// LineRange is an inclusive source line span.
type LineRange struct {
	Start uint32
	End   uint32
}

// FunctionMeta carries the display name and start line for a function id.
type FunctionMeta struct {
	Name string
	Line uint32
}

// Totals aggregates line counts across a report.
type Totals struct {
	LinesTotal   uint32
	LinesCovered uint32
}

// Pct returns the line coverage percentage. A report with no instrumented
// lines is vacuously 100% covered.
func (t Totals) Pct() float64 {
	if t.LinesTotal == 0 {
		return 100.0
	}
	return float64(t.LinesCovered) / float64(t.LinesTotal) * 100.0
}

// Totals sums line counts over all files, saturating.
func (r Report) Totals() Totals {
	var acc Totals
	for _, f := range r.Files {
		acc.LinesTotal = satAddU32(acc.LinesTotal, f.LinesTotal)
		acc.LinesCovered = satAddU32(acc.LinesCovered, f.LinesCovered)
	}
	return acc
}

// Pct returns the file's line coverage percentage.
func (f FileCoverage) Pct() float64 {
	return Totals{LinesTotal: f.LinesTotal, LinesCovered: f.LinesCovered}.Pct()
}

// ClampU32 narrows an externally sourced count to uint32, clamping at the
// maximum instead of wrapping. Artifact counts may be 64-bit; clamp-on-cast
// is a data-model invariant, not an error condition.
func ClampU32(v uint64) uint32 {
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

func satAddU32(a, b uint32) uint32 {
	s := a + b
	if s < a {
		return math.MaxUint32
	}
	return s
}

// SatAddU32 adds two counts, saturating at the uint32 maximum.
func SatAddU32(a, b uint32) uint32 { return satAddU32(a, b) }

// LineTotals folds a sparse line-hit map into (covered, total, uncovered)
// with uncovered lines sorted ascending.
func LineTotals(hits map[uint32]uint32) (covered, total uint32, uncovered []uint32) {
	for ln, h := range hits {
		total = satAddU32(total, 1)
		if h > 0 {
			covered = satAddU32(covered, 1)
		} else {
			uncovered = append(uncovered, ln)
		}
	}
	slices.Sort(uncovered)
	return covered, total, uncovered
}

// ApplyStatementTotals overlays per-path statement totals (e.g. from a
// coverage.py summary) onto a line-hit report. Files without an entry are
// returned unchanged.
func ApplyStatementTotals(report Report, totalsByPath map[string]StatementTotals) Report {
	files := make([]FileCoverage, 0, len(report.Files))
	for _, f := range report.Files {
		if st, ok := totalsByPath[f.Path]; ok {
			total, covered := st.Total, st.Covered
			f.StatementsTotal = &total
			f.StatementsCovered = &covered
		}
		files = append(files, f)
	}
	return Report{Files: files}
}

// ApplyStatementHits overlays per-path statement hit maps (e.g. from an
// llvm-cov export) onto a line-hit report, recomputing statement totals
// from the map.
func ApplyStatementHits(report Report, hitsByPath map[string]map[uint64]uint32) Report {
	files := make([]FileCoverage, 0, len(report.Files))
	for _, f := range report.Files {
		if hits, ok := hitsByPath[f.Path]; ok {
			total := ClampU32(uint64(len(hits)))
			var covered uint32
			for _, h := range hits {
				if h > 0 {
					covered = satAddU32(covered, 1)
				}
			}
			f.StatementHits = hits
			f.StatementsTotal = &total
			f.StatementsCovered = &covered
		}
		files = append(files, f)
	}
	return Report{Files: files}
}

// StatementTotals is a (total, covered) statement count pair for one file.
type StatementTotals struct {
	Total   uint32
	Covered uint32
}
