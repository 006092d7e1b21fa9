// Package analysis derives per-file review signals from merged coverage:
// count summaries, uncovered hotspot ranges, missed functions and missed
// branch arms. Renderers and threshold checks both build on it.
package analysis

import (
	"sort"
	"strings"

	"github.com/covlight/covlight/internal/coverage"
)

// Counts is a covered-of-total pair for one metric.
type Counts struct {
	Covered uint32
	Total   uint32
}

// Pct returns the covered percentage. An empty metric is vacuously 100.
func (c Counts) Pct() float64 {
	if c.Total == 0 {
		return 100.0
	}
	return float64(c.Covered) / float64(c.Total) * 100.0
}

// FileSummary holds the four metric counts for one file.
type FileSummary struct {
	Statements Counts
	Branches   Counts
	Functions  Counts
	Lines      Counts
}

// UncoveredRange is an inclusive run of uncovered lines.
type UncoveredRange struct {
	Start uint32
	End   uint32
}

// Len returns the number of lines the range spans.
func (r UncoveredRange) Len() uint32 { return r.End - r.Start + 1 }

// MissedFunction is a function with zero recorded executions.
type MissedFunction struct {
	Name string
	Line uint32
}

// MissedBranch is a branch site with at least one never-taken arm.
type MissedBranch struct {
	ID        string
	Line      uint32
	ZeroPaths []uint32
}

// Summarize computes the metric counts for one file. Statement counts
// fall back to line hits when the file carries no statement detail, so
// line-only formats still report a statements column.
func Summarize(file coverage.FileCoverage) FileSummary {
	lines := Counts{Total: coverage.ClampU32(uint64(len(file.LineHits)))}
	for _, hit := range file.LineHits {
		if hit > 0 {
			lines.Covered = coverage.SatAddU32(lines.Covered, 1)
		}
	}

	statements := lines
	if len(file.StatementHits) > 0 {
		statements = Counts{Total: coverage.ClampU32(uint64(len(file.StatementHits)))}
		for _, hit := range file.StatementHits {
			if hit > 0 {
				statements.Covered = coverage.SatAddU32(statements.Covered, 1)
			}
		}
	} else if file.StatementsTotal != nil {
		statements = Counts{Total: *file.StatementsTotal}
		if file.StatementsCovered != nil {
			statements.Covered = *file.StatementsCovered
		}
	}

	functions := Counts{Total: coverage.ClampU32(uint64(len(file.FunctionHits)))}
	for _, hit := range file.FunctionHits {
		if hit > 0 {
			functions.Covered = coverage.SatAddU32(functions.Covered, 1)
		}
	}

	var branches Counts
	for _, arms := range file.BranchHits {
		branches.Total = coverage.SatAddU32(branches.Total, coverage.ClampU32(uint64(len(arms))))
		for _, hit := range arms {
			if hit > 0 {
				branches.Covered = coverage.SatAddU32(branches.Covered, 1)
			}
		}
	}

	return FileSummary{
		Statements: statements,
		Branches:   branches,
		Functions:  functions,
		Lines:      lines,
	}
}

// UncoveredBlocks coalesces a file's uncovered lines into inclusive
// ranges, widest first. With statement detail present, ranges come from
// the spans of zero-hit statements; otherwise from zero-hit lines.
func UncoveredBlocks(file coverage.FileCoverage) []UncoveredRange {
	var lines []uint32
	if len(file.StatementHits) == 0 {
		for line, hit := range file.LineHits {
			if hit == 0 {
				lines = append(lines, line)
			}
		}
	} else {
		seen := map[uint32]struct{}{}
		for id, hit := range file.StatementHits {
			if hit != 0 {
				continue
			}
			if span, ok := file.StatementMap[id]; ok {
				from := span.Start
				if from < 1 {
					from = 1
				}
				to := span.End
				if to < from {
					to = from
				}
				for line := from; line <= to; line++ {
					if _, dup := seen[line]; !dup {
						seen[line] = struct{}{}
						lines = append(lines, line)
					}
					if line == ^uint32(0) {
						break
					}
				}
				continue
			}
			if line := coverage.StatementIDLine(id); line > 0 {
				if _, dup := seen[line]; !dup {
					seen[line] = struct{}{}
					lines = append(lines, line)
				}
			}
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })

	var ranges []UncoveredRange
	for i := 0; i < len(lines); {
		start := lines[i]
		end := start
		for i+1 < len(lines) && lines[i+1] == end+1 {
			i++
			end = lines[i]
		}
		ranges = append(ranges, UncoveredRange{Start: start, End: end})
		i++
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		li, lj := ranges[i].Len(), ranges[j].Len()
		if li != lj {
			return li > lj
		}
		return ranges[i].Start < ranges[j].Start
	})
	return ranges
}

// MissedFunctions lists zero-hit functions in source order.
func MissedFunctions(file coverage.FileCoverage) []MissedFunction {
	var out []MissedFunction
	for id, hit := range file.FunctionHits {
		if hit != 0 {
			continue
		}
		name := "(anonymous)"
		var line uint32
		if meta, ok := file.FunctionMap[id]; ok {
			name = meta.Name
			line = meta.Line
		}
		out = append(out, MissedFunction{Name: FormatFunctionName(name), Line: line})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MissedBranches lists branch sites with never-taken arms in source order.
func MissedBranches(file coverage.FileCoverage) []MissedBranch {
	var out []MissedBranch
	for id, arms := range file.BranchHits {
		var zeros []uint32
		for index, hit := range arms {
			if hit == 0 {
				zeros = append(zeros, uint32(index))
			}
		}
		if len(zeros) == 0 {
			continue
		}
		out = append(out, MissedBranch{
			ID:        id,
			Line:      file.BranchMap[id],
			ZeroPaths: zeros,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CompositeBarPct collapses a file's metrics into one bar value: the
// weakest of the three percentages, minus a concentration penalty of up
// to 15 points when uncovered lines cluster into a large hotspot.
func CompositeBarPct(summary FileSummary, hotspots []UncoveredRange) float64 {
	base := summary.Lines.Pct()
	if p := summary.Functions.Pct(); p < base {
		base = p
	}
	if p := summary.Branches.Pct(); p < base {
		base = p
	}

	var penalty float64
	if summary.Lines.Total > 0 && len(hotspots) > 0 {
		var largest uint32
		for _, r := range hotspots {
			if r.Len() > largest {
				largest = r.Len()
			}
		}
		concentration := float64(largest) / float64(summary.Lines.Total)
		rounded := float64(int64(concentration*100.0*0.5 + 0.5))
		if rounded > 15 {
			rounded = 15
		}
		penalty = rounded
	}

	pct := base - penalty
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// FormatFunctionName makes compiler-generated symbol names readable:
// bracketed disambiguators are dropped and only the last three path
// segments are kept. Plain names pass through unchanged.
func FormatFunctionName(raw string) string {
	if !strings.Contains(raw, "::") && !strings.ContainsAny(raw, "[]") {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	skipping := false
	for _, ch := range raw {
		if skipping {
			if ch == ']' {
				skipping = false
			}
			continue
		}
		if ch == '[' {
			skipping = true
			continue
		}
		b.WriteRune(ch)
	}
	cleaned := b.String()

	segments := strings.Split(cleaned, "::")
	const keep = 3
	if len(segments) > keep {
		segments = segments[len(segments)-keep:]
	}
	return strings.Join(segments, "::")
}
