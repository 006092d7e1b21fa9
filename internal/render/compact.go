package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/covlight/covlight/internal/analysis"
	"github.com/covlight/covlight/internal/coverage"
	"github.com/covlight/covlight/internal/thresholds"
)

// Compact renders the fallback one-line-per-file report used when the
// table renderer is not wanted, optionally with hotspot callouts.
func Compact(report coverage.Report, opts Options, includeHotspots bool) string {
	files := append([]coverage.FileCoverage(nil), report.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	files = worstFiles(files, opts.MaxFiles)

	var out strings.Builder
	for _, file := range files {
		summary := analysis.Summarize(file)
		lPct := summary.Lines.Pct()
		out.WriteString(fmt.Sprintf("%s %s  lines %d/%d",
			tintPct(lPct, fmt.Sprintf("%6s%%", fmtPct(lPct)), opts.Color),
			file.Path,
			summary.Lines.Covered, summary.Lines.Total))
		if summary.Branches.Total > 0 {
			out.WriteString(fmt.Sprintf("  branches %d/%d", summary.Branches.Covered, summary.Branches.Total))
		}
		if summary.Functions.Total > 0 {
			out.WriteString(fmt.Sprintf("  funcs %d/%d", summary.Functions.Covered, summary.Functions.Total))
		}
		out.WriteString("\n")
		if includeHotspots {
			out.WriteString(Hotspots(file, opts))
		}
	}

	totals := thresholds.ComputeTotals(report)
	out.WriteString(fmt.Sprintf("total: lines %s (%d/%d)",
		tintPct(totals.Lines.Pct(), fmtPct(totals.Lines.Pct())+"%", opts.Color),
		totals.Lines.Covered, totals.Lines.Total))
	return out.String()
}

// worstFiles keeps the limit files with the lowest line coverage,
// preserving the incoming path order. The totals line still covers the
// whole report; only the listing is capped.
func worstFiles(files []coverage.FileCoverage, limit uint32) []coverage.FileCoverage {
	if limit == 0 || int(limit) >= len(files) {
		return files
	}
	ranked := append([]coverage.FileCoverage(nil), files...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Pct() < ranked[j].Pct() })
	keep := make(map[string]bool, limit)
	for _, file := range ranked[:limit] {
		keep[file.Path] = true
	}
	out := make([]coverage.FileCoverage, 0, limit)
	for _, file := range files {
		if keep[file.Path] {
			out = append(out, file)
		}
	}
	return out
}

// Hotspots renders indented hotspot lines for one file, empty when the
// file has no uncovered ranges.
func Hotspots(file coverage.FileCoverage, opts Options) string {
	blocks := analysis.UncoveredBlocks(file)
	if len(blocks) == 0 {
		return ""
	}
	max := 5
	if opts.MaxHotspots > 0 {
		max = int(opts.MaxHotspots)
	}
	var out strings.Builder
	for i, block := range blocks {
		if i >= max {
			break
		}
		out.WriteString(fmt.Sprintf("    hotspot L%d–L%d (%d lines)\n", block.Start, block.End, block.Len()))
	}
	return out.String()
}

// ThresholdFailureSummary formats the block a failing threshold check
// prints before exiting nonzero.
func ThresholdFailureSummary(lines []string) string {
	out := []string{"", "Coverage thresholds not met"}
	for _, line := range lines {
		out = append(out, " "+line)
	}
	return strings.Join(out, "\n")
}
