package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/covlight/covlight/internal/analysis"
	"github.com/covlight/covlight/internal/coverage"
)

// istanbulTextReport renders the classic istanbul text table and
// returns it together with the column totals, which feed the summary
// block below it.
func istanbulTextReport(files []coverage.FileCoverage, summaries []analysis.FileSummary, maxCols int, opts Options) (string, analysis.FileSummary) {
	type row struct {
		name      string
		summary   analysis.FileSummary
		uncovered string
	}
	rows := make([]row, len(files))
	for i, file := range files {
		rows[i] = row{
			name:      strings.ReplaceAll(file.Path, "\\", "/"),
			summary:   summaries[i],
			uncovered: uncoveredLineNumbers(file.LineHits),
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	maxNameLen := 0
	for _, r := range rows {
		if n := len([]rune(r.name)) + 1; n > maxNameLen {
			maxNameLen = n
		}
	}
	fileWidth, missingWidth := istanbulTableWidths(maxNameLen, maxCols)
	headerFileWidth := fileWidth - 1

	var totals analysis.FileSummary
	for _, r := range rows {
		totals.Statements.Covered = coverage.SatAddU32(totals.Statements.Covered, r.summary.Statements.Covered)
		totals.Statements.Total = coverage.SatAddU32(totals.Statements.Total, r.summary.Statements.Total)
		totals.Branches.Covered = coverage.SatAddU32(totals.Branches.Covered, r.summary.Branches.Covered)
		totals.Branches.Total = coverage.SatAddU32(totals.Branches.Total, r.summary.Branches.Total)
		totals.Functions.Covered = coverage.SatAddU32(totals.Functions.Covered, r.summary.Functions.Covered)
		totals.Functions.Total = coverage.SatAddU32(totals.Functions.Total, r.summary.Functions.Total)
		totals.Lines.Covered = coverage.SatAddU32(totals.Lines.Covered, r.summary.Lines.Covered)
		totals.Lines.Total = coverage.SatAddU32(totals.Lines.Total, r.summary.Lines.Total)
	}

	dash := strings.Repeat("-", fileWidth) + "|---------|----------|---------|---------|" + strings.Repeat("-", missingWidth)
	header := fmt.Sprintf("%-*s | %% Stmts | %% Branch | %% Funcs | %% Lines |%s",
		headerFileWidth, "File", istanbulFill("Uncovered Line #s", missingWidth, 1))

	var out strings.Builder
	out.WriteString(dash)
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(dash)
	out.WriteString("\n")

	out.WriteString(istanbulTextRow("All files", totals, "", false, fileWidth, missingWidth, opts))
	out.WriteString("\n")
	for i, r := range rows {
		out.WriteString(istanbulTextRow(r.name, r.summary, r.uncovered, true, fileWidth, missingWidth, opts))
		if i+1 < len(rows) {
			out.WriteString("\n")
		}
	}
	out.WriteString("\n")
	out.WriteString(dash)
	return out.String(), totals
}

// istanbulSummary renders the boxed "Coverage summary" block.
func istanbulSummary(totals analysis.FileSummary, opts Options) string {
	top := "=============================== Coverage summary ==============================="
	bot := "================================================================================"
	return strings.Join([]string{
		top,
		summaryLine("Statements", totals.Statements, opts),
		summaryLine("Branches", totals.Branches, opts),
		summaryLine("Functions", totals.Functions, opts),
		summaryLine("Lines", totals.Lines, opts),
		bot,
	}, "\n")
}

func summaryLine(label string, counts analysis.Counts, opts Options) string {
	labelPad := 13 - len([]rune(label))
	if labelPad < 0 {
		labelPad = 0
	}
	pctForLabel, pctForCounts := 100.0, 0.0
	pctStr := "N/A"
	if counts.Total != 0 {
		pctForLabel = counts.Pct()
		pctForCounts = counts.Pct()
		pctStr = fmtPct(counts.Pct()) + "%"
	}
	return fmt.Sprintf("%s%s: %s %s",
		tintPct(pctForLabel, label, opts.Color),
		strings.Repeat(" ", labelPad),
		tintPct(pctForLabel, pctStr, opts.Color),
		tintPct(pctForCounts, fmt.Sprintf("( %d/%d )", counts.Covered, counts.Total), opts.Color))
}

func istanbulTextRow(name string, s analysis.FileSummary, uncovered string, indent bool, fileWidth, missingWidth int, opts Options) string {
	leader := 0
	if indent {
		leader = 1
	}
	remaining := fileWidth - leader
	if remaining < 1 {
		remaining = 1
	}
	fileCell := istanbulFill(shortenPathTail(name, remaining), fileWidth, leader)

	stmtsPct := fmtPct(s.Statements.Pct())
	branchesPct := "N/A"
	if s.Branches.Total != 0 {
		branchesPct = fmtPct(s.Branches.Pct())
	}
	funcsPct := fmtPct(s.Functions.Pct())
	linesPct := fmtPct(s.Lines.Pct())

	rowMin := math.Min(math.Min(s.Statements.Pct(), s.Branches.Pct()), math.Min(s.Functions.Pct(), s.Lines.Pct()))

	return tintPct(rowMin, fileCell, opts.Color) + "|" +
		tintPct(s.Statements.Pct(), fmt.Sprintf(" %7s ", stmtsPct), opts.Color) + "|" +
		tintPct(s.Branches.Pct(), fmt.Sprintf(" %8s ", branchesPct), opts.Color) + "|" +
		tintPct(s.Functions.Pct(), fmt.Sprintf(" %7s ", funcsPct), opts.Color) + "|" +
		tintPct(s.Lines.Pct(), fmt.Sprintf(" %7s ", linesPct), opts.Color) + "|" +
		tintPct(rowMin, istanbulFill(uncovered, missingWidth, 1), opts.Color)
}

func istanbulTableWidths(maxNameLen, maxCols int) (fileWidth, missingWidth int) {
	fileWidth = maxNameLen + 1
	if fileWidth < 10 {
		fileWidth = 10
	}
	const fixed = 9 + 10 + 9 + 9 + 5
	const minMissing = 19

	if maxCols > fixed+minMissing {
		missingWidth = maxCols - fixed - fileWidth
		if missingWidth < minMissing {
			missingWidth = minMissing
		}
		return fileWidth, missingWidth
	}
	return fileWidth, minMissing
}

// istanbulFill pads text into a fixed-width cell, truncating from the
// left with "..." when it does not fit.
func istanbulFill(text string, width, leadingSpaces int) string {
	if leadingSpaces > width {
		leadingSpaces = width
	}
	leader := strings.Repeat(" ", leadingSpaces)
	remaining := width - leadingSpaces
	if remaining == 0 {
		return leader
	}

	runes := []rune(text)
	if len(runes) <= remaining {
		return leader + text + strings.Repeat(" ", remaining-len(runes))
	}

	const ellipsis = "..."
	tailLen := remaining - len(ellipsis)
	if tailLen < 0 {
		tailLen = 0
	}
	return leader + ellipsis + string(runes[len(runes)-tailLen:])
}

// shortenPathTail is istanbul's file-column shortening: keep the tail.
func shortenPathTail(path string, max int) string {
	return shortenPathPreservingFilename(path, max)
}

// uncoveredLineNumbers renders istanbul's "Uncovered Line #s" cell:
// comma-joined ranges, collapsed to a single span when nothing in the
// file was hit.
func uncoveredLineNumbers(lineHits map[uint32]uint32) string {
	var lines []uint32
	allUncovered := len(lineHits) > 0
	for line, hit := range lineHits {
		if hit == 0 {
			lines = append(lines, line)
		} else {
			allUncovered = false
		}
	}
	if len(lines) == 0 {
		return ""
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })

	if allUncovered {
		start, end := lines[0], lines[len(lines)-1]
		if start == end {
			return fmt.Sprintf("%d", start)
		}
		return fmt.Sprintf("%d-%d", start, end)
	}

	var parts []string
	for i := 0; i < len(lines); {
		start := lines[i]
		end := start
		for i+1 < len(lines) && lines[i+1] == end+1 {
			i++
			end = lines[i]
		}
		if start == end {
			parts = append(parts, fmt.Sprintf("%d", start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
		i++
	}
	return strings.Join(parts, ",")
}

// fmtPct matches istanbul's number formatting: floor to two decimals,
// then trim trailing zeros and the dot.
func fmtPct(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		pct = 0
	}
	floored := math.Floor(pct*100.0) / 100.0
	fixed := fmt.Sprintf("%.2f", floored)
	fixed = strings.TrimRight(fixed, "0")
	return strings.TrimRight(fixed, ".")
}
