package render

import (
	"fmt"
	"strings"

	"github.com/covlight/covlight/internal/analysis"
	"github.com/covlight/covlight/internal/coverage"
)

// perFileLayout is the shared geometry of every per-file table in one
// rendering pass.
type perFileLayout struct {
	columns []columnSpec
	widths  []int
	frame   tableFrame
}

func buildPerFileLayout(totalWidth int, opts Options) perFileLayout {
	total := totalWidth
	if total <= 20 {
		total = 100
	}
	fileMax := int(float64(total) * 0.42)
	if fileMax < 32 {
		fileMax = 32
	}
	detailMax := int(float64(total) * 0.22)
	if detailMax < 20 {
		detailMax = 20
	}
	barMax := int(float64(total) * 0.06)
	if barMax < 6 {
		barMax = 6
	}

	columns := []columnSpec{
		{label: "File", min: 28, max: fileMax},
		{label: "Section", min: 8, max: 10},
		{label: "Where", min: 10, max: 14},
		{label: "Lines%", min: 6, max: 7, alignRight: true},
		{label: "Bar", min: 6, max: barMax},
		{label: "Funcs%", min: 6, max: 7, alignRight: true},
		{label: "Branch%", min: 7, max: 8, alignRight: true},
		{label: "Detail", min: 18, max: detailMax},
	}
	widths := computeColumnWidths(totalWidth, columns)
	return perFileLayout{
		columns: columns,
		widths:  widths,
		frame:   buildTableFrame(columns, widths, opts.Color),
	}
}

type perFileInput struct {
	file        coverage.FileCoverage
	summary     analysis.FileSummary
	blocks      []analysis.UncoveredRange
	missedFns   []analysis.MissedFunction
	missedBrs   []analysis.MissedBranch
	maxRows     int
	layout      perFileLayout
	maxHotspots uint32
}

func pctText(pct float64) string {
	tenths := int64(pct*10.0 + 0.5)
	switch tenths {
	case 0:
		return "0.0%"
	case 1000:
		return "100.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(tenths)/10.0)
}

// writePerFileTable emits one composite table: a summary row, a totals
// row, then hotspot, function and branch sections sized to the row
// budget, with remaining rows filled by individual uncovered lines.
func writePerFileTable(out *strings.Builder, in perFileInput, opts Options) {
	const rowsAvail = 40
	tableBudget := in.maxRows
	if tableBudget > rowsAvail+8 {
		tableBudget = rowsAvail + 8
	}
	if tableBudget < 14 {
		tableBudget = 14
	}
	rowBudget := tableBudget - 6
	if rowBudget < 6 {
		rowBudget = 6
	}

	fileColWidth := 28
	if len(in.layout.widths) > 0 {
		fileColWidth = in.layout.widths[0]
	}
	fileText := shortenPathPreservingFilename(in.file.Path, fileColWidth)

	lPct := in.summary.Lines.Pct()
	fPct := in.summary.Functions.Pct()
	bPct := in.summary.Branches.Pct()
	lText := pctText(lPct)
	fText := pctText(fPct)
	bText := pctText(bPct)
	if in.summary.Branches.Total == 0 {
		bText = "N/A"
	}

	var rows [][]cell
	rows = append(rows, []cell{
		plainCell(fileText),
		{raw: "Summary", decor: decorBold},
		plainCell("—"),
		tintCell(lText, lPct),
		{decor: decorBar, pct: analysis.CompositeBarPct(in.summary, in.blocks)},
		tintCell(fText, fPct),
		tintCell(bText, bPct),
		plainCell(""),
	})
	rows = append(rows, []cell{
		{raw: fileText, decor: decorDim},
		{raw: "Totals", decor: decorDim},
		{raw: "—", decor: decorDim},
		{raw: lText, decor: decorDim},
		{decor: decorDim},
		{raw: fText, decor: decorDim},
		{raw: bText, decor: decorDim},
		plainCell(""),
	})

	if len(in.blocks) > 0 || len(in.missedFns) > 0 || len(in.missedBrs) > 0 {
		wantHS := int(float64(rowBudget)*0.45 + 0.999)
		if in.maxHotspots > 0 {
			wantHS = int(in.maxHotspots)
		}
		if wantHS > len(in.blocks) {
			wantHS = len(in.blocks)
		}
		if wantHS > 0 {
			rows = append(rows, dimSectionRow(fileText, "Hotspots", "(largest uncovered ranges)"))
			for _, hs := range in.blocks[:wantHS] {
				rows = append(rows, []cell{
					plainCell(fileText),
					plainCell("Hotspot"),
					plainCell(fmt.Sprintf("L%d–L%d", hs.Start, hs.End)),
					plainCell(""),
					plainCell(""),
					plainCell(""),
					plainCell(""),
					plainCell(fmt.Sprintf("%d lines", hs.Len())),
				})
			}
		}

		wantFn := int(float64(rowBudget)*0.25 + 0.999)
		if wantFn > len(in.missedFns) {
			wantFn = len(in.missedFns)
		}
		if wantFn > 0 {
			rows = append(rows, dimSectionRow(fileText, "Functions", "(never executed)"))
			for _, missed := range in.missedFns[:wantFn] {
				rows = append(rows, []cell{
					plainCell(fileText),
					plainCell("Func"),
					plainCell(fmt.Sprintf("L%d", missed.Line)),
					plainCell(""),
					plainCell(""),
					plainCell(""),
					plainCell(""),
					plainCell(missed.Name),
				})
			}
		}

		wantBr := int(float64(rowBudget)*0.2 + 0.999)
		if wantBr > len(in.missedBrs) {
			wantBr = len(in.missedBrs)
		}
		if wantBr > 0 {
			rows = append(rows, dimSectionRow(fileText, "Branches", "(paths with 0 hits)"))
			for _, missed := range in.missedBrs[:wantBr] {
				paths := make([]string, len(missed.ZeroPaths))
				for i, p := range missed.ZeroPaths {
					paths[i] = fmt.Sprintf("%d", p)
				}
				rows = append(rows, []cell{
					plainCell(fileText),
					plainCell("Branch"),
					plainCell(fmt.Sprintf("L%d", missed.Line)),
					plainCell(""),
					plainCell(""),
					plainCell(""),
					plainCell(""),
					plainCell(fmt.Sprintf("#%s missed [%s]", missed.ID, strings.Join(paths, ", "))),
				})
			}
		}

		target := rowBudget
		if opts.TTY {
			target++
		}
		if len(rows) < target {
			lines := uncoveredLines(in.blocks, 5000)
			next := 0
			for len(rows) < target {
				if next < len(lines) {
					rows = append(rows, []cell{
						plainCell(fileText),
						plainCell("Line"),
						plainCell(fmt.Sprintf("L%d", lines[next])),
						plainCell(""),
						plainCell(""),
						plainCell(""),
						plainCell(""),
						plainCell("uncovered"),
					})
					next++
					continue
				}
				rows = append(rows, make([]cell, 8))
			}
		}
	}

	writeTable(out, in.layout.frame, in.layout.columns, in.layout.widths, rows, opts)
}

func dimSectionRow(fileText, section, note string) []cell {
	return []cell{
		{raw: fileText, decor: decorDim},
		{raw: section, decor: decorDim},
		{decor: decorDim},
		{decor: decorDim},
		{decor: decorDim},
		{decor: decorDim},
		{decor: decorDim},
		{raw: note, decor: decorDim},
	}
}

// uncoveredLines expands hotspot ranges back into individual lines, in
// range order, capped to keep pathological files bounded.
func uncoveredLines(blocks []analysis.UncoveredRange, limit int) []uint32 {
	var out []uint32
	for _, block := range blocks {
		for line := block.Start; ; line++ {
			if len(out) >= limit {
				return out
			}
			out = append(out, line)
			if line >= block.End {
				break
			}
		}
	}
	return out
}
