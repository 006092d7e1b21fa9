package render

import "strings"

// columnSpec describes one column of a framed table.
type columnSpec struct {
	label      string
	min        int
	max        int
	alignRight bool
}

type decorKind int

const (
	decorNone decorKind = iota
	decorBold
	decorDim
	decorTint
	decorBar
)

// cell is one table cell. pct feeds the tint and bar decors; href wraps
// the cell in an OSC-8 hyperlink.
type cell struct {
	raw   string
	decor decorKind
	pct   float64
	href  string
}

func plainCell(raw string) cell { return cell{raw: raw} }

func tintCell(raw string, pct float64) cell {
	return cell{raw: raw, decor: decorTint, pct: pct}
}

// computeColumnWidths distributes the terminal width over the columns.
// Every column gets at least its minimum; leftover budget grows columns
// left to right up to their maximums. When even the minimums do not fit,
// they are scaled down proportionally.
func computeColumnWidths(totalWidth int, columns []columnSpec) []int {
	borders := len(columns) + 1
	budget := totalWidth - borders
	if budget < 1 {
		budget = 1
	}

	minSum, maxSum := 0, 0
	for _, c := range columns {
		minSum += c.min
		maxSum += c.max
	}

	widths := make([]int, len(columns))
	if minSum > budget {
		factor := float64(budget) / float64(minSum)
		sum := 0
		for i, c := range columns {
			w := int(float64(c.min) * factor)
			if w < 1 {
				w = 1
			}
			widths[i] = w
			sum += w
		}
		for i := 0; i < len(widths) && sum < budget; i++ {
			widths[i]++
			sum++
		}
		return widths
	}

	for i, c := range columns {
		widths[i] = c.min
	}
	remaining := budget
	if maxSum < remaining {
		remaining = maxSum
	}
	remaining -= minSum
	for i, c := range columns {
		if remaining == 0 {
			break
		}
		grow := c.max - widths[i]
		if grow > remaining {
			grow = remaining
		}
		widths[i] += grow
		remaining -= grow
	}
	return widths
}

// tableFrame holds the precomputed border strings of one table geometry.
type tableFrame struct {
	hrTop    string
	hrSep    string
	hrBot    string
	header   string
	blankRow string
}

func buildTableFrame(columns []columnSpec, widths []int, color bool) tableFrame {
	buildHR := func(left, mid, right string) string {
		var b strings.Builder
		b.WriteString(left)
		for i, w := range widths {
			if i > 0 {
				b.WriteString(mid)
			}
			b.WriteString(strings.Repeat("─", w))
		}
		b.WriteString(right)
		return b.String()
	}

	var header strings.Builder
	header.WriteString("│")
	for i, col := range columns {
		if i > 0 {
			header.WriteString("│")
		}
		label := padVisible(col.label, widths[i], col.alignRight)
		if color {
			label = boldStyle.Render(label)
		}
		header.WriteString(label)
	}
	header.WriteString("│")

	var blank strings.Builder
	blank.WriteString("│")
	for i, w := range widths {
		if i > 0 {
			blank.WriteString("│")
		}
		blank.WriteString(strings.Repeat(" ", w))
	}
	blank.WriteString("│")

	return tableFrame{
		hrTop:    buildHR("┌", "┬", "┐"),
		hrSep:    buildHR("┼", "┼", "┼"),
		hrBot:    buildHR("└", "┴", "┘"),
		header:   header.String(),
		blankRow: blank.String(),
	}
}

func writeTable(out *strings.Builder, frame tableFrame, columns []columnSpec, widths []int, rows [][]cell, opts Options) {
	out.WriteString(frame.hrTop)
	out.WriteString("\n")
	out.WriteString(frame.header)
	out.WriteString("\n")
	out.WriteString(frame.hrSep)
	out.WriteString("\n")
	for rowIndex, row := range rows {
		if rowIndex > 0 {
			out.WriteString("\n")
		}
		if isBlankRow(row) {
			out.WriteString(frame.blankRow)
			continue
		}
		out.WriteString("│")
		for cellIndex, c := range row {
			if cellIndex > 0 {
				out.WriteString("│")
			}
			width := 1
			if cellIndex < len(widths) {
				width = widths[cellIndex]
			}
			writeCell(out, c, width, columns[cellIndex].alignRight, opts)
		}
		out.WriteString("│")
	}
	out.WriteString("\n")
	out.WriteString(frame.hrBot)
}

func isBlankRow(row []cell) bool {
	for _, c := range row {
		if c.raw != "" || c.decor != decorNone || c.href != "" {
			return false
		}
	}
	return true
}

func writeCell(out *strings.Builder, c cell, width int, alignRight bool, opts Options) {
	if c.href != "" {
		out.WriteString("\x1b]8;;")
		out.WriteString(c.href)
		out.WriteString("\a")
	}

	padded := padVisible(c.raw, width, alignRight)
	switch c.decor {
	case decorBold:
		if opts.Color {
			padded = boldStyle.Render(padded)
		}
	case decorDim:
		if opts.Color {
			padded = dimStyle.Render(padded)
		}
	case decorTint:
		padded = tintPct(c.pct, padded, opts.Color)
	case decorBar:
		padded = bar(c.pct, width, opts.Unicode, opts.Color)
	}
	out.WriteString(padded)

	if c.href != "" {
		out.WriteString("\x1b]8;;\a")
	}
}

// padVisible pads or truncates to an exact rune width.
func padVisible(text string, width int, alignRight bool) string {
	runes := []rune(text)
	if len(runes) == width {
		return text
	}
	if len(runes) > width {
		return string(runes[:width])
	}
	pad := strings.Repeat(" ", width-len(runes))
	if alignRight {
		return pad + text
	}
	return text + pad
}
