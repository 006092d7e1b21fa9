package render

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/covlight/covlight/internal/analysis"
	"github.com/covlight/covlight/internal/coverage"
)

// detailBlocks renders per-file hotspot and missed-function listings,
// weakest files first, joined by blank lines.
func detailBlocks(files []coverage.FileCoverage, summaries []analysis.FileSummary, blocks [][]analysis.UncoveredRange, missedFns [][]analysis.MissedFunction, opts Options) string {
	order := make([]int, len(files))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := summaries[order[a]].Lines.Pct(), summaries[order[b]].Lines.Pct()
		if pa != pb {
			return pa < pb
		}
		return files[order[a]].Path < files[order[b]].Path
	})

	if opts.MaxFiles > 0 && int(opts.MaxFiles) < len(order) {
		order = order[:opts.MaxFiles]
	}

	var rendered []string
	for _, i := range order {
		if block := detailBlock(files[i], summaries[i], blocks[i], missedFns[i], opts); block != "" {
			rendered = append(rendered, block)
		}
	}
	return strings.Join(rendered, "\n\n")
}

func detailBlock(file coverage.FileCoverage, summary analysis.FileSummary, hotspots []analysis.UncoveredRange, missedFns []analysis.MissedFunction, opts Options) string {
	if len(hotspots) == 0 && len(missedFns) == 0 {
		return ""
	}

	rel := strings.ReplaceAll(file.Path, "\\", "/")
	lPct := summary.Lines.Pct()
	fPct := summary.Functions.Pct()
	bPct := summary.Branches.Pct()

	name := rel
	if opts.Color {
		name = boldStyle.Render(name)
	}
	header := fmt.Sprintf("%s  lines %s %s  funcs %s  branches %s",
		name,
		tintPct(lPct, fmt.Sprintf("%.1f%%", lPct), opts.Color),
		detailBar(lPct, opts),
		tintPct(fPct, fmt.Sprintf("%.1f%%", fPct), opts.Color),
		tintPct(bPct, fmt.Sprintf("%.1f%%", bPct), opts.Color))

	abs := rel
	if opts.Root != "" {
		abs = strings.TrimRight(opts.Root, "/") + "/" + rel
	}

	maxHotspots := 5
	if opts.MaxHotspots > 0 {
		maxHotspots = int(opts.MaxHotspots)
	}
	if opts.Detail == DetailLines && opts.DetailLines > 0 {
		maxHotspots = int(opts.DetailLines)
	}

	hotspotsLabel := "  Hotspots:"
	functionsLabel := "  Uncovered functions:"
	if opts.Color {
		hotspotsLabel = boldStyle.Render(hotspotsLabel)
		functionsLabel = boldStyle.Render(functionsLabel)
	}

	out := []string{header, hotspotsLabel}
	for i, r := range hotspots {
		if i >= maxHotspots {
			break
		}
		href := editorLink(abs, rel, r.Start, opts)
		out = append(out, fmt.Sprintf("    - L%d–L%d (%d lines)  %s", r.Start, r.End, r.Len(), href))
	}
	out = append(out, functionsLabel)
	for _, missed := range missedFns {
		href := editorLink(abs, rel, missed.Line, opts)
		out = append(out, fmt.Sprintf("    - %s @ %s", missed.Name, href))
	}
	return strings.Join(out, "\n")
}

// editorLink formats "file:line". On a TTY it becomes an OSC-8
// hyperlink using the configured editor command template; elsewhere the
// url is appended in angle brackets so it stays copyable.
func editorLink(absPath, relPath string, line uint32, opts Options) string {
	label := fmt.Sprintf("%s:%d", path.Base(relPath), line)
	cmd := strings.TrimSpace(opts.EditorCmd)
	if cmd == "" {
		if !opts.TTY {
			return label
		}
		cmd = "vscode://file/{file}:{line}"
	}
	url := strings.NewReplacer(
		"{file}", absPath,
		"{path}", absPath,
		"{line}", fmt.Sprintf("%d", line),
	).Replace(cmd)
	if !opts.TTY {
		return fmt.Sprintf("%s<%s>", label, url)
	}
	return fmt.Sprintf("\x1b]8;;%s\a%s\x1b]8;;\a", url, label)
}

func detailBar(pct float64, opts Options) string {
	const total = 14
	filled := int(pct / 10.0)
	if filled < 0 {
		filled = 0
	}
	if filled > total {
		filled = total
	}
	if !opts.TTY || !opts.Unicode {
		return strings.Repeat("#", filled) + strings.Repeat("-", total-filled)
	}
	solid := strings.Repeat("█", filled)
	empty := strings.Repeat("░", total-filled)
	if !opts.Color {
		return solid + empty
	}
	return tintPct(pct, solid, opts.Color) + grayStyle.Render(empty)
}
