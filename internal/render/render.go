// Package render turns a merged coverage report into terminal output:
// per-file composite tables, the classic istanbul text table with its
// coverage summary block, and optional per-file detail listings with
// editor hyperlinks.
package render

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/covlight/covlight/internal/analysis"
	"github.com/covlight/covlight/internal/coverage"
)

// DetailMode selects how much uncovered-line detail is printed after
// the summary tables.
type DetailMode int

const (
	// DetailAuto prints no detail blocks.
	DetailAuto DetailMode = iota
	// DetailAll prints detail blocks for every file with findings.
	DetailAll
	// DetailLines prints detail blocks capped at Options.DetailLines
	// hotspots per file.
	DetailLines
)

// Options controls rendering. The zero value produces plain ASCII
// output sized for a 100-column terminal.
type Options struct {
	TTY     bool
	Color   bool
	Unicode bool
	PageFit bool

	// Width and Height override terminal detection when > 0.
	Width  int
	Height int

	// MaxHotspots caps hotspot rows per file table. 0 means automatic,
	// derived from the row budget.
	MaxHotspots uint32

	// MaxFiles caps listed files to the N with the lowest line
	// coverage. 0 lists every file.
	MaxFiles uint32

	Detail      DetailMode
	DetailLines uint32

	// EditorCmd is the hyperlink template with {file} and {line}
	// placeholders. Empty falls back to vscode:// links on a TTY.
	EditorCmd string

	// Root is joined onto relative paths when building editor links.
	Root string
}

// Report renders the full coverage output for a merged report whose
// paths have already been made repo-relative. Per-file tables come out
// in reverse path order so the first file ends up nearest the prompt.
func Report(report coverage.Report, opts Options) string {
	files := append([]coverage.FileCoverage(nil), report.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	totalWidth := detectColumns(opts)
	sepLen := detectColumnsRaw(opts)
	if sepLen < 20 {
		sepLen = 20
	}

	detectedRows := detectRows(opts)
	rowsAvail := detectedRows
	if opts.PageFit && rowsAvail > 39 {
		rowsAvail = 39
	}
	perFileRows := rowsAvail + 8
	if opts.PageFit {
		perFileRows = rowsAvail - 1
		if perFileRows < 14 {
			perFileRows = 14
		}
	}

	summaries := make([]analysis.FileSummary, len(files))
	blocks := make([][]analysis.UncoveredRange, len(files))
	missedFns := make([][]analysis.MissedFunction, len(files))
	missedBrs := make([][]analysis.MissedBranch, len(files))
	for i, file := range files {
		summaries[i] = analysis.Summarize(file)
		blocks[i] = analysis.UncoveredBlocks(file)
		missedFns[i] = analysis.MissedFunctions(file)
		missedBrs[i] = analysis.MissedBranches(file)
	}

	layout := buildPerFileLayout(totalWidth, opts)
	separator := strings.Repeat("─", sepLen)
	if opts.Color {
		separator = grayStyle.Render(separator)
	}

	listed := make(map[string]bool, len(files))
	for _, file := range worstFiles(files, opts.MaxFiles) {
		listed[file.Path] = true
	}

	var out strings.Builder
	for i := len(files) - 1; i >= 0; i-- {
		if !listed[files[i].Path] {
			continue
		}
		writePerFileTable(&out, perFileInput{
			file:        files[i],
			summary:     summaries[i],
			blocks:      blocks[i],
			missedFns:   missedFns[i],
			missedBrs:   missedBrs[i],
			maxRows:     perFileRows,
			layout:      layout,
			maxHotspots: opts.MaxHotspots,
		}, opts)
		out.WriteString("\n")
		out.WriteString(separator)
		out.WriteString("\n")
	}

	// The istanbul text reporter keeps a stable layout on wide
	// terminals; cap its width for parity with the reference output.
	istanbulWidth := totalWidth
	if istanbulWidth > 60 {
		istanbulWidth = 60
	}
	text, totals := istanbulTextReport(files, summaries, istanbulWidth, opts)
	out.WriteString(text)
	out.WriteString("\n\n")
	out.WriteString(istanbulSummary(totals, opts))

	if opts.Detail != DetailAuto {
		detail := detailBlocks(files, summaries, blocks, missedFns, opts)
		if detail != "" {
			out.WriteString("\n\n")
			out.WriteString(detail)
		}
	}

	return strings.TrimRight(out.String(), " \t\n")
}

func detectColumns(opts Options) int {
	cols := detectColumnsRaw(opts)
	if cols > 20 {
		if cols < 60 {
			return 60
		}
		return cols
	}
	return 100
}

func detectColumnsRaw(opts Options) int {
	if opts.Width > 0 {
		return opts.Width
	}
	if env := os.Getenv("COLUMNS"); env != "" {
		if cols, err := strconv.Atoi(env); err == nil && cols > 0 {
			return cols
		}
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 0
}

func detectRows(opts Options) int {
	if opts.Height > 0 {
		return opts.Height
	}
	if _, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && h > 0 {
		return h
	}
	return 40
}
