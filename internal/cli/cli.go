// Package cli wires the covlight subcommands: report, check, watch and
// init.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/covlight/covlight/internal/config"
	"github.com/covlight/covlight/internal/coverage"
	"github.com/covlight/covlight/internal/render"
	"github.com/covlight/covlight/internal/thresholds"
	"github.com/covlight/covlight/internal/watch"
	"github.com/covlight/covlight/internal/wizard"
)

var initWizard = wizard.Run

// Run dispatches os.Args-style arguments and returns the process exit
// code.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "report":
		return runReport(args[2:], stdout, stderr)
	case "check":
		return runCheck(args[2:], stdout, stderr)
	case "watch":
		return runWatch(args[2:], stdout, stderr)
	case "init":
		return runInit(args[2:], stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, Version())
		return 0
	default:
		usage(stderr)
		return 2
	}
}

// commonFlags is the flag surface shared by report, check and watch.
type commonFlags struct {
	configPath string
	root       string
	artifacts  multiFlag
	include    multiFlag
	exclude    multiFlag

	pageFit     bool
	maxHotspots uint
	maxFiles    uint
	detail      string
	editorCmd   string
	noColor     bool
	compact     bool
}

func bindCommonFlags(fs *flag.FlagSet) *commonFlags {
	var f commonFlags
	fs.StringVar(&f.configPath, "config", "", "Config file path (default <root>/.covlight.yaml)")
	fs.StringVar(&f.root, "root", "", "Repository root (default current directory)")
	fs.Var(&f.artifacts, "artifact", "Coverage artifact path (repeatable)")
	fs.Var(&f.include, "include", "Include glob over repo-relative paths (repeatable)")
	fs.Var(&f.exclude, "exclude", "Exclude glob over repo-relative paths (repeatable)")
	fs.BoolVar(&f.pageFit, "page-fit", false, "Fit per-file tables to one terminal page")
	fs.UintVar(&f.maxHotspots, "max-hotspots", 0, "Max hotspot rows per file (0 = automatic)")
	fs.UintVar(&f.maxFiles, "max-files", 0, "List only the N worst-covered files (0 = all)")
	fs.StringVar(&f.detail, "detail", "auto", "Detail blocks: auto|all|<n>")
	fs.StringVar(&f.editorCmd, "editor-cmd", "", "Editor hyperlink template, e.g. vscode://file/{file}:{line}")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable color output")
	fs.BoolVar(&f.compact, "compact", false, "One-line-per-file output instead of tables")
	return &f
}

func runReport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	f := bindCommonFlags(fs)
	_ = fs.Parse(args)

	code, _ := renderOnce(f, stdout, stderr)
	return code
}

func runCheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	f := bindCommonFlags(fs)
	lines := fs.Float64("lines", -1, "Minimum line coverage percent")
	functions := fs.Float64("functions", -1, "Minimum function coverage percent")
	branches := fs.Float64("branches", -1, "Minimum branch coverage percent")
	statements := fs.Float64("statements", -1, "Minimum statement coverage percent")
	quiet := fs.Bool("quiet", false, "Only print threshold failures")
	_ = fs.Parse(args)

	cfg, root, err := loadConfig(f)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	report, err := buildReport(f, cfg, root, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 3
	}

	floors := cfg.Thresholds
	override := func(dst **float64, v float64) {
		if v >= 0 {
			*dst = &v
		}
	}
	override(&floors.Lines, *lines)
	override(&floors.Functions, *functions)
	override(&floors.Branches, *branches)
	override(&floors.Statements, *statements)

	if !*quiet {
		writeReport(stdout, report, f, renderOptions(f, cfg, root))
	}

	failures, ok := thresholds.Check(floors, report)
	if ok {
		return 0
	}
	fmt.Fprintln(stdout, render.ThresholdFailureSummary(failures))
	return 1
}

func runWatch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	f := bindCommonFlags(fs)
	_ = fs.Parse(args)

	code, root := renderOnce(f, stdout, stderr)
	if code != 0 {
		return code
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	watcher, err := watch.New()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 3
	}
	defer watcher.Close()
	if err := watcher.WatchDir(root); err != nil {
		fmt.Fprintln(stderr, err)
		return 3
	}

	events := watcher.Events(ctx)
	for {
		select {
		case <-ctx.Done():
			return 0
		case _, ok := <-events:
			if !ok {
				return 0
			}
			fmt.Fprintln(stdout)
			if code, _ := renderOnce(f, stdout, stderr); code != 0 {
				fmt.Fprintln(stderr, "render failed; waiting for next change")
			}
		}
	}
}

func runInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultFileName, "Config file path")
	force := fs.Bool("force", false, "Overwrite existing config file")
	noInteractive := fs.Bool("no-interactive", false, "Skip the interactive init wizard")
	_ = fs.Parse(args)

	loader := config.Loader{}
	var cfg config.Config
	if exists, err := loader.Exists(*configPath); err == nil && exists {
		if !*force {
			fmt.Fprintf(stderr, "config %s already exists\n", *configPath)
			return 2
		}
		if loaded, err := loader.Load(*configPath); err == nil {
			cfg = loaded
		}
	}

	if !*noInteractive {
		updated, confirmed, err := initWizard(cfg, stdout, os.Stdin)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 5
		}
		if !confirmed {
			fmt.Fprintln(stdout, "Init cancelled; no configuration written.")
			return 0
		}
		cfg = updated
	}

	file, err := os.Create(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer file.Close()
	if err := config.Write(file, cfg); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	fmt.Fprintf(stdout, "Wrote %s\n", *configPath)
	return 0
}

func renderOnce(f *commonFlags, stdout, stderr io.Writer) (int, string) {
	cfg, root, err := loadConfig(f)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2, root
	}
	report, err := buildReport(f, cfg, root, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 3, root
	}
	writeReport(stdout, report, f, renderOptions(f, cfg, root))
	return 0, root
}

func writeReport(stdout io.Writer, report coverage.Report, f *commonFlags, opts render.Options) {
	if f.compact {
		fmt.Fprintln(stdout, render.Compact(report, opts, opts.Detail != render.DetailAuto))
		return
	}
	fmt.Fprintln(stdout, render.Report(report, opts))
}

func loadConfig(f *commonFlags) (config.Config, string, error) {
	root := f.root
	if root == "" {
		root, _ = os.Getwd()
	}

	path := f.configPath
	if path == "" {
		path = root + "/" + config.DefaultFileName
	}
	loader := config.Loader{}
	exists, err := loader.Exists(path)
	if err != nil {
		return config.Config{}, root, err
	}
	if !exists {
		return config.Config{}, root, nil
	}
	cfg, err := loader.Load(path)
	if err != nil {
		return config.Config{}, root, fmt.Errorf("load %s: %w", path, err)
	}
	if f.root == "" && cfg.Root != "" {
		root = cfg.Root
	}
	return cfg, root, nil
}

// buildReport loads, merges, filters and relativizes the coverage for
// rendering.
func buildReport(f *commonFlags, cfg config.Config, root string, stderr io.Writer) (coverage.Report, error) {
	artifacts := []string(f.artifacts)
	if len(artifacts) == 0 {
		artifacts = cfg.Artifacts
	}

	report, warnings, err := loadReport(root, artifacts)
	for _, warning := range warnings {
		fmt.Fprintln(stderr, "warning:", warning)
	}
	if err != nil {
		return coverage.Report{}, err
	}

	includes := append(append([]string(nil), cfg.Include...), f.include...)
	excludes := append(append([]string(nil), cfg.Exclude...), f.exclude...)
	report = coverage.Filter(report, root, includes, excludes)

	for i, file := range report.Files {
		report.Files[i].Path = coverage.RelPath(file.Path, root)
	}
	return report, nil
}

func renderOptions(f *commonFlags, cfg config.Config, root string) render.Options {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	opts := render.Options{
		TTY:         tty,
		Color:       tty && !f.noColor && os.Getenv("NO_COLOR") == "",
		Unicode:     supportsUnicode(),
		PageFit:     f.pageFit || cfg.Print.PageFit,
		MaxHotspots: uint32(f.maxHotspots),
		MaxFiles:    uint32(f.maxFiles),
		EditorCmd:   f.editorCmd,
		Root:        root,
	}
	if opts.MaxHotspots == 0 {
		opts.MaxHotspots = cfg.Print.MaxHotspots
	}
	if opts.MaxFiles == 0 {
		opts.MaxFiles = cfg.Print.MaxFiles
	}
	if opts.EditorCmd == "" {
		opts.EditorCmd = cfg.Print.EditorCmd
	}

	detail := f.detail
	if detail == "auto" && cfg.Print.Detail != "" {
		detail = cfg.Print.Detail
	}
	switch detail {
	case "", "auto":
		opts.Detail = render.DetailAuto
	case "all":
		opts.Detail = render.DetailAll
	default:
		if n, err := strconv.ParseUint(detail, 10, 32); err == nil && n > 0 {
			opts.Detail = render.DetailLines
			opts.DetailLines = uint32(n)
		}
	}
	return opts
}

func supportsUnicode() bool {
	term := strings.ToLower(os.Getenv("TERM"))
	return term != "" && term != "dumb"
}

// multiFlag collects repeated string flags.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `covlight <command>

Commands:
  report   Merge coverage artifacts and print the report
  check    Render the report and enforce threshold floors
  watch    Rerender whenever a coverage artifact changes
  init     Write .covlight.yaml via the interactive wizard
  version  Print the covlight version`)
}
