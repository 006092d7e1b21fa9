// Package lcov parses LCOV trace files into the common coverage model.
//
// LCOV is emitted by pytest-cov, nyc/c8/Jest, cargo llvm-cov report --lcov,
// and gcov, which makes it the lowest common denominator across the
// toolchains this engine aggregates.
package lcov

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/covlight/covlight/internal/coverage"
)

// fileBuf accumulates one SF:...end_of_record span before it is flushed
// into a FileCoverage.
type fileBuf struct {
	path          string
	hits          map[uint32]uint32
	fnStartByName map[string]uint32
	fnCountByName map[string]uint32
	// branch arm counters keyed by (line, block), one counter per branch
	// index within the group
	brByGroup map[branchGroup]map[uint32]uint32
}

type branchGroup struct {
	line  uint32
	block uint32
}

// ParseText folds LCOV records into a Report.
//
// Duplicate DA:/FNDA:/BRDA: records within one file accumulate by
// saturating sum. Malformed record lines are skipped, not fatal: a trace
// concatenated from several tools should not lose every record after one
// bad line, so the parser deliberately continues instead of truncating at
// the first parse failure.
func ParseText(text string) coverage.Report {
	var files []coverage.FileCoverage
	var current *fileBuf

	flush := func() {
		if current == nil {
			return
		}
		files = append(files, current.finish())
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "SF:"):
			flush()
			current = &fileBuf{
				path:          strings.TrimPrefix(line, "SF:"),
				hits:          map[uint32]uint32{},
				fnStartByName: map[string]uint32{},
				fnCountByName: map[string]uint32{},
				brByGroup:     map[branchGroup]map[uint32]uint32{},
			}

		case strings.HasPrefix(line, "DA:"):
			if current == nil {
				continue
			}
			// DA:<line>,<count>[,<checksum>]
			parts := strings.Split(strings.TrimPrefix(line, "DA:"), ",")
			if len(parts) < 2 {
				continue
			}
			ln, err1 := parseU32(parts[0])
			count, err2 := parseCount(parts[1])
			if err1 != nil || err2 != nil {
				continue
			}
			current.hits[ln] = coverage.SatAddU32(current.hits[ln], count)

		case strings.HasPrefix(line, "FN:"):
			if current == nil {
				continue
			}
			// FN:<start_line>,<name>
			start, name, ok := strings.Cut(strings.TrimPrefix(line, "FN:"), ",")
			if !ok {
				continue
			}
			startLine, err := parseU32(start)
			if err != nil {
				continue
			}
			key := coverage.NormalizeFunctionKey(name)
			if _, seen := current.fnStartByName[key]; !seen {
				current.fnStartByName[key] = startLine
			}

		case strings.HasPrefix(line, "FNDA:"):
			if current == nil {
				continue
			}
			// FNDA:<count>,<name>
			countText, name, ok := strings.Cut(strings.TrimPrefix(line, "FNDA:"), ",")
			if !ok {
				continue
			}
			count, err := parseCount(countText)
			if err != nil {
				continue
			}
			key := coverage.NormalizeFunctionKey(name)
			current.fnCountByName[key] = coverage.SatAddU32(current.fnCountByName[key], count)

		case strings.HasPrefix(line, "BRDA:"):
			if current == nil {
				continue
			}
			// BRDA:<line>,<block>,<branch>,<taken>; taken may be "-"
			parts := strings.Split(strings.TrimPrefix(line, "BRDA:"), ",")
			if len(parts) < 4 {
				continue
			}
			ln, err1 := parseU32(parts[0])
			block, err2 := parseU32(parts[1])
			branch, err3 := parseU32(parts[2])
			if err1 != nil || err2 != nil || err3 != nil {
				continue
			}
			var taken uint32
			if parts[3] != "-" {
				t, err := parseCount(parts[3])
				if err != nil {
					continue
				}
				taken = t
			}
			group := branchGroup{line: ln, block: block}
			arms := current.brByGroup[group]
			if arms == nil {
				arms = map[uint32]uint32{}
				current.brByGroup[group] = arms
			}
			arms[branch] = coverage.SatAddU32(arms[branch], taken)

		case line == "end_of_record":
			flush()
		}
	}
	// Scanner errors cannot occur on a strings.Reader; a trailing file
	// without end_of_record still flushes.
	flush()

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return coverage.Report{Files: files}
}

// ReadFile parses one lcov.info from disk.
func ReadFile(path string) (coverage.Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return coverage.Report{}, fmt.Errorf("read lcov file: %w", err)
	}
	return ParseText(string(raw)), nil
}

// ReadRepo reads the conventional coverage/lcov.info under the repository
// root, returning ok=false when the artifact is absent so the caller can
// fall back to another source.
func ReadRepo(root string) (coverage.Report, bool) {
	report, err := ReadFile(filepath.Join(root, "coverage", "lcov.info"))
	if err != nil {
		return coverage.Report{}, false
	}
	return report, true
}

func (b *fileBuf) finish() coverage.FileCoverage {
	covered, total, uncovered := coverage.LineTotals(b.hits)

	fnHits := make(map[string]uint32, len(b.fnCountByName))
	fnMap := make(map[string]coverage.FunctionMeta, len(b.fnCountByName))
	for name, hits := range b.fnCountByName {
		line := b.fnStartByName[name]
		id := coverage.FunctionID(name, line)
		fnHits[id] = hits
		fnMap[id] = coverage.FunctionMeta{Name: name, Line: line}
	}

	brHits := make(map[string][]uint32, len(b.brByGroup))
	brMap := make(map[string]uint32, len(b.brByGroup))
	for group, arms := range b.brByGroup {
		id := fmt.Sprintf("%d:%d", group.line, group.block)
		indices := make([]uint32, 0, len(arms))
		for idx := range arms {
			indices = append(indices, idx)
		}
		sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
		hits := make([]uint32, 0, len(indices))
		for _, idx := range indices {
			hits = append(hits, arms[idx])
		}
		brHits[id] = hits
		brMap[id] = group.line
	}

	return coverage.FileCoverage{
		Path:           b.path,
		LinesTotal:     total,
		LinesCovered:   covered,
		UncoveredLines: uncovered,
		LineHits:       b.hits,
		FunctionHits:   fnHits,
		FunctionMap:    fnMap,
		BranchHits:     brHits,
		BranchMap:      brMap,
	}
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// parseCount accepts the full u64 range an external tool may emit and
// clamps it into the model's 32-bit counters.
func parseCount(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return coverage.ClampU32(v), nil
}
