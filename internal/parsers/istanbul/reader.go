// Package istanbul reads Istanbul coverage-final.json trees, the JSON
// format produced by nyc, c8, and Jest. One coverage-final.json exists per
// originating process or project; cross-shard combination is the report
// merger's job, not this reader's.
package istanbul

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/covlight/covlight/internal/coverage"
)

type loc struct {
	Line *uint64 `json:"line"`
}

type locRange struct {
	Start *loc `json:"start"`
	End   *loc `json:"end"`
}

type fnMeta struct {
	Name *string `json:"name"`
	Line *uint64 `json:"line"`
}

type branchMeta struct {
	Line *uint64 `json:"line"`
}

// fileRecord is one value of the top-level path→record object. Every field
// is optional; real-world emitters disagree about which maps they include.
type fileRecord struct {
	Path         *string               `json:"path"`
	L            map[string]uint64     `json:"l"`
	S            map[string]uint64     `json:"s"`
	StatementMap map[string]locRange   `json:"statementMap"`
	F            map[string]uint64     `json:"f"`
	FnMap        map[string]fnMeta     `json:"fnMap"`
	B            map[string][]uint64   `json:"b"`
	BranchMap    map[string]branchMeta `json:"branchMap"`
}

// ParseText decodes one coverage-final.json document.
func ParseText(text string) (coverage.Report, error) {
	var records map[string]fileRecord
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return coverage.Report{}, fmt.Errorf("parse istanbul json: %w", err)
	}

	files := make([]coverage.FileCoverage, 0, len(records))
	for key, record := range records {
		path := key
		if record.Path != nil && *record.Path != "" {
			path = *record.Path
		}
		files = append(files, buildFile(path, record))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return coverage.Report{Files: files}, nil
}

// ReadFile decodes one coverage-final.json from disk.
func ReadFile(path string) (coverage.Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return coverage.Report{}, fmt.Errorf("read istanbul file: %w", err)
	}
	return ParseText(string(raw))
}

// ReadTree walks a directory tree collecting every coverage-final.json,
// one report per shard. Unreadable or malformed shards are skipped; a
// missing tree yields no reports rather than an error.
func ReadTree(root string) []coverage.Report {
	var reports []coverage.Report
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || d.Name() != "coverage-final.json" {
			return nil
		}
		if report, rerr := ReadFile(path); rerr == nil {
			reports = append(reports, report)
		}
		return nil
	})
	return reports
}

func buildFile(path string, record fileRecord) coverage.FileCoverage {
	lineHits := extractLineHits(record)
	covered, total, uncovered := coverage.LineTotals(lineHits)

	file := coverage.FileCoverage{
		Path:           path,
		LinesTotal:     total,
		LinesCovered:   covered,
		UncoveredLines: uncovered,
		LineHits:       lineHits,
		FunctionHits:   map[string]uint32{},
		FunctionMap:    map[string]coverage.FunctionMeta{},
		BranchHits:     map[string][]uint32{},
		BranchMap:      map[string]uint32{},
	}

	if record.S != nil {
		stHits := make(map[uint64]uint32, len(record.S))
		stMap := make(map[uint64]coverage.LineRange, len(record.StatementMap))
		for idText, count := range record.S {
			id, err := strconv.ParseUint(idText, 10, 64)
			if err != nil {
				continue
			}
			stHits[id] = coverage.ClampU32(count)
			if span, ok := statementSpan(record.StatementMap, idText); ok {
				stMap[id] = span
			}
		}
		stTotal := coverage.ClampU32(uint64(len(stHits)))
		var stCovered uint32
		for _, hit := range stHits {
			if hit > 0 {
				stCovered = coverage.SatAddU32(stCovered, 1)
			}
		}
		file.StatementHits = stHits
		file.StatementMap = stMap
		file.StatementsTotal = &stTotal
		file.StatementsCovered = &stCovered
	}

	for id, count := range record.F {
		file.FunctionHits[id] = coverage.ClampU32(count)
		meta := coverage.FunctionMeta{Name: "(anonymous)"}
		if fn, ok := record.FnMap[id]; ok {
			if fn.Name != nil && *fn.Name != "" {
				meta.Name = *fn.Name
			}
			if fn.Line != nil {
				meta.Line = coverage.ClampU32(*fn.Line)
			}
		}
		file.FunctionMap[id] = meta
	}

	for id, arms := range record.B {
		hits := make([]uint32, 0, len(arms))
		for _, arm := range arms {
			hits = append(hits, coverage.ClampU32(arm))
		}
		file.BranchHits[id] = hits
		if meta, ok := record.BranchMap[id]; ok && meta.Line != nil {
			file.BranchMap[id] = coverage.ClampU32(*meta.Line)
		}
	}

	return file
}

// extractLineHits prefers the explicit l map; when a tool omits it the
// hits are rebuilt from statement counts via statementMap start lines,
// summing statements that share a line.
func extractLineHits(record fileRecord) map[uint32]uint32 {
	if record.L != nil {
		hits := make(map[uint32]uint32, len(record.L))
		for lineText, count := range record.L {
			line, err := strconv.ParseUint(lineText, 10, 32)
			if err != nil {
				continue
			}
			hits[uint32(line)] = coverage.SatAddU32(hits[uint32(line)], coverage.ClampU32(count))
		}
		return hits
	}

	hits := map[uint32]uint32{}
	for id, count := range record.S {
		span, ok := statementSpan(record.StatementMap, id)
		if !ok || span.Start == 0 {
			continue
		}
		hits[span.Start] = coverage.SatAddU32(hits[span.Start], coverage.ClampU32(count))
	}
	return hits
}

func statementSpan(statementMap map[string]locRange, id string) (coverage.LineRange, bool) {
	span, ok := statementMap[id]
	if !ok || span.Start == nil || span.Start.Line == nil {
		return coverage.LineRange{}, false
	}
	start := coverage.ClampU32(*span.Start.Line)
	if start == 0 {
		return coverage.LineRange{}, false
	}
	end := start
	if span.End != nil && span.End.Line != nil {
		if e := coverage.ClampU32(*span.End.Line); e > end {
			end = e
		}
	}
	return coverage.LineRange{Start: start, End: end}, true
}
