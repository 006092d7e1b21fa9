// Package coveragepy reads coverage.py JSON reports ("coverage json")
// into per-file statement totals. The python report carries line-level
// detail too, but its summary block is authoritative for statement
// percentages, so that is what this reader extracts.
package coveragepy

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/covlight/covlight/internal/coverage"
)

type document struct {
	Files map[string]fileEntry `json:"files"`
}

type fileEntry struct {
	Summary       summary  `json:"summary"`
	ExecutedLines []uint32 `json:"executed_lines"`
	MissingLines  []uint32 `json:"missing_lines"`
}

type summary struct {
	NumStatements int64 `json:"num_statements"`
	CoveredLines  int64 `json:"covered_lines"`
	MissingLines  int64 `json:"missing_lines"`
}

// ParseText decodes one coverage.py JSON document and returns statement
// totals keyed by normalized file path.
func ParseText(r io.Reader, root string) (map[string]coverage.StatementTotals, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode coverage.py json: %w", err)
	}

	out := make(map[string]coverage.StatementTotals, len(doc.Files))
	for path, entry := range doc.Files {
		total := entry.Summary.NumStatements
		covered := entry.Summary.CoveredLines
		if total <= 0 && covered <= 0 {
			continue
		}
		if total < 0 {
			total = 0
		}
		if covered < 0 {
			covered = 0
		}
		if covered > total {
			covered = total
		}
		out[coverage.NormalizePath(path, root)] = coverage.StatementTotals{
			Total:   coverage.ClampU32(uint64(total)),
			Covered: coverage.ClampU32(uint64(covered)),
		}
	}
	return out, nil
}

// ReadFile parses a report from disk. A missing file is "no data".
func ReadFile(path, root string) (map[string]coverage.StatementTotals, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, nil
	}
	defer f.Close()
	totals, err := ParseText(f, root)
	if err != nil {
		return nil, false, err
	}
	return totals, true, nil
}

// ReadRepo reads the conventional coverage.json report under the
// repository root.
func ReadRepo(root string) (map[string]coverage.StatementTotals, bool, error) {
	return ReadFile(filepath.Join(root, "coverage.json"), root)
}
