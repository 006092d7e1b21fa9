package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/covlight/covlight/internal/coverage"
	"github.com/covlight/covlight/internal/parsers/coveragepy"
	"github.com/covlight/covlight/internal/parsers/istanbul"
	"github.com/covlight/covlight/internal/parsers/lcov"
	"github.com/covlight/covlight/internal/parsers/llvmcov"
)

// loadReport reads every coverage artifact, merges the shards, and
// overlays statement-level detail. With no explicit artifacts the
// conventional repo locations are probed. Unreadable shards become
// warnings rather than failures so one broken runner does not hide the
// rest of the coverage.
func loadReport(root string, artifacts []string) (coverage.Report, []string, error) {
	var shards []coverage.Report
	var warnings []string
	statementHits := map[string]map[uint64]uint32{}
	statementTotals := map[string]coverage.StatementTotals{}

	addStatementHits := func(hits map[string]map[uint64]uint32) {
		for path, fileHits := range hits {
			dst := statementHits[path]
			if dst == nil {
				statementHits[path] = fileHits
				continue
			}
			// Cross-artifact statement counts accumulate like shards.
			for id, hit := range fileHits {
				dst[id] = coverage.SatAddU32(dst[id], hit)
			}
		}
	}

	if len(artifacts) == 0 {
		if report, ok := lcov.ReadRepo(root); ok {
			shards = append(shards, report)
		}
		shards = append(shards, istanbul.ReadTree(filepath.Join(root, "coverage"))...)
		if hits, ok, err := llvmcov.ReadRepo(root); err != nil {
			warnings = append(warnings, err.Error())
		} else if ok {
			addStatementHits(hits)
		}
		if totals, ok, err := coveragepy.ReadRepo(root); err != nil {
			warnings = append(warnings, err.Error())
		} else if ok {
			for path, st := range totals {
				statementTotals[path] = st
			}
		}
	} else {
		for _, artifact := range artifacts {
			switch classifyArtifact(artifact) {
			case formatLCOV:
				report, err := lcov.ReadFile(artifact)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: %v", artifact, err))
					continue
				}
				shards = append(shards, report)
			case formatIstanbul:
				report, err := istanbul.ReadFile(artifact)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: %v", artifact, err))
					continue
				}
				shards = append(shards, report)
			case formatLLVMCov:
				hits, ok, err := llvmcov.ReadFile(artifact, root)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: %v", artifact, err))
					continue
				}
				if ok {
					addStatementHits(hits)
				}
			case formatCoveragePy:
				totals, ok, err := coveragepy.ReadFile(artifact, root)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("%s: %v", artifact, err))
					continue
				}
				if ok {
					for path, st := range totals {
						statementTotals[path] = st
					}
				}
			default:
				warnings = append(warnings, fmt.Sprintf("%s: unrecognized coverage format", artifact))
			}
		}
	}

	if len(shards) == 0 && len(statementHits) == 0 && len(statementTotals) == 0 {
		return coverage.Report{}, warnings, fmt.Errorf("no coverage artifacts found under %s", root)
	}

	merged := coverage.Merge(shards, root)
	if len(statementHits) > 0 {
		merged = overlayStatementHits(merged, statementHits)
	}
	if len(statementTotals) > 0 {
		merged = coverage.ApplyStatementTotals(merged, statementTotals)
	}
	return merged, warnings, nil
}

// overlayStatementHits attaches statement detail to files some line-hit
// shard already covers, leaving their line metrics untouched: the llvm-cov
// export and the lcov trace typically describe the same test run, so the
// statement source must not count as a second execution. Only paths no
// line-hit shard mentioned become statement-derived files of their own.
func overlayStatementHits(merged coverage.Report, hitsByPath map[string]map[uint64]uint32) coverage.Report {
	present := make(map[string]bool, len(merged.Files))
	for _, file := range merged.Files {
		present[file.Path] = true
	}

	overlay := map[string]map[uint64]uint32{}
	orphans := map[string]map[uint64]uint32{}
	for path, hits := range hitsByPath {
		if present[path] {
			overlay[path] = hits
		} else {
			orphans[path] = hits
		}
	}

	if len(overlay) > 0 {
		merged = coverage.ApplyStatementHits(merged, overlay)
	}
	if len(orphans) > 0 {
		merged.Files = append(merged.Files, reportFromStatementHits(orphans).Files...)
		sort.Slice(merged.Files, func(i, j int) bool { return merged.Files[i].Path < merged.Files[j].Path })
	}
	return merged
}

type artifactFormat int

const (
	formatUnknown artifactFormat = iota
	formatLCOV
	formatIstanbul
	formatLLVMCov
	formatCoveragePy
)

// classifyArtifact picks a parser by file name, sniffing the head of
// ambiguous .json files.
func classifyArtifact(path string) artifactFormat {
	base := filepath.Base(path)
	switch {
	case base == "lcov.info", strings.HasSuffix(base, ".info"), strings.HasSuffix(base, ".lcov"):
		return formatLCOV
	case base == "coverage-final.json":
		return formatIstanbul
	}
	if !strings.HasSuffix(base, ".json") {
		return formatUnknown
	}

	f, err := os.Open(path)
	if err != nil {
		return formatUnknown
	}
	defer f.Close()
	head := make([]byte, 4096)
	n, _ := f.Read(head)
	head = head[:n]

	switch {
	case bytes.Contains(head, []byte("llvm.coverage")), bytes.Contains(head, []byte(`"segments"`)):
		return formatLLVMCov
	case bytes.Contains(head, []byte(`"meta"`)), bytes.Contains(head, []byte(`"num_statements"`)):
		return formatCoveragePy
	case bytes.Contains(head, []byte(`"statementMap"`)), bytes.Contains(head, []byte(`"fnMap"`)):
		return formatIstanbul
	}
	return formatUnknown
}

// reportFromStatementHits lifts llvm-cov statement hits into a report
// shard: line hits are derived from statement positions so the merged
// report carries line metrics even for statement-only sources.
func reportFromStatementHits(hitsByPath map[string]map[uint64]uint32) coverage.Report {
	var report coverage.Report
	for path, hits := range hitsByPath {
		lineHits := map[uint32]uint32{}
		for id, hit := range hits {
			line := coverage.StatementIDLine(id)
			if line == 0 {
				continue
			}
			if hit > lineHits[line] {
				lineHits[line] = hit
			} else if _, ok := lineHits[line]; !ok {
				lineHits[line] = 0
			}
		}
		covered, total, uncovered := coverage.LineTotals(lineHits)

		stTotal := coverage.ClampU32(uint64(len(hits)))
		var stCovered uint32
		for _, hit := range hits {
			if hit > 0 {
				stCovered = coverage.SatAddU32(stCovered, 1)
			}
		}

		report.Files = append(report.Files, coverage.FileCoverage{
			Path:              path,
			LinesTotal:        total,
			LinesCovered:      covered,
			UncoveredLines:    uncovered,
			LineHits:          lineHits,
			StatementHits:     hits,
			StatementsTotal:   &stTotal,
			StatementsCovered: &stCovered,
		})
	}
	return report
}
