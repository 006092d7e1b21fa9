package coverage

import (
	"sort"
	"strings"
)

// Merge combines independent shard reports into one, keyed by normalized
// absolute path. Independent shards represent disjoint executions, so all
// counters accumulate by saturating sum; overlapping counters inside one
// artifact are the parsers' problem, not the merger's.
//
// Metadata (function display name and start line, branch line) is taken
// from the first shard that defines it.
func Merge(reports []Report, root string) Report {
	type fnEntry struct {
		hits uint32
		meta FunctionMeta
	}
	type brEntry struct {
		hits []uint32
		line uint32
	}
	type stEntry struct {
		hits     map[uint64]uint32
		spans    map[uint64]LineRange
		anyShard bool
	}

	lineByFile := map[string]map[uint32]uint32{}
	fnByFile := map[string]map[string]fnEntry{}
	brByFile := map[string]map[string]brEntry{}
	stByFile := map[string]*stEntry{}

	for _, report := range reports {
		for _, file := range report.Files {
			abs := NormalizePath(file.Path, root)

			lines := lineByFile[abs]
			if lines == nil {
				lines = map[uint32]uint32{}
				lineByFile[abs] = lines
			}
			for ln, hit := range file.LineHits {
				lines[ln] = SatAddU32(lines[ln], hit)
			}

			fns := fnByFile[abs]
			if fns == nil {
				fns = map[string]fnEntry{}
				fnByFile[abs] = fns
			}
			for id, hit := range file.FunctionHits {
				nid := normalizeFunctionID(id)
				entry, seen := fns[nid]
				if !seen {
					entry.meta = functionMetaFor(file, id)
				}
				entry.hits = SatAddU32(entry.hits, hit)
				fns[nid] = entry
			}

			brs := brByFile[abs]
			if brs == nil {
				brs = map[string]brEntry{}
				brByFile[abs] = brs
			}
			for id, hits := range file.BranchHits {
				entry, seen := brs[id]
				if !seen {
					entry.line = file.BranchMap[id]
				}
				if len(hits) > len(entry.hits) {
					grown := make([]uint32, len(hits))
					copy(grown, entry.hits)
					entry.hits = grown
				}
				for i, hit := range hits {
					entry.hits[i] = SatAddU32(entry.hits[i], hit)
				}
				brs[id] = entry
			}

			if file.StatementHits != nil {
				st := stByFile[abs]
				if st == nil {
					st = &stEntry{hits: map[uint64]uint32{}, spans: map[uint64]LineRange{}}
					stByFile[abs] = st
				}
				st.anyShard = true
				for id, hit := range file.StatementHits {
					st.hits[id] = SatAddU32(st.hits[id], hit)
				}
				for id, span := range file.StatementMap {
					if _, seen := st.spans[id]; !seen {
						st.spans[id] = span
					}
				}
			}
		}
	}

	paths := make([]string, 0, len(lineByFile))
	for path := range lineByFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	files := make([]FileCoverage, 0, len(paths))
	for _, path := range paths {
		hits := lineByFile[path]
		covered, total, uncovered := LineTotals(hits)

		merged := FileCoverage{
			Path:           path,
			LinesTotal:     total,
			LinesCovered:   covered,
			UncoveredLines: uncovered,
			LineHits:       hits,
			FunctionHits:   map[string]uint32{},
			FunctionMap:    map[string]FunctionMeta{},
			BranchHits:     map[string][]uint32{},
			BranchMap:      map[string]uint32{},
		}
		for id, entry := range fnByFile[path] {
			merged.FunctionHits[id] = entry.hits
			merged.FunctionMap[id] = entry.meta
		}
		for id, entry := range brByFile[path] {
			merged.BranchHits[id] = entry.hits
			merged.BranchMap[id] = entry.line
		}
		if st := stByFile[path]; st != nil && st.anyShard {
			stTotal := ClampU32(uint64(len(st.hits)))
			var stCovered uint32
			for _, hit := range st.hits {
				if hit > 0 {
					stCovered = SatAddU32(stCovered, 1)
				}
			}
			merged.StatementHits = st.hits
			merged.StatementMap = st.spans
			merged.StatementsTotal = &stTotal
			merged.StatementsCovered = &stCovered
		}
		files = append(files, merged)
	}

	return Report{Files: files}
}

func functionMetaFor(file FileCoverage, id string) FunctionMeta {
	if meta, ok := file.FunctionMap[id]; ok {
		return meta
	}
	return FunctionMeta{Name: "(anonymous)"}
}

// normalizeFunctionID applies NormalizeFunctionKey to the name portion of
// a "{line}:{name}" id so that shards mangled under different crate
// hashes collapse at merge time as well as at parse time.
func normalizeFunctionID(id string) string {
	linePart, name, ok := strings.Cut(id, ":")
	if !ok {
		return NormalizeFunctionKey(id)
	}
	if !isDigits(linePart) {
		return NormalizeFunctionKey(id)
	}
	return linePart + ":" + NormalizeFunctionKey(name)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
