package coverage

import (
	"github.com/bmatcuk/doublestar/v4"
)

// GlobSet is a compiled list of doublestar patterns matched against
// repository-relative, forward-slash paths.
type GlobSet struct {
	patterns []string
}

// NewGlobSet keeps only syntactically valid patterns, mirroring how the
// engine tolerates user-supplied globs: a bad pattern is ignored rather
// than failing the whole filter.
func NewGlobSet(patterns []string) GlobSet {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if doublestar.ValidatePattern(p) {
			valid = append(valid, p)
		}
	}
	return GlobSet{patterns: valid}
}

// Empty reports whether the set has no usable patterns.
func (g GlobSet) Empty() bool { return len(g.patterns) == 0 }

// Match reports whether any pattern matches the path.
func (g GlobSet) Match(relPath string) bool {
	for _, p := range g.patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
	}
	return false
}

// Filter restricts the report to files whose repo-relative path passes the
// include/exclude glob sets: kept iff (includes empty OR some include
// matches) AND no exclude matches. The filter is a pure predicate over the
// normalized path, so it commutes with Merge.
func Filter(report Report, root string, includes, excludes []string) Report {
	includeSet := NewGlobSet(includes)
	excludeSet := NewGlobSet(excludes)

	files := make([]FileCoverage, 0, len(report.Files))
	for _, f := range report.Files {
		rel := RelPath(NormalizePath(f.Path, root), root)
		if !includeSet.Empty() && !includeSet.Match(rel) {
			continue
		}
		if excludeSet.Match(rel) {
			continue
		}
		files = append(files, f)
	}
	return Report{Files: files}
}
