package coverage

import (
	"path/filepath"
	"strings"
)

// NormalizePath canonicalizes an artifact-reported path: absolute,
// forward-slash separators, rooted at the repository root when the
// artifact reported a relative path. Normalizing an already-normalized
// path is a no-op.
func NormalizePath(path, root string) string {
	native := filepath.FromSlash(strings.ReplaceAll(path, `\`, "/"))
	if filepath.IsAbs(native) {
		return filepath.ToSlash(filepath.Clean(native))
	}
	return filepath.ToSlash(filepath.Join(root, native))
}

// RelPath returns the repository-relative, forward-slash form of a
// normalized path, or the input unchanged when it is outside the root.
func RelPath(normalized, root string) string {
	rootSlash := filepath.ToSlash(filepath.Clean(root))
	if normalized == rootSlash {
		return "."
	}
	if rest, ok := strings.CutPrefix(normalized, rootSlash+"/"); ok {
		return rest
	}
	return normalized
}

// ResolvePaths rewrites every file path in the report to its normalized
// absolute form.
func ResolvePaths(report Report, root string) Report {
	files := make([]FileCoverage, 0, len(report.Files))
	for _, f := range report.Files {
		f.Path = NormalizePath(f.Path, root)
		files = append(files, f)
	}
	return Report{Files: files}
}
