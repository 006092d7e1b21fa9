package render

import "strings"

// shortenPathPreservingFilename fits a slash-separated path into max
// runes. The filename always survives; leading directories are kept
// while they fit and the elided middle collapses to a single ellipsis.
func shortenPathPreservingFilename(path string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(path)
	if len(runes) <= max {
		return path
	}

	segments := strings.Split(path, "/")
	filename := segments[len(segments)-1]
	fnRunes := []rune(filename)

	// No room for anything except (part of) the filename.
	if len(fnRunes)+2 >= max {
		if len(fnRunes) >= max {
			return "…" + string(fnRunes[len(fnRunes)-(max-1):])
		}
		return "…/" + filename
	}

	// Greedily keep leading directories, then bridge with an ellipsis.
	budget := max - len(fnRunes) - 2 // "…/" before the filename
	var kept []string
	used := 0
	for _, seg := range segments[:len(segments)-1] {
		segLen := len([]rune(seg)) + 1 // trailing "/"
		if used+segLen > budget {
			break
		}
		kept = append(kept, seg)
		used += segLen
	}
	if len(kept) == len(segments)-1 {
		return path
	}
	var b strings.Builder
	for _, seg := range kept {
		b.WriteString(seg)
		b.WriteString("/")
	}
	b.WriteString("…/")
	b.WriteString(filename)
	return b.String()
}
