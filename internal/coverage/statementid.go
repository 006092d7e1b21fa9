package coverage

// StatementID packs a (line, column) source position into a single stable
// key for formats that lack native statement identity. Two calls with the
// same position always produce the same key, so the id is usable for
// deduplication across segments.
func StatementID(line, col uint32) uint64 {
	return uint64(line)<<32 | uint64(col)
}

// StatementIDLine recovers the line half of a packed statement id.
func StatementIDLine(id uint64) uint32 {
	return uint32(id >> 32)
}
