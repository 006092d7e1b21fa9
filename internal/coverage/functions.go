package coverage

import (
	"strconv"
	"strings"
)

// NormalizeFunctionKey collapses Rust v0-mangled symbol names that differ
// only by the compiler-chosen crate-hash disambiguator:
//
//	_RNvNtCs2PylkhAFI23_11parity_real1a1a
//	_RNvNtCsiNoeFlk8yU1_11parity_real1a1a
//
// cargo llvm-cov can emit multiple FN/FNDA records for the same source
// function that only differ by this hash. Stripping the `Cs<hash>_`
// segment merges them into one reporting entity instead of near-duplicate
// functions. Non-mangled names pass through unchanged.
func NormalizeFunctionKey(raw string) string {
	rest, ok := strings.CutPrefix(raw, "_RNvNtCs")
	if !ok {
		return raw
	}
	_, suffix, ok := strings.Cut(rest, "_")
	if !ok {
		return raw
	}
	return suffix
}

// FunctionID derives the stable per-file function id: "{line}:{name}" when
// the start line is known, else just the normalized name.
func FunctionID(name string, line uint32) string {
	if line == 0 {
		return name
	}
	return strconv.FormatUint(uint64(line), 10) + ":" + name
}
