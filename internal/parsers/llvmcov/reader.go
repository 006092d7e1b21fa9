// Package llvmcov reads llvm-cov JSON exports ("llvm-cov export" /
// cargo-llvm-cov output) into per-file statement hit maps.
//
// These artifacts can be very large, so the reader walks the document with
// a token-level pull parser instead of materializing it: it recognizes
// "files" arrays and, within each file object, "filename" and "segments",
// and generically skips everything else at any nesting depth.
package llvmcov

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/covlight/covlight/internal/coverage"
)

// ErrMalformed reports a document whose required positions carry the wrong
// JSON types. Unknown keys and extra values are never an error.
var ErrMalformed = errors.New("malformed llvm-cov json")

// ParseStatementHits streams one llvm-cov JSON document and returns
// statement hits keyed by normalized file path, then by packed
// (line, column) statement id.
//
// Only segments with hasCount && isRegionEntry && !isGapRegion && line > 0
// contribute. Within one document, segments resolving to the same
// statement id combine by max: overlapping region counters restate the
// same execution count, they are not independent executions. Cross-shard
// accumulation (sum) belongs to the report merger.
func ParseStatementHits(r io.Reader, root string) (map[string]map[uint64]uint32, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	out := map[string]map[uint64]uint32{}
	if err := walkValue(dec, out, root); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFile parses an export file from disk. A missing or unreadable file
// is "no data", letting the caller fall back to line-hit analysis.
func ReadFile(path, root string) (map[string]map[uint64]uint32, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, nil
	}
	defer f.Close()
	hits, err := ParseStatementHits(f, root)
	if err != nil {
		return nil, false, err
	}
	return hits, true, nil
}

// ReadRepo reads the conventional coverage/coverage.json export under the
// repository root.
func ReadRepo(root string) (map[string]map[uint64]uint32, bool, error) {
	return ReadFile(filepath.Join(root, "coverage", "coverage.json"), root)
}

// StatementTotals reduces a hit map to per-file (total, covered) counts.
func StatementTotals(hitsByPath map[string]map[uint64]uint32) map[string]coverage.StatementTotals {
	totals := make(map[string]coverage.StatementTotals, len(hitsByPath))
	for path, hits := range hitsByPath {
		var covered uint32
		for _, hit := range hits {
			if hit > 0 {
				covered = coverage.SatAddU32(covered, 1)
			}
		}
		totals[path] = coverage.StatementTotals{
			Total:   coverage.ClampU32(uint64(len(hits))),
			Covered: covered,
		}
	}
	return totals
}

// walkValue consumes exactly one JSON value, descending into objects and
// arrays so a "files" key is recognized at any depth.
func walkValue(dec *json.Decoder, out map[string]map[uint64]uint32, root string) error {
	tok, err := dec.Token()
	if err != nil {
		return wrapToken(err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil // scalar
	}
	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return wrapToken(err)
			}
			key, _ := keyTok.(string)
			if key == "files" {
				if err := walkFiles(dec, out, root); err != nil {
					return err
				}
				continue
			}
			if err := walkValue(dec, out, root); err != nil {
				return err
			}
		}
		_, err = dec.Token() // closing }
		return wrapToken(err)
	case '[':
		for dec.More() {
			if err := walkValue(dec, out, root); err != nil {
				return err
			}
		}
		_, err = dec.Token() // closing ]
		return wrapToken(err)
	}
	return nil
}

// walkFiles consumes the value of a "files" key. Anything other than an
// array of objects is walked generically; llvm-cov's own schema always
// uses the array form.
func walkFiles(dec *json.Decoder, out map[string]map[uint64]uint32, root string) error {
	tok, err := dec.Token()
	if err != nil {
		return wrapToken(err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	if delim != '[' {
		return skipOpened(dec, delim)
	}
	for dec.More() {
		if err := walkFileObject(dec, out, root); err != nil {
			return err
		}
	}
	_, err = dec.Token() // closing ]
	return wrapToken(err)
}

func walkFileObject(dec *json.Decoder, out map[string]map[uint64]uint32, root string) error {
	tok, err := dec.Token()
	if err != nil {
		return wrapToken(err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	if delim != '{' {
		return skipOpened(dec, delim)
	}

	var filename string
	var segments []segment
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return wrapToken(err)
		}
		key, _ := keyTok.(string)
		switch key {
		case "filename":
			nameTok, err := dec.Token()
			if err != nil {
				return wrapToken(err)
			}
			name, ok := nameTok.(string)
			if !ok {
				return fmt.Errorf("%w: filename is not a string", ErrMalformed)
			}
			filename = name
		case "segments":
			segs, err := readSegments(dec)
			if err != nil {
				return err
			}
			segments = segs
		default:
			if err := skipValue(dec); err != nil {
				return err
			}
		}
	}
	if _, err := dec.Token(); err != nil { // closing }
		return wrapToken(err)
	}

	if filename == "" {
		return nil
	}
	path := coverage.NormalizePath(filename, root)
	hits := out[path]
	if hits == nil {
		hits = map[uint64]uint32{}
		out[path] = hits
	}
	for _, seg := range segments {
		if !seg.hasCount || !seg.isRegionEntry || seg.isGapRegion || seg.line == 0 {
			continue
		}
		id := coverage.StatementID(seg.line, seg.col)
		if seg.count > hits[id] {
			hits[id] = seg.count
		}
	}
	return nil
}

type segment struct {
	line          uint32
	col           uint32
	count         uint32
	hasCount      bool
	isRegionEntry bool
	isGapRegion   bool
}

// readSegments decodes the segments array: tuples of
// [line, col, count, hasCount, isRegionEntry, isGapRegion, ...ignored].
func readSegments(dec *json.Decoder) ([]segment, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, wrapToken(err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return nil, fmt.Errorf("%w: segments is not an array", ErrMalformed)
	}

	var segs []segment
	for dec.More() {
		seg, err := readSegment(dec)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	if _, err := dec.Token(); err != nil { // closing ]
		return nil, wrapToken(err)
	}
	return segs, nil
}

func readSegment(dec *json.Decoder) (segment, error) {
	tok, err := dec.Token()
	if err != nil {
		return segment{}, wrapToken(err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '[' {
		return segment{}, fmt.Errorf("%w: segment is not a tuple", ErrMalformed)
	}

	var seg segment
	index := 0
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return segment{}, wrapToken(err)
		}
		if delim, ok := tok.(json.Delim); ok {
			// Nested value inside a segment tuple is out of schema.
			if err := skipOpened(dec, delim); err != nil {
				return segment{}, err
			}
			index++
			continue
		}
		switch index {
		case 0, 1, 2:
			num, ok := tok.(json.Number)
			if !ok {
				return segment{}, fmt.Errorf("%w: segment[%d] is not a number", ErrMalformed, index)
			}
			// Counts may use the full u64 range; clamping on the cast
			// is the model's job, overflow is not a document error.
			v, err := strconv.ParseUint(num.String(), 10, 64)
			if err != nil {
				if !errors.Is(err, strconv.ErrRange) {
					return segment{}, fmt.Errorf("%w: segment[%d] out of range", ErrMalformed, index)
				}
				v = math.MaxUint64
			}
			switch index {
			case 0:
				seg.line = coverage.ClampU32(v)
			case 1:
				seg.col = coverage.ClampU32(v)
			case 2:
				seg.count = coverage.ClampU32(v)
			}
		case 3, 4, 5:
			flag, ok := tok.(bool)
			if !ok {
				return segment{}, fmt.Errorf("%w: segment[%d] is not a bool", ErrMalformed, index)
			}
			switch index {
			case 3:
				seg.hasCount = flag
			case 4:
				seg.isRegionEntry = flag
			case 5:
				seg.isGapRegion = flag
			}
		default:
			// Trailing tuple members are ignored.
		}
		index++
	}
	if _, err := dec.Token(); err != nil { // closing ]
		return segment{}, wrapToken(err)
	}
	if index < 6 {
		return segment{}, fmt.Errorf("%w: segment tuple has %d members", ErrMalformed, index)
	}
	return seg, nil
}

// skipValue consumes and discards exactly one JSON value.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return wrapToken(err)
	}
	if delim, ok := tok.(json.Delim); ok {
		return skipOpened(dec, delim)
	}
	return nil
}

// skipOpened discards the remainder of a compound value whose opening
// delimiter has already been consumed.
func skipOpened(dec *json.Decoder, open json.Delim) error {
	if open != '{' && open != '[' {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return wrapToken(err)
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

func wrapToken(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected end of document", ErrMalformed)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
