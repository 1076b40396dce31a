package zran

import (
	"bytes"

	"github.com/coreos/zran/flate"
)

// Decompress extracts uncompressed[start:start+length] from compressed,
// using idx to resume decoding at the nearest preceding checkpoint
// rather than decompressing from the beginning of the stream.
// compressed must begin at the byte idx.Points[0].Inloc refers to: the
// original full compressed buffer for an unmodified Index, or the
// compressed slice CreateModifiedIndex returned alongside a modified
// one.
func Decompress(compressed []byte, idx *Index, start, length uint64) ([]byte, error) {
	if start+length > idx.UncompressedSize {
		return nil, errRangePastEnd
	}
	if length == 0 {
		return []byte{}, nil
	}

	var p Point
	if len(idx.Points) > 0 {
		p = GetClosestPoint(idx.Points, start, false)
	}

	eng := flate.NewEngine(bytes.NewReader(compressed[p.Inloc:]))
	if p.Bits != 0 {
		eng.Prime(uint(p.Bits), compressed[p.Inloc-1])
	}
	if len(p.Window) > 0 {
		eng.SetDictionary(p.Window)
	}

	discard := start - p.Outloc
	out := make([]byte, discard+length)
	if _, err := eng.Inflate(out); err != nil {
		return nil, translateEngineErr(err)
	}

	return out[discard:], nil
}
