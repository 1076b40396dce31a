package zran

import "sort"

// WindowSize is the size of the sliding-window dictionary carried by
// every non-origin Point.
const WindowSize = 32768

// Point is an immutable checkpoint into a compressed stream: the state
// needed to resume inflation at Outloc without decompressing from the
// beginning.
type Point struct {
	// Outloc is the uncompressed byte offset at which resumption
	// produces the next output byte.
	Outloc uint64
	// Inloc is the compressed byte offset of the byte containing the
	// first bit to feed after priming.
	Inloc uint64
	// Bits is the number of unused bits (0..7) at the end of the byte
	// at Inloc-1 that must be primed back into the decoder before
	// inflation resumes. Zero means resumption starts cleanly at
	// byte Inloc.
	Bits uint8
	// Window is the WindowSize-byte sliding-window dictionary
	// required to resolve back-references, or empty for a synthetic
	// origin point taken before WindowSize bytes of output exist.
	Window []byte
}

// GetClosestPoint returns the Point in points nearest offset. With
// greaterThan false (the default), it returns the rightmost point with
// Outloc <= offset; with greaterThan true, the leftmost point with
// Outloc >= offset. Exact matches are returned regardless of
// direction. points must be sorted by Outloc.
func GetClosestPoint(points []Point, offset uint64, greaterThan bool) Point {
	if greaterThan {
		i := sort.Search(len(points), func(i int) bool {
			return points[i].Outloc >= offset
		})
		if i == len(points) {
			i--
		}
		return points[i]
	}

	i := sort.Search(len(points), func(i int) bool {
		return points[i].Outloc > offset
	})
	if i == 0 {
		return points[0]
	}
	return points[i-1]
}
