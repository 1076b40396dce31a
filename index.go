package zran

import (
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/coreos/zran/internal/header"
)

// Index is an ordered, immutable collection of Points over one
// compressed stream, together with the metadata needed to interpret
// them. Once built, an Index is safe for concurrent read-only use.
type Index struct {
	// Mode is the DEFLATE framing the Points were captured against:
	// header.ModeRaw, header.ModeZlib, or header.ModeGzip. After
	// CreateModifiedIndex, Mode is always header.ModeRaw.
	Mode int
	// CompressedSize and UncompressedSize are the full sizes of the
	// streams the Points were built from (or, after modification, of
	// the retained slice).
	CompressedSize   uint64
	UncompressedSize uint64
	// Points is the ordered, strictly-increasing-by-Outloc checkpoint
	// sequence. Points[0].Outloc == 0.
	Points []Point
}

// Have returns the number of Points in the index.
func (idx *Index) Have() int { return len(idx.Points) }

// CompressedRange is a half-open [Lo, Hi) byte range into a compressed
// stream, as produced by CreateModifiedIndex.
type CompressedRange struct {
	Lo, Hi uint64
}

// UncompressedRange is a half-open [Lo, Hi) byte range into an
// uncompressed stream, as produced by CreateModifiedIndex.
type UncompressedRange struct {
	Lo, Hi uint64
}

// CreateModifiedIndex computes the minimal contiguous slice of Points
// sufficient to decompress every uncompressed range covering the
// requested starts up to stop (or to end-of-stream if stop is nil),
// and returns the corresponding compressed/uncompressed byte bounds
// alongside a new Index rebased so its first retained Point sits at
// uncompressed offset zero and compressed offset zero (or one, when
// that Point has priming Bits and the slice therefore begins at the
// partial byte before it). starts may be given in any
// order and with duplicates; both are normalized before use. A single
// start is a convenience case of the general list.
func (idx *Index) CreateModifiedIndex(starts []uint64, stop *uint64) (CompressedRange, UncompressedRange, *Index, error) {
	if len(starts) == 0 {
		return CompressedRange{}, UncompressedRange{}, nil, errors.New("zran: create_modified_index requires at least one start offset")
	}
	if len(idx.Points) == 0 {
		return CompressedRange{}, UncompressedRange{}, nil, errors.New("zran: index has no points")
	}

	normalized := append([]uint64(nil), starts...)
	sort.Slice(normalized, func(i, j int) bool { return normalized[i] < normalized[j] })
	deduped := normalized[:1]
	for _, s := range normalized[1:] {
		if s != deduped[len(deduped)-1] {
			deduped = append(deduped, s)
		}
	}

	min := deduped[0]
	max := deduped[len(deduped)-1]
	if min >= idx.UncompressedSize {
		return CompressedRange{}, UncompressedRange{}, nil, errRangePastEnd
	}
	if stop != nil && (*stop > idx.UncompressedSize || *stop <= max) {
		return CompressedRange{}, UncompressedRange{}, nil, errRangePastEnd
	}

	loIdx := sort.Search(len(idx.Points), func(i int) bool { return idx.Points[i].Outloc > min }) - 1
	if loIdx < 0 {
		loIdx = 0
	}

	hiIdx := len(idx.Points) - 1
	hiUncompressed := idx.UncompressedSize
	compressedHi := idx.CompressedSize
	if stop != nil {
		i := sort.Search(len(idx.Points), func(i int) bool { return idx.Points[i].Outloc >= *stop })
		if i < len(idx.Points) {
			hiIdx = i
			hiUncompressed = idx.Points[i].Outloc
			compressedHi = idx.Points[i].Inloc
		}
	}

	loPoint := idx.Points[loIdx]
	lo := loPoint.Outloc
	compressedLo := loPoint.Inloc
	if loPoint.Bits != 0 {
		compressedLo--
	}

	kept := idx.Points[loIdx : hiIdx+1]
	newPoints := make([]Point, len(kept))
	for i, p := range kept {
		newPoints[i] = Point{
			Outloc: p.Outloc - lo,
			Inloc:  p.Inloc - compressedLo,
			Bits:   p.Bits,
			Window: p.Window,
		}
	}

	newIdx := &Index{
		Mode:             header.ModeRaw,
		CompressedSize:   compressedHi - compressedLo,
		UncompressedSize: hiUncompressed - lo,
		Points:           newPoints,
	}

	return CompressedRange{Lo: compressedLo, Hi: compressedHi},
		UncompressedRange{Lo: lo, Hi: hiUncompressed},
		newIdx, nil
}

// readerAt adapts Decompress to io.ReaderAt, for callers that prefer
// Go's standard random-access interface. Every ReadAt allocates a
// fresh decode engine; it does not attempt to reuse state across
// calls.
type readerAt struct {
	compressed []byte
	idx        *Index
}

// ReaderAt returns an io.ReaderAt over the uncompressed contents of
// compressed, using idx for random access. compressed must begin at
// the byte idx.Points[0].Inloc refers to (the same contract
// Decompress has).
func (idx *Index) ReaderAt(compressed []byte) io.ReaderAt {
	return &readerAt{compressed: compressed, idx: idx}
}

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("zran: negative ReadAt offset")
	}
	data, err := Decompress(r.compressed, r.idx, uint64(off), uint64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
