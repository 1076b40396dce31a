package zran

import (
	"bufio"
	"context"
	"io"

	"github.com/coreos/zran/capnslog"
	"github.com/coreos/zran/flate"
	"github.com/coreos/zran/internal/header"
	"github.com/coreos/zran/stop"
)

var plog = capnslog.NewPackageLogger("github.com/coreos/zran", "zran")

const (
	// DefaultSpan is the target uncompressed spacing between adjacent
	// Points when span is left unspecified.
	DefaultSpan = 1 << 20
	// MinSpan is the smallest span Indexer will honor; smaller values
	// are clamped up to it.
	MinSpan = 1 << 15

	trailerZlib = 4
	trailerGzip = 8
)

// Create builds an Index over the entirety of data, which must hold a
// single raw/zlib/gzip-framed deflate stream in the given mode. span is
// the target uncompressed distance between checkpoints; zero selects
// DefaultSpan.
func Create(data []byte, mode int, span uint64) (*Index, error) {
	return CreateFromReader(context.Background(), &bytesReader{data}, mode, span, nil)
}

// bytesReader avoids importing bytes just for a Reader adapter the
// indexer immediately wraps in a bufio.Reader anyway.
type bytesReader struct{ b []byte }

func (r *bytesReader) Read(p []byte) (int, error) {
	if len(r.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.b)
	r.b = r.b[n:]
	return n, nil
}

// CreateFromReader builds an Index by streaming r, which must yield a
// single raw/zlib/gzip-framed deflate stream in the given mode. If ctx
// is canceled mid-build, the partial index is discarded and ctx.Err()
// is returned. If grp is non-nil, the build registers itself so the
// group's Stop can be used to coordinate shutdown alongside other
// stoppable components (e.g. the upstream reader supplying r).
func CreateFromReader(ctx context.Context, r io.Reader, mode int, span uint64, grp *stop.Group) (*Index, error) {
	if span == 0 {
		span = DefaultSpan
	}
	if span < MinSpan {
		span = MinSpan
	}

	done := make(chan struct{})
	if grp != nil {
		grp.AddFunc(func() <-chan struct{} { return done })
		defer close(done)
	}

	br := bufio.NewReader(r)
	headerLen, err := header.Skip(mode, br)
	if err != nil {
		return nil, translateHeaderErr(err)
	}

	eng := flate.NewEngine(br)
	baseInloc := uint64(headerLen)

	var points []Point
	emit := func() {
		w := eng.CopyWindow()
		points = append(points, Point{
			Outloc: uint64(eng.Woffset()),
			Inloc:  baseInloc + uint64(eng.Roffset()),
			Bits:   uint8(eng.BitPosition()),
			Window: append([]byte(nil), w[:]...),
		})
	}

	// Point-0 policy: always taken at the first usable boundary, which
	// is the engine's pre-decode state.
	emit()
	last := points[0].Outloc

	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}

		status, err := eng.Step()
		if err != nil {
			return nil, translateEngineErr(err)
		}
		switch status {
		case flate.BlockBoundary:
			outloc := uint64(eng.Woffset())
			if outloc-last >= span {
				emit()
				last = outloc
			}
		case flate.StreamEnd:
			uncompressedSize := uint64(eng.Woffset())
			compressedSize := baseInloc + uint64(eng.Roffset())
			trailer := trailerLen(mode)
			for i := 0; i < trailer; i++ {
				if _, err := br.ReadByte(); err != nil {
					return nil, errPrematureEOF
				}
				compressedSize++
			}
			plog.Debugf("build: %d points, %d uncompressed bytes, %d compressed bytes", len(points), uncompressedSize, compressedSize)
			return &Index{
				Mode:             mode,
				CompressedSize:   compressedSize,
				UncompressedSize: uncompressedSize,
				Points:           points,
			}, nil
		}
	}
}

func trailerLen(mode int) int {
	switch mode {
	case header.ModeZlib:
		return trailerZlib
	case header.ModeGzip:
		return trailerGzip
	default:
		return 0
	}
}

func translateHeaderErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errPrematureEOF
	}
	return errCompressedData
}

func translateEngineErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errPrematureEOF
	}
	if re, ok := err.(*flate.ReadError); ok {
		if re.Err == io.ErrUnexpectedEOF || re.Err == io.EOF {
			return errPrematureEOF
		}
	}
	return errCompressedData
}
