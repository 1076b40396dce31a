package zran

import (
	"bytes"
	"testing"

	"github.com/coreos/zran/flate"
	"github.com/coreos/zran/internal/header"
)

// TestCreateGzipPointZero covers boundary scenario 1: after build, the
// origin point sits immediately past the gzip header with a full
// zero-padded window and no priming bits.
func TestCreateGzipPointZero(t *testing.T) {
	data := testCorpus(16<<20, 1)
	compressed := compressGzip(data)

	idx, err := Create(compressed, header.ModeGzip, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(idx.Points) == 0 {
		t.Fatal("expected at least one point")
	}
	p0 := idx.Points[0]
	if p0.Outloc != 0 {
		t.Errorf("Outloc = %d, want 0", p0.Outloc)
	}
	if p0.Inloc != 10 {
		t.Errorf("Inloc = %d, want 10 (minimal gzip header)", p0.Inloc)
	}
	if p0.Bits != 0 {
		t.Errorf("Bits = %d, want 0", p0.Bits)
	}
	if len(p0.Window) != WindowSize {
		t.Errorf("len(Window) = %d, want %d", len(p0.Window), WindowSize)
	}
}

// TestCreateCorruptHead covers boundary scenario 2.
func TestCreateCorruptHead(t *testing.T) {
	data := testCorpus(1<<16, 2)
	compressed := compressGzip(data)
	corrupt := compressed[100:]

	_, err := Create(corrupt, header.ModeGzip, 0)
	if err == nil {
		t.Fatal("expected error on corrupt head")
	}
	if err.Error() != "zran: compressed data error in input file" {
		t.Errorf("err = %q", err.Error())
	}
}

// TestCreateTruncatedTail covers boundary scenario 3.
func TestCreateTruncatedTail(t *testing.T) {
	data := testCorpus(1<<16, 3)
	compressed := compressGzip(data)
	truncated := compressed[:len(compressed)-10]

	_, err := Create(truncated, header.ModeGzip, 0)
	if err == nil {
		t.Fatal("expected error on truncated tail")
	}
	if err.Error() != "zran: input file ended prematurely" {
		t.Errorf("err = %q", err.Error())
	}
}

// TestCreateSpan covers P-span: no gap between adjacent points
// (measured in uncompressed bytes) may exceed span by more than one
// deflate block's worth of output.
func TestCreateSpan(t *testing.T) {
	const span = 1 << 16
	data := testCorpus(4<<20, 4)
	compressed := compressGzip(data)

	idx, err := Create(compressed, header.ModeGzip, span)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(idx.Points) < 2 {
		t.Fatal("expected multiple points over 4 MiB of input")
	}
	// maxBlockSize is the largest single deflate block's output in this
	// stream, measured by walking its block boundaries.
	br := bytes.NewReader(compressed)
	if _, err := header.Skip(header.ModeGzip, br); err != nil {
		t.Fatalf("header.Skip: %v", err)
	}
	eng := flate.NewEngine(br)
	var maxBlockSize, prev uint64
	for status := flate.InProgress; status != flate.StreamEnd; {
		if status, err = eng.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if status == flate.BlockBoundary {
			out := uint64(eng.Woffset())
			if out-prev > maxBlockSize {
				maxBlockSize = out - prev
			}
			prev = out
		}
	}
	for i := 1; i < len(idx.Points); i++ {
		gap := idx.Points[i].Outloc - idx.Points[i-1].Outloc
		if gap > span+maxBlockSize {
			t.Errorf("points[%d..%d] gap = %d, want <= %d", i-1, i, gap, span+maxBlockSize)
		}
	}
	if idx.UncompressedSize != uint64(len(data)) {
		t.Errorf("UncompressedSize = %d, want %d", idx.UncompressedSize, len(data))
	}
}

func TestCreateAllModes(t *testing.T) {
	data := testCorpus(1<<20, 5)
	for _, mode := range []int{header.ModeRaw, header.ModeZlib, header.ModeGzip} {
		compressed := compressMode(data, mode)
		idx, err := Create(compressed, mode, 0)
		if err != nil {
			t.Fatalf("mode %d: Create: %v", mode, err)
		}
		if idx.Mode != mode {
			t.Errorf("mode %d: idx.Mode = %d", mode, idx.Mode)
		}
		if idx.UncompressedSize != uint64(len(data)) {
			t.Errorf("mode %d: UncompressedSize = %d, want %d", mode, idx.UncompressedSize, len(data))
		}
		if idx.CompressedSize != uint64(len(compressed)) {
			t.Errorf("mode %d: CompressedSize = %d, want %d", mode, idx.CompressedSize, len(compressed))
		}
	}
}
