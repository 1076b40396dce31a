package zran

import (
	"bytes"
	"testing"

	"github.com/coreos/zran/internal/header"
)

// TestCreateModifiedIndexHeadInteriorTail covers boundary scenario 6:
// decompressing through a modified index, rebased to its own slice of
// the compressed stream, must match the same range decompressed
// directly against the full index.
func TestCreateModifiedIndexHeadInteriorTail(t *testing.T) {
	data := testCorpus(2<<20, 20)
	compressed := compressGzip(data)
	idx, err := Create(compressed, header.ModeGzip, 1<<15)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(idx.Points) < 4 {
		t.Fatalf("expected several points, got %d", len(idx.Points))
	}

	interior := idx.Points[len(idx.Points)/2].Outloc
	last := idx.Points[len(idx.Points)-1].Outloc

	cases := []struct {
		name  string
		start uint64
		stop  *uint64
	}{
		{"head", 0, u64p(interior)},
		{"interior", interior, u64p(interior + 1000)},
		{"tail", last, nil},
	}

	for _, c := range cases {
		stop := c.stop
		if stop == nil {
			s := idx.UncompressedSize
			stop = &s
		}
		cr, ur, newIdx, err := idx.CreateModifiedIndex([]uint64{c.start}, c.stop)
		if err != nil {
			t.Fatalf("%s: CreateModifiedIndex: %v", c.name, err)
		}

		slice := compressed[cr.Lo:cr.Hi]
		got, err := Decompress(slice, newIdx, c.start-ur.Lo, *stop-c.start)
		if err != nil {
			t.Fatalf("%s: Decompress: %v", c.name, err)
		}
		want := data[c.start:*stop]
		if !bytes.Equal(got, want) {
			t.Errorf("%s: mismatch, got %d bytes want %d", c.name, len(got), len(want))
		}
	}
}

func u64p(v uint64) *uint64 { return &v }

// TestCreateModifiedIndexRangePastEnd covers the modified-index half of
// boundary scenario 8.
func TestCreateModifiedIndexRangePastEnd(t *testing.T) {
	data := testCorpus(1<<20, 21)
	compressed := compressGzip(data)
	idx, err := Create(compressed, header.ModeGzip, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, _, _, err = idx.CreateModifiedIndex([]uint64{idx.UncompressedSize}, nil)
	if err == nil {
		t.Fatal("expected RangeError for start at end of stream")
	}
	if _, ok := err.(*RangeError); !ok {
		t.Fatalf("err type = %T, want *RangeError", err)
	}
}

// TestCreateModifiedIndexDedup covers the spec's open-question
// resolution: duplicate and out-of-order starts are deduplicated and
// sorted before a single contiguous slice is computed.
func TestCreateModifiedIndexDedup(t *testing.T) {
	data := testCorpus(1<<20, 22)
	compressed := compressGzip(data)
	idx, err := Create(compressed, header.ModeGzip, 1<<15)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(idx.Points) < 3 {
		t.Fatalf("expected several points, got %d", len(idx.Points))
	}

	a := idx.Points[1].Outloc
	b := idx.Points[2].Outloc
	_, ur1, _, err := idx.CreateModifiedIndex([]uint64{b, a, a, b}, nil)
	if err != nil {
		t.Fatalf("CreateModifiedIndex: %v", err)
	}
	_, ur2, _, err := idx.CreateModifiedIndex([]uint64{a, b}, nil)
	if err != nil {
		t.Fatalf("CreateModifiedIndex: %v", err)
	}
	if ur1 != ur2 {
		t.Errorf("dedup/order should not affect result: %+v != %+v", ur1, ur2)
	}
}
