package zran

import (
	"bytes"
	stdflate "compress/flate"
	"compress/gzip"
	"compress/zlib"
	"math/rand"

	"github.com/coreos/zran/internal/header"
)

// testCorpus returns n pseudo-random-but-repetitive bytes, the shape
// DEFLATE actually compresses well and real corpora look like: runs of
// English-ish text interleaved with random noise so both Huffman and
// LZ77 back-reference paths get exercised.
func testCorpus(n int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	phrases := [][]byte{
		[]byte("the quick brown fox jumps over the lazy dog "),
		[]byte("a journey of a thousand miles begins with a single step "),
		[]byte("DEFLATE is specified in RFC 1951 "),
	}
	buf := make([]byte, 0, n)
	for len(buf) < n {
		if rng.Intn(4) == 0 {
			b := make([]byte, 64)
			rng.Read(b)
			buf = append(buf, b...)
		} else {
			buf = append(buf, phrases[rng.Intn(len(phrases))]...)
		}
	}
	return buf[:n]
}

// compressRaw, compressZlib, compressGzip each wrap data with the
// standard library's own encoder so the fixtures are authoritative
// DEFLATE streams independent of this module's decoder.
func compressRaw(data []byte) []byte {
	var buf bytes.Buffer
	w, _ := stdflate.NewWriter(&buf, stdflate.BestCompression)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func compressZlib(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func compressGzip(data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func compressMode(data []byte, mode int) []byte {
	switch mode {
	case header.ModeZlib:
		return compressZlib(data)
	case header.ModeGzip:
		return compressGzip(data)
	default:
		return compressRaw(data)
	}
}
