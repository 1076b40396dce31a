// Package header computes how many leading bytes of a compressed stream
// belong to its raw/zlib/gzip framing, so the raw deflate data beneath
// can be handed to flate.Engine directly. It does not verify trailer
// checksums; zran only needs to locate where deflate data begins.
package header

import (
	"errors"
	"io"
)

// Mode values, matching the zlib window-bits convention used throughout
// zran: -15 raw deflate, 15 zlib-wrapped, 31 gzip-wrapped.
const (
	ModeRaw  = -15
	ModeZlib = 15
	ModeGzip = 31
)

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8

	gzipFlagText   = 1 << 0
	gzipFlagHdrCrc = 1 << 1
	gzipFlagExtra  = 1 << 2
	gzipFlagName   = 1 << 3
	gzipFlagComment = 1 << 4

	zlibFlagDict = 0x20
)

// ErrHeader reports a malformed or unsupported framing header.
var ErrHeader = errors.New("header: invalid or unsupported framing header")

// Skip reads and discards the framing header for mode from r, returning
// the number of bytes consumed. For ModeRaw this is always zero.
func Skip(mode int, r io.ByteReader) (int, error) {
	switch mode {
	case ModeRaw:
		return 0, nil
	case ModeZlib:
		return skipZlib(r)
	case ModeGzip:
		return skipGzip(r)
	default:
		return 0, ErrHeader
	}
}

func readByte(r io.ByteReader, n *int) (byte, error) {
	b, err := r.ReadByte()
	if err == nil {
		*n++
	}
	return b, err
}

func skipZlib(r io.ByteReader) (int, error) {
	n := 0
	cmf, err := readByte(r, &n)
	if err != nil {
		return n, err
	}
	flg, err := readByte(r, &n)
	if err != nil {
		return n, err
	}
	if cmf&0x0f != gzipDeflate {
		return n, ErrHeader
	}
	if (int(cmf)<<8|int(flg))%31 != 0 {
		return n, ErrHeader
	}
	if flg&zlibFlagDict != 0 {
		for i := 0; i < 4; i++ {
			if _, err := readByte(r, &n); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func skipGzip(r io.ByteReader) (int, error) {
	n := 0
	var hdr [10]byte
	for i := range hdr {
		b, err := readByte(r, &n)
		if err != nil {
			return n, err
		}
		hdr[i] = b
	}
	if hdr[0] != gzipID1 || hdr[1] != gzipID2 || hdr[2] != gzipDeflate {
		return n, ErrHeader
	}
	flg := hdr[3]

	if flg&gzipFlagExtra != 0 {
		lo, err := readByte(r, &n)
		if err != nil {
			return n, err
		}
		hi, err := readByte(r, &n)
		if err != nil {
			return n, err
		}
		xlen := int(lo) | int(hi)<<8
		for i := 0; i < xlen; i++ {
			if _, err := readByte(r, &n); err != nil {
				return n, err
			}
		}
	}
	if flg&gzipFlagName != 0 {
		if err := skipCString(r, &n); err != nil {
			return n, err
		}
	}
	if flg&gzipFlagComment != 0 {
		if err := skipCString(r, &n); err != nil {
			return n, err
		}
	}
	if flg&gzipFlagHdrCrc != 0 {
		for i := 0; i < 2; i++ {
			if _, err := readByte(r, &n); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func skipCString(r io.ByteReader, n *int) error {
	for {
		b, err := readByte(r, n)
		if err != nil {
			return err
		}
		if b == 0 {
			return nil
		}
	}
}
