package zran

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
)

var dflidxMagic = [6]byte{'D', 'F', 'L', 'I', 'D', 'X'}

const pointHeaderSize = 8 + 8 + 1 // outloc | inloc | bits

// WriteFile serializes idx to path in the DFLIDX format: a fixed
// header, then one 17-byte point header per Point, then one raw
// WindowSize window per Point whose Outloc != 0 (the origin point's
// window is omitted; it is reconstructed as a zero-filled buffer on
// read).
func (idx *Index) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := idx.writeTo(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func (idx *Index) writeTo(w io.Writer) error {
	if _, err := w.Write(dflidxMagic[:]); err != nil {
		return err
	}

	var hdr [1 + 8 + 8 + 4]byte
	hdr[0] = byte(int8(idx.Mode))
	binary.LittleEndian.PutUint64(hdr[1:9], idx.UncompressedSize)
	binary.LittleEndian.PutUint64(hdr[9:17], idx.CompressedSize)
	binary.LittleEndian.PutUint32(hdr[17:21], uint32(len(idx.Points)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	var ph [pointHeaderSize]byte
	for _, p := range idx.Points {
		binary.LittleEndian.PutUint64(ph[0:8], p.Outloc)
		binary.LittleEndian.PutUint64(ph[8:16], p.Inloc)
		ph[16] = p.Bits
		if _, err := w.Write(ph[:]); err != nil {
			return err
		}
	}

	for _, p := range idx.Points {
		if p.Outloc == 0 {
			continue
		}
		if _, err := w.Write(p.Window); err != nil {
			return err
		}
	}

	return nil
}

// ReadFile reads an Index previously written by WriteFile. Any
// malformed input — bad magic, a short read, or a point count that
// does not match the file's remaining size — yields
// ZranError("zran: invalid index file").
func ReadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := readFrom(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func readFrom(r io.Reader) (*Index, error) {
	var magic [6]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errInvalidIndex
	}
	if magic != dflidxMagic {
		return nil, errInvalidIndex
	}

	var hdr [1 + 8 + 8 + 4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errInvalidIndex
	}
	mode := int(int8(hdr[0]))
	uncompressedSize := binary.LittleEndian.Uint64(hdr[1:9])
	compressedSize := binary.LittleEndian.Uint64(hdr[9:17])
	have := binary.LittleEndian.Uint32(hdr[17:21])

	points := make([]Point, have)
	var ph [pointHeaderSize]byte
	for i := range points {
		if _, err := io.ReadFull(r, ph[:]); err != nil {
			return nil, errInvalidIndex
		}
		points[i] = Point{
			Outloc: binary.LittleEndian.Uint64(ph[0:8]),
			Inloc:  binary.LittleEndian.Uint64(ph[8:16]),
			Bits:   ph[16],
		}
	}

	for i := range points {
		if points[i].Outloc == 0 {
			points[i].Window = make([]byte, WindowSize)
			continue
		}
		w := make([]byte, WindowSize)
		if _, err := io.ReadFull(r, w); err != nil {
			return nil, errInvalidIndex
		}
		points[i].Window = w
	}
	var extra [1]byte
	if n, _ := io.ReadFull(r, extra[:]); n != 0 {
		return nil, errInvalidIndex
	}

	return &Index{
		Mode:             mode,
		CompressedSize:   compressedSize,
		UncompressedSize: uncompressedSize,
		Points:           points,
	}, nil
}
