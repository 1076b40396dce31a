// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package flate is a raw DEFLATE (RFC 1951) decoder forked from the Go
// standard library's compress/flate, adapted to expose the primitives
// zran needs for random access: stopping cleanly at deflate block
// boundaries, priming a partial byte into the bit accumulator, and
// installing an arbitrary 32 KiB window as the initial history buffer.
//
// Unlike compress/flate, Engine is always raw deflate; zlib and gzip
// framing is stripped by the caller before bytes reach the engine.
package flate

import (
	"bufio"
	"io"
	"strconv"
)

// CorruptInputError reports the presence of corrupt input at a given
// byte offset.
type CorruptInputError int64

func (e CorruptInputError) Error() string {
	return "flate: corrupt input before offset " + strconv.FormatInt(int64(e), 10)
}

// ReadError reports an error encountered while reading input.
type ReadError struct {
	Offset int64
	Err    error
}

func (e *ReadError) Error() string {
	return "flate: read error at offset " + strconv.FormatInt(e.Offset, 10) + ": " + e.Err.Error()
}

// InternalError reports an error in the engine itself.
type InternalError string

func (e InternalError) Error() string { return "flate: internal error: " + string(e) }

// Reader is the input interface the engine needs. If the caller's
// io.Reader does not also implement io.ByteReader, NewEngine wraps it
// in a bufio.Reader.
type Reader interface {
	io.Reader
	io.ByteReader
}

func makeReader(r io.Reader) Reader {
	if rr, ok := r.(Reader); ok {
		return rr
	}
	return bufio.NewReader(r)
}

// Status is the result of a single Step.
type Status int

const (
	// InProgress means the engine is mid-block; call Step again.
	InProgress Status = iota
	// BlockBoundary means the engine just finished a deflate block
	// (or hasn't started one yet) and holds no Huffman-table state
	// that the caller would need to preserve to resume here: a Point
	// may be taken safely.
	BlockBoundary
	// StreamEnd means the final block has been fully decoded.
	StreamEnd
)

type stepFunc func(*Engine)

// Engine is a single-use raw deflate decoder. It is not safe for
// concurrent use; callers needing to decompress multiple ranges
// concurrently should each construct their own Engine.
type Engine struct {
	r       Reader
	roffset int64 // compressed bytes consumed
	woffset int64 // uncompressed bytes flushed so far

	// Input bits, in the low end of b.
	b  uint32
	nb uint

	// Huffman decoders for literal/length, distance.
	h1, h2 huffmanDecoder

	// Length arrays used to define Huffman codes, reused across blocks.
	bits     [maxLit + maxDist]int
	codebits [numCodes]int

	// Sliding window history, as a ring buffer.
	hist  [WindowSize]byte
	hp    int  // current write position in hist
	hw    int  // already-flushed-up-to position in hist
	hfull bool // hist has wrapped at least once

	buf [4]byte // scratch for stored-block length headers

	step       stepFunc
	atBoundary bool
	final      bool
	err        error
	toRead     []byte
	hl, hd     *huffmanDecoder
	copyLen    int
	copyDist   int
}

// NewEngine returns a fresh engine reading raw deflate data from r.
func NewEngine(r io.Reader) *Engine {
	e := &Engine{
		r:          makeReader(r),
		step:       (*Engine).nextBlock,
		atBoundary: true,
	}
	return e
}

// SetDictionary installs window as the engine's initial sliding-window
// history, as if those bytes had already been produced as output. Must
// be called before the first Step.
func (e *Engine) SetDictionary(window []byte) {
	if len(window) > len(e.hist) {
		window = window[len(window)-len(e.hist):]
	}
	e.hp = copy(e.hist[:], window)
	if e.hp == len(e.hist) {
		e.hp = 0
		e.hfull = true
	}
	e.hw = e.hp
}

// Prime injects the high bits-many bits of b (i.e. b>>(8-bits)) as the
// next bits the engine will consume, ahead of
// reading any further bytes from the underlying reader. Used to resume
// at a checkpoint whose block boundary fell mid-byte.
func (e *Engine) Prime(bits uint, b byte) {
	if bits == 0 {
		return
	}
	v := uint32(b) >> (8 - bits)
	e.b |= v << e.nb
	e.nb += bits
}

// BitPosition reports the number of bits (0..7) currently buffered but
// not yet consumed, valid immediately after a BlockBoundary Step.
func (e *Engine) BitPosition() uint {
	return e.nb % 8
}

// Roffset reports the number of compressed bytes consumed so far.
func (e *Engine) Roffset() int64 { return e.roffset }

// Woffset reports the number of uncompressed bytes produced so far,
// including bytes produced but not yet drained via Drain.
func (e *Engine) Woffset() int64 {
	unflushed := e.hp - e.hw
	if unflushed < 0 {
		unflushed += len(e.hist)
	}
	return e.woffset + int64(unflushed)
}

// CopyWindow snapshots the trailing WindowSize bytes of history,
// zero-padded on the left if fewer than WindowSize bytes have been
// produced yet.
func (e *Engine) CopyWindow() [WindowSize]byte {
	var w [WindowSize]byte
	if !e.hfull {
		copy(w[len(w)-e.hp:], e.hist[:e.hp])
		return w
	}
	n := copy(w[:], e.hist[e.hp:])
	copy(w[n:], e.hist[:e.hp])
	return w
}

// Step drives the engine by one unit of work and reports what
// happened. Callers that only care about the final decoded bytes
// should use Inflate; callers building an index drive Step directly so
// they can inspect state at each BlockBoundary.
func (e *Engine) Step() (Status, error) {
	if e.err != nil {
		if e.err == io.EOF {
			return StreamEnd, nil
		}
		return InProgress, e.err
	}
	e.step(e)
	if e.err != nil {
		if e.err == io.EOF {
			return StreamEnd, nil
		}
		return InProgress, e.err
	}
	if e.atBoundary {
		return BlockBoundary, nil
	}
	return InProgress, nil
}

// Drain copies any output produced but not yet returned into out,
// returning the number of bytes copied.
func (e *Engine) Drain(out []byte) int {
	n := copy(out, e.toRead)
	e.toRead = e.toRead[n:]
	return n
}

// Inflate drives the engine until out is full, the stream ends, or an
// error occurs, discarding block-boundary status along the way. It is
// the convenience path for callers that just want bytes.
func (e *Engine) Inflate(out []byte) (int, error) {
	n := 0
	for n < len(out) {
		if len(e.toRead) > 0 {
			n += e.Drain(out[n:])
			continue
		}
		status, err := e.Step()
		if err != nil {
			return n, err
		}
		if status == StreamEnd && len(e.toRead) == 0 {
			return n, io.EOF
		}
	}
	return n, nil
}

func (e *Engine) setStep(step stepFunc, boundary bool) {
	e.step = step
	e.atBoundary = boundary
}

func (e *Engine) nextBlock() {
	if e.final {
		if e.hw != e.hp {
			e.flush((*Engine).nextBlock, true)
			return
		}
		e.err = io.EOF
		return
	}
	for e.nb < 1+2 {
		if e.err = e.moreBits(); e.err != nil {
			return
		}
	}
	e.final = e.b&1 == 1
	e.b >>= 1
	typ := e.b & 3
	e.b >>= 2
	e.nb -= 1 + 2
	e.atBoundary = false
	switch typ {
	case 0:
		e.dataBlock()
	case 1:
		e.hl = &fixedHuffmanDecoder
		e.hd = nil
		e.huffmanBlock()
	case 2:
		if e.err = e.readHuffman(); e.err != nil {
			return
		}
		e.hl = &e.h1
		e.hd = &e.h2
		e.huffmanBlock()
	default:
		e.err = CorruptInputError(e.roffset)
	}
}

var codeOrder = [...]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

func (e *Engine) readHuffman() error {
	for e.nb < 5+5+4 {
		if err := e.moreBits(); err != nil {
			return err
		}
	}
	nlit := int(e.b&0x1F) + 257
	if nlit > maxLit {
		return CorruptInputError(e.roffset)
	}
	e.b >>= 5
	ndist := int(e.b&0x1F) + 1
	e.b >>= 5
	nclen := int(e.b&0xF) + 4
	e.b >>= 4
	e.nb -= 5 + 5 + 4

	for i := 0; i < nclen; i++ {
		for e.nb < 3 {
			if err := e.moreBits(); err != nil {
				return err
			}
		}
		e.codebits[codeOrder[i]] = int(e.b & 0x7)
		e.b >>= 3
		e.nb -= 3
	}
	for i := nclen; i < len(codeOrder); i++ {
		e.codebits[codeOrder[i]] = 0
	}
	if !e.h1.init(e.codebits[0:]) {
		return CorruptInputError(e.roffset)
	}

	for i, n := 0, nlit+ndist; i < n; {
		x, err := e.huffSym(&e.h1)
		if err != nil {
			return err
		}
		if x < 16 {
			e.bits[i] = x
			i++
			continue
		}
		var rep int
		var nb uint
		var b int
		switch x {
		default:
			return InternalError("unexpected length code")
		case 16:
			rep = 3
			nb = 2
			if i == 0 {
				return CorruptInputError(e.roffset)
			}
			b = e.bits[i-1]
		case 17:
			rep = 3
			nb = 3
			b = 0
		case 18:
			rep = 11
			nb = 7
			b = 0
		}
		for e.nb < nb {
			if err := e.moreBits(); err != nil {
				return err
			}
		}
		rep += int(e.b & uint32(1<<nb-1))
		e.b >>= nb
		e.nb -= nb
		if i+rep > n {
			return CorruptInputError(e.roffset)
		}
		for j := 0; j < rep; j++ {
			e.bits[i] = b
			i++
		}
	}

	if !e.h1.init(e.bits[0:nlit]) || !e.h2.init(e.bits[nlit:nlit+ndist]) {
		return CorruptInputError(e.roffset)
	}
	return nil
}

func (e *Engine) huffmanBlock() {
	for {
		v, err := e.huffSym(e.hl)
		if err != nil {
			e.err = err
			return
		}
		var n uint
		var length int
		switch {
		case v < 256:
			e.hist[e.hp] = byte(v)
			e.hp++
			if e.hp == len(e.hist) {
				e.flush((*Engine).huffmanBlock, false)
				return
			}
			continue
		case v == 256:
			e.flush((*Engine).nextBlock, true)
			return
		case v < 265:
			length = v - (257 - 3)
			n = 0
		case v < 269:
			length = v*2 - (265*2 - 11)
			n = 1
		case v < 273:
			length = v*4 - (269*4 - 19)
			n = 2
		case v < 277:
			length = v*8 - (273*8 - 35)
			n = 3
		case v < 281:
			length = v*16 - (277*16 - 67)
			n = 4
		case v < 285:
			length = v*32 - (281*32 - 131)
			n = 5
		default:
			length = 258
			n = 0
		}
		if n > 0 {
			for e.nb < n {
				if err = e.moreBits(); err != nil {
					e.err = err
					return
				}
			}
			length += int(e.b & uint32(1<<n-1))
			e.b >>= n
			e.nb -= n
		}

		var dist int
		if e.hd == nil {
			for e.nb < 5 {
				if err = e.moreBits(); err != nil {
					e.err = err
					return
				}
			}
			dist = int(reverseByte[(e.b&0x1F)<<3])
			e.b >>= 5
			e.nb -= 5
		} else {
			if dist, err = e.huffSym(e.hd); err != nil {
				e.err = err
				return
			}
		}

		switch {
		case dist < 4:
			dist++
		case dist >= 30:
			e.err = CorruptInputError(e.roffset)
			return
		default:
			nb := uint(dist-2) >> 1
			extra := (dist & 1) << nb
			for e.nb < nb {
				if err = e.moreBits(); err != nil {
					e.err = err
					return
				}
			}
			extra |= int(e.b & uint32(1<<nb-1))
			e.b >>= nb
			e.nb -= nb
			dist = 1<<(nb+1) + 1 + extra
		}

		if dist > len(e.hist) {
			e.err = InternalError("bad history distance")
			return
		}
		if !e.hfull && dist > e.hp {
			e.err = CorruptInputError(e.roffset)
			return
		}

		e.copyLen, e.copyDist = length, dist
		if e.copyHist() {
			return
		}
	}
}

// copyHist copies copyLen bytes from hist (copyDist bytes back) onto
// itself. It reports whether a flush occurred, in which case the
// caller must return to let Step resume via the continuation it set.
func (e *Engine) copyHist() bool {
	p := e.hp - e.copyDist
	if p < 0 {
		p += len(e.hist)
	}
	for e.copyLen > 0 {
		n := e.copyLen
		if x := len(e.hist) - e.hp; n > x {
			n = x
		}
		if x := len(e.hist) - p; n > x {
			n = x
		}
		forwardCopy(e.hist[:], e.hp, p, n)
		p += n
		e.hp += n
		e.copyLen -= n
		if e.hp == len(e.hist) {
			e.flush((*Engine).copyHuff, false)
			return true
		}
		if p == len(e.hist) {
			p = 0
		}
	}
	return false
}

func (e *Engine) copyHuff() {
	if e.copyHist() {
		return
	}
	e.huffmanBlock()
}

func (e *Engine) dataBlock() {
	e.nb = 0
	e.b = 0

	nr, err := io.ReadFull(e.r, e.buf[0:4])
	e.roffset += int64(nr)
	if err != nil {
		e.err = &ReadError{e.roffset, err}
		return
	}
	n := int(e.buf[0]) | int(e.buf[1])<<8
	nn := int(e.buf[2]) | int(e.buf[3])<<8
	if uint16(nn) != uint16(^n) {
		e.err = CorruptInputError(e.roffset)
		return
	}

	if n == 0 {
		e.flush((*Engine).nextBlock, true)
		return
	}

	e.copyLen = n
	e.copyData()
}

func (e *Engine) copyData() {
	n := e.copyLen
	for n > 0 {
		m := len(e.hist) - e.hp
		if m > n {
			m = n
		}
		m, err := io.ReadFull(e.r, e.hist[e.hp:e.hp+m])
		e.roffset += int64(m)
		if err != nil {
			e.err = &ReadError{e.roffset, err}
			return
		}
		n -= m
		e.hp += m
		if e.hp == len(e.hist) {
			e.copyLen = n
			e.flush((*Engine).copyData, false)
			return
		}
	}
	e.flush((*Engine).nextBlock, true)
}

func (e *Engine) moreBits() error {
	c, err := e.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	e.roffset++
	e.b |= uint32(c) << e.nb
	e.nb += 8
	return nil
}

func (e *Engine) huffSym(h *huffmanDecoder) (int, error) {
	n := uint(h.min)
	for {
		for e.nb < n {
			if err := e.moreBits(); err != nil {
				return 0, err
			}
		}
		chunk := h.chunks[e.b&(huffmanNumChunks-1)]
		n = uint(chunk & huffmanCountMask)
		if n > huffmanChunkBits {
			chunk = h.links[chunk>>huffmanValueShift][(e.b>>huffmanChunkBits)&h.linkMask]
			n = uint(chunk & huffmanCountMask)
			if n == 0 {
				e.err = CorruptInputError(e.roffset)
				return 0, e.err
			}
		}
		if n <= e.nb {
			e.b >>= n
			e.nb -= n
			return int(chunk >> huffmanValueShift), nil
		}
	}
}

// flush exposes hist[hw:hp] for Drain and advances woffset/hw/hp
// bookkeeping, then sets the next step. boundary reports whether the
// position being flushed to is itself a deflate block boundary (as
// opposed to a mid-block pause forced by the history buffer filling).
func (e *Engine) flush(step stepFunc, boundary bool) {
	e.toRead = e.hist[e.hw:e.hp]
	e.woffset += int64(e.hp - e.hw)
	e.hw = e.hp
	if e.hp == len(e.hist) {
		e.hp = 0
		e.hw = 0
		e.hfull = true
	}
	e.setStep(step, boundary)
}
