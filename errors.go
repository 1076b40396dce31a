package zran

// ZranError is the error surfaced for decoder failures: malformed
// compressed data, a stream that ends before its final block, or a
// corrupt DFLIDX file. The message text matches the spec exactly so
// callers can match on it.
type ZranError struct {
	msg string
}

func (e *ZranError) Error() string { return e.msg }

func newZranError(msg string) error { return &ZranError{msg: msg} }

var (
	errCompressedData = newZranError("zran: compressed data error in input file")
	errPrematureEOF   = newZranError("zran: input file ended prematurely")
	errInvalidIndex   = newZranError("zran: invalid index file")
)

// RangeError is returned when a caller requests a byte range beyond
// the bounds of the uncompressed stream. It plays the role spec.md
// assigns to ValueError: a programmer error, not data corruption.
type RangeError struct {
	msg string
}

func (e *RangeError) Error() string { return e.msg }

var errRangePastEnd = &RangeError{msg: "Offset and length specified would result in reading past the file bounds"}
