package protocol

import (
	"encoding/binary"
	"math"
)

// The wire codec is a canonical, deterministic binary encoding: every
// message is its fields in declaration order, fixed-width values raw,
// variable-width values prefixed with a big-endian uint32 length.
// Identical messages always produce identical bytes, so encodings are
// safe to sign, hash, and compare.

type wireWriter struct {
	buf []byte
}

func (w *wireWriter) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *wireWriter) uint64(v uint64) {
	w.buf = append(w.buf, binary.LittleEndian.AppendUint64(nil, v)...)
}

func (w *wireWriter) lengthPrefixed(b []byte) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(len(b)))
	w.buf = append(w.buf, b...)
}

type wireReader struct {
	buf []byte
	off int
	err *DecodeError
}

func (r *wireReader) bytes(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = decodeErrorf("%s: need %d bytes, have %d", what, n, len(r.buf)-r.off)
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:])
	r.off += n
	return out
}

func (r *wireReader) uint64(what string) uint64 {
	b := r.bytes(8, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *wireReader) lengthPrefixed(what string) []byte {
	if r.err != nil {
		return nil
	}
	lenBytes := r.bytes(4, what)
	if lenBytes == nil {
		return nil
	}
	n := binary.BigEndian.Uint32(lenBytes)
	if n > math.MaxInt32 || r.off+int(n) > len(r.buf) {
		r.err = decodeErrorf("%s: length %d exceeds remaining %d bytes", what, n, len(r.buf)-r.off)
		return nil
	}
	return r.bytes(int(n), what)
}

// finish rejects trailing bytes, making encodings canonical in both
// directions.
func (r *wireReader) finish(what string) *DecodeError {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return decodeErrorf("%s: %d trailing bytes", what, len(r.buf)-r.off)
	}
	return nil
}
