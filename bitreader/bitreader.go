// Package bitreader implements the big-endian-oriented bit reader used to
// pull Huffman-coded residuals out of a slice payload.
//
// The wire format stores each slice as a sequence of little-endian 32-bit
// words, but the codes inside those words are written most-significant-bit
// first as if the whole slice were one contiguous big-endian stream. The
// caller is expected to byte-swap each 32-bit word of the slice once (see
// the plane package) so that Reader can treat the buffer as a plain
// big-endian bit source and never has to special-case word boundaries.
package bitreader

import (
	"encoding/binary"
	"errors"
)

// ErrBitSizeOverflow is returned by Init when bitSize would overflow the
// internal end-pointer arithmetic.
var ErrBitSizeOverflow = errors.New("bitreader: bit size too large")

// Reader reads an MSB-first bit stream out of buf.
//
// Externally it behaves exactly like the 32-bit accumulator spec.md
// describes: Peek(n) returns the top n bits of "the accumulator" and Skip(n)
// discards them. Internally it keeps a 64-bit register so a 32-bit refill
// can always be appended below whatever is still unread without ever
// dropping a bit — the same trick the reference decoder's bitstream.h plays
// with its bits.v/bits.p.h union, done here with plain uint64 shifts instead
// of a union.
type Reader struct {
	buf []byte
	ptr int // byte offset of the next word to load
	end int // byte offset one past the last readable byte

	bits  uint64 // valid bits occupy the TOP `valid` bits of this register
	valid uint8  // number of valid bits, 0..64
}

// Init resets r to read bitSize bits from buf and performs the initial
// refill. buf must carry at least 4 bytes of zero padding past the logical
// end (see plane.swapWords) so a refill straddling the end of real data never
// reads uninitialized memory.
func (r *Reader) Init(buf []byte, bitSize uint32) error {
	if bitSize > 1<<31-7 {
		return ErrBitSizeOverflow
	}
	r.buf = buf
	r.end = int((bitSize + 7) >> 3)
	r.ptr = 0
	r.bits = 0
	r.valid = 0
	r.refill()
	return nil
}

// refill loads one native 32-bit big-endian word from ptr and appends it
// directly below the bits still unread.
func (r *Reader) refill() {
	var word uint32
	if r.ptr+4 <= len(r.buf) {
		word = binary.BigEndian.Uint32(r.buf[r.ptr:])
	} else {
		var tmp [4]byte
		if r.ptr < len(r.buf) {
			copy(tmp[:], r.buf[r.ptr:])
		}
		word = binary.BigEndian.Uint32(tmp[:])
	}
	r.bits |= uint64(word) << (32 - r.valid)
	r.ptr += 4
	r.valid += 32
}

// Peek returns the top n bits (0 <= n <= 32) of the stream without
// consuming them, refilling first if fewer than n bits are currently
// buffered.
func (r *Reader) Peek(n uint8) uint32 {
	if r.valid <= n {
		r.refill()
	}
	return uint32(r.bits >> (64 - n))
}

// Skip discards the next n bits (0 <= n <= 32). Callers always call Peek
// first, which guarantees at least n bits are valid.
func (r *Reader) Skip(n uint8) {
	r.valid -= n
	r.bits <<= n
}

// BitsLeft reports the number of unread bits remaining in the stream,
// including whatever is still buffered in the accumulator.
func (r *Reader) BitsLeft() int64 {
	return int64(r.end-r.ptr)*8 + int64(r.valid)
}
