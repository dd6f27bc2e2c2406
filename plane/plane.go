// Package plane decodes one color plane: per-slice Huffman residual decode
// followed by a left-neighbor predictor reconstruction.
//
// The predictor itself is the degenerate case of jpeg/lossless's seven JPEG
// lossless predictors (predictor 1, Px = Ra, the left neighbor) wrapping
// around mod 256 instead of clamping to a bit depth; the slice/fill-mode
// bookkeeping around it has no JPEG analogue and is ported from the
// reference decoder's decode_plane.
package plane

import (
	"encoding/binary"
	"errors"

	"github.com/cocosip/utvideo-codec/bitreader"
	"github.com/cocosip/utvideo-codec/huffman"
)

// EndPad is the number of trailing columns handled one symbol at a time
// instead of through the joint table, so a six-symbol probe near the row's
// end never needs to address past the row.
const EndPad = 5

var (
	// ErrNoProgress is returned when read_multi decodes zero symbols —
	// an unassigned joint-table slot was reached.
	ErrNoProgress = errors.New("plane: decoder made no progress (corrupt slice)")
	// ErrSliceSize is returned for a zero-length or negative slice.
	ErrSliceSize = errors.New("plane: slice has non-positive size")
)

// Decode fills dst (h rows of stride bytes, the first w columns
// significant) from the plane's Huffman table, slice offsets and slice
// payload bytes. offsets holds the slices cumulative end offsets
// (E[0..S-1]) into payload, consistent with spec.md's plane layout.
//
// residual and swapBuf are caller-owned scratch, reused across calls
// instead of allocated per slice (see utvideo.Context, which sizes them
// once from W/H like the reference decoder's video_init). residual must be
// at least w+8 bytes; swapBuf must be at least SwapBufSize(w, h) bytes.
func Decode(tbl *huffman.Table, dst []byte, stride, w, h, slices int, offsets []uint32, payload []byte, residual, swapBuf []byte) error {
	if sym, ok := tbl.IsFill(); ok {
		fill(dst, stride, w, h, slices, byte(sym))
		return nil
	}

	var br bitreader.Reader

	start := uint32(0)
	for k := 0; k < slices; k++ {
		end := offsets[k]
		if end <= start {
			return ErrSliceSize
		}
		slicePayload := payload[start:end]

		scratch := swapWords(slicePayload, swapBuf)
		if err := br.Init(scratch, uint32(len(slicePayload))*8); err != nil {
			return err
		}

		rowStart := h * k / slices
		rowEnd := h * (k + 1) / slices
		prev := byte(0x80)

		for row := rowStart; row < rowEnd; row++ {
			i := 0
			for i < w-EndPad {
				var syms [8]byte
				n := tbl.ReadMulti(&br, &syms)
				if n == 0 {
					return ErrNoProgress
				}
				copy(residual[i:i+n], syms[:n])
				i += n
			}
			for i < w {
				sym, err := tbl.ReadSingle(&br)
				if err != nil {
					return err
				}
				residual[i] = byte(sym)
				i++
			}

			rowOff := row * stride
			acc := prev
			for c := 0; c < w; c++ {
				acc += residual[c]
				dst[rowOff+c] = acc
			}
			prev = dst[rowOff+w-1]
		}

		start = end
	}
	return nil
}

// fill reconstructs a constant-residual plane without touching the
// bitstream: every pixel is the left predictor's running sum of a
// constant value v, re-seeded to 0x80 at each slice boundary.
func fill(dst []byte, stride, w, h, slices int, v byte) {
	for k := 0; k < slices; k++ {
		rowStart := h * k / slices
		rowEnd := h * (k + 1) / slices
		prev := byte(0x80)
		for row := rowStart; row < rowEnd; row++ {
			rowOff := row * stride
			acc := prev
			for c := 0; c < w; c++ {
				acc += v
				dst[rowOff+c] = acc
			}
			prev = dst[rowOff+w-1]
		}
	}
}

// SwapBufSize returns the scratch size swapWords needs for the largest
// slice a w-by-h plane can ever carry, mirroring video_init's
// slice_buf_size (W*H*4 + W*4) plus the four trailing zero bytes
// bitreader's final refill may read past the logical end.
func SwapBufSize(w, h int) int {
	return w*h*4 + w*4 + 4
}

// swapWords copies src into buf with every 32-bit word's bytes reversed,
// zero-padding the final partial word and the four trailing bytes so
// bitreader's final refill never reads stale data from a previous call.
// See spec.md §4.5: the encoder writes bits MSB-first as if the whole slice
// were one big-endian stream but stores the underlying words
// little-endian; reversing each word turns it back into a contiguous
// big-endian stream. buf must be at least SwapBufSize(w, h) bytes for the
// plane src was sliced from.
func swapWords(src []byte, buf []byte) []byte {
	n := len(src)
	padded := ((n + 3) / 4) * 4
	out := buf[:padded+4]
	for i := range out {
		out[i] = 0
	}
	copy(out, src)
	for i := 0; i+4 <= padded; i += 4 {
		w := binary.LittleEndian.Uint32(out[i:])
		binary.BigEndian.PutUint32(out[i:], w)
	}
	return out
}
