// Package utvideo implements the top-level frame decoder: it parses the
// three-plane layout of a compressed frame, drives huffman/plane/colorspace
// for each plane, and assembles the packed BGRA output.
//
// The shape — a reusable Context the caller constructs once from (W, H, S)
// and then feeds frame payloads to — follows jpeg2000.Decoder's pattern of
// owning its scratch buffers across calls, generalized with a DecodeID so a
// failure can be correlated back to one long-lived decoder instance without
// a logging framework (see dicomcodec for where that correlation matters).
package utvideo

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cocosip/utvideo-codec/bytereader"
	"github.com/cocosip/utvideo-codec/colorspace"
	"github.com/cocosip/utvideo-codec/huffman"
	"github.com/cocosip/utvideo-codec/plane"
)

// colorPlanes is the number of planes a frame carries (G, B, R in stream
// order).
const colorPlanes = 3

// lineAlignmentPad is added to the frame width to form each plane's row
// stride, matching the reference decoder's LINE_ALIGNMENT_PAD.
const lineAlignmentPad = 16

var (
	// ErrInvalidDimensions is returned by NewContext for non-positive W, H or S.
	ErrInvalidDimensions = errors.New("utvideo: width, height and slice count must all be positive")
	// ErrShortPlaneHeader is returned when a plane's fixed 256+4*S byte
	// header does not fit in the remaining payload.
	ErrShortPlaneHeader = errors.New("utvideo: insufficient data for plane header")
	// ErrSliceOffsetOrder is returned when slice offsets are not
	// non-decreasing.
	ErrSliceOffsetOrder = errors.New("utvideo: slice offsets are not non-decreasing")
	// ErrSliceOffsetOverflow is returned when the final slice offset
	// exceeds the plane's remaining bytes.
	ErrSliceOffsetOverflow = errors.New("utvideo: final slice offset exceeds remaining plane bytes")
)

// DecodeError wraps a failure from DecodeFrame with enough context to
// correlate it back to one Context instance and one plane/slice.
type DecodeError struct {
	DecodeID uuid.UUID
	Plane    int // -1 if not plane-specific
	Slice    int // -1 if not slice-specific
	Err      error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Plane < 0:
		return fmt.Sprintf("utvideo: decode %s: %v", e.DecodeID, e.Err)
	case e.Slice < 0:
		return fmt.Sprintf("utvideo: decode %s: plane %d: %v", e.DecodeID, e.Plane, e.Err)
	default:
		return fmt.Sprintf("utvideo: decode %s: plane %d slice %d: %v", e.DecodeID, e.Plane, e.Slice, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Context holds one decoder's reusable buffers: three plane buffers, the
// packed BGRA output buffer, all sized from (W, H, S) at construction and
// reused across every DecodeFrame call.
type Context struct {
	W, H, Slices int
	Stride       int
	DecodeID     uuid.UUID

	planes [colorPlanes][]byte
	out    []uint32

	residual []byte // per-row scratch, reused across Decode calls
	swapBuf  []byte // bit-swap scratch, sized for the largest possible slice
}

// NewContext allocates a reusable decode context for frames of the given
// width, height and slice count.
func NewContext(w, h, slices int) (*Context, error) {
	if w <= 0 || h <= 0 || slices <= 0 {
		return nil, ErrInvalidDimensions
	}
	stride := w + lineAlignmentPad
	c := &Context{
		W:        w,
		H:        h,
		Slices:   slices,
		Stride:   stride,
		DecodeID: uuid.New(),
	}
	for i := range c.planes {
		c.planes[i] = make([]byte, stride*h)
	}
	c.out = make([]uint32, stride*h)
	c.residual = make([]byte, w+8)
	c.swapBuf = make([]byte, plane.SwapBufSize(w, h))
	return c, nil
}

// Output returns the most recently decoded frame as packed BGRA words at
// Context.Stride.
func (c *Context) Output() []uint32 {
	return c.out
}

func (c *Context) wrap(planeIdx, slice int, err error) error {
	return &DecodeError{DecodeID: c.DecodeID, Plane: planeIdx, Slice: slice, Err: err}
}

// DecodeFrame parses payload's three-plane layout, decodes each plane, and
// restores the inter-plane color transform into c.Output(). It returns the
// number of bytes consumed, which per spec is always len(payload) on
// success. A short plane header or bad slice offsets are rejected before any
// plane is decoded; an invalid code-length table or slice payload is
// reported when its plane is reached, after earlier planes were decoded.
func (c *Context) DecodeFrame(payload []byte) (int, error) {
	br := bytereader.New(payload)

	var clTables [colorPlanes][256]byte
	var offsets [colorPlanes][]uint32
	var planeData [colorPlanes][]byte

	for p := 0; p < colorPlanes; p++ {
		need := 256 + 4*c.Slices
		if br.BytesLeft() < need {
			return 0, c.wrap(p, -1, ErrShortPlaneHeader)
		}
		copy(clTables[p][:], payload[br.Pos():br.Pos()+256])
		br.SkipUnchecked(256)

		offs := make([]uint32, c.Slices)
		var prev uint32
		for k := 0; k < c.Slices; k++ {
			offs[k] = br.GetU32LEUnchecked()
			if offs[k] < prev {
				return 0, c.wrap(p, k, ErrSliceOffsetOrder)
			}
			prev = offs[k]
		}
		planeSize := int(offs[c.Slices-1])
		if planeSize > br.BytesLeft() {
			return 0, c.wrap(p, c.Slices-1, ErrSliceOffsetOverflow)
		}

		offsets[p] = offs
		planeData[p] = payload[br.Pos() : br.Pos()+planeSize]
		br.SkipUnchecked(planeSize)
	}

	for p := 0; p < colorPlanes; p++ {
		tbl, err := huffman.Build(&clTables[p])
		if err != nil {
			return 0, c.wrap(p, -1, err)
		}
		if err := plane.Decode(tbl, c.planes[p], c.Stride, c.W, c.H, c.Slices, offsets[p], planeData[p], c.residual, c.swapBuf); err != nil {
			return 0, c.wrap(p, -1, err)
		}
	}

	// Stream order is (G, B, R); colorspace.Restore takes them by role.
	colorspace.Restore(c.planes[0], c.planes[1], c.planes[2], c.out, c.Stride, c.W, c.H)

	return len(payload), nil
}
