// Package dicomcodec adapts the core frame decoder to the local codec.Codec
// interface and to go-dicom's per-frame imagetypes.PixelData, the way
// jpeg2000/lossless.Codec and jpeg/baseline.Codec adapt their own decoders.
//
// Unlike those formats, a compressed frame here carries no width/height of
// its own — Context is sized once at construction, mirroring video_init's
// contract rather than a self-describing image format — so this codec is
// bound to one frame geometry per instance rather than registered once,
// globally, at package init.
package dicomcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"

	"github.com/cocosip/utvideo-codec/codec"
	"github.com/cocosip/utvideo-codec/utvideo"
)

// Name is this codec's human-readable name, by analogy with the teacher's
// j2kLosslessName / baseline codec name constants.
const Name = "Ut Video RGB24 Lossless"

// UID is an unregistered Transfer Syntax UID (an extension under the DICOM
// root arc): this codec is not a registered DICOM transfer syntax, so it
// cannot use one of go-dicom's own transfer.Syntax constants.
const UID = "1.2.840.10008.1.2.5.9999.1"

var _ codec.Codec = (*Codec)(nil)

// Codec decodes Ut Video frames of a fixed geometry into packed BGRA pixel
// data, for either the local single-frame codec.Codec interface or
// go-dicom's multi-frame imagetypes.PixelData.
type Codec struct {
	width, height, slices int
	ctx                   *utvideo.Context
}

// NewCodec constructs a codec bound to one frame geometry.
func NewCodec(width, height, slices int) (*Codec, error) {
	ctx, err := utvideo.NewContext(width, height, slices)
	if err != nil {
		return nil, fmt.Errorf("dicomcodec: %w", err)
	}
	return &Codec{width: width, height: height, slices: slices, ctx: ctx}, nil
}

// NewCodecForFrameInfo constructs a codec sized from a DICOM frame's Rows
// and Columns; slices is not a standard DICOM attribute and must be supplied
// by the caller (e.g. from a private tag or out-of-band configuration).
func NewCodecForFrameInfo(fi *imagetypes.FrameInfo, slices int) (*Codec, error) {
	if fi == nil {
		return nil, fmt.Errorf("dicomcodec: frame info is nil")
	}
	return NewCodec(int(fi.Width), int(fi.Height), slices)
}

// Register registers c with the package-level codec registry under both its
// name and UID, following codec.Register's contract. Unlike the teacher's
// stateless format codecs, which self-register once at package init, c is
// bound to one frame geometry, so the caller registers it once per dataset
// after constructing it (see codec.Registry's doc comment).
func Register(c *Codec) {
	codec.Register(c)
}

// Name returns the codec's human-readable name.
func (c *Codec) Name() string { return Name }

// UID returns the private Transfer Syntax UID this codec registers under.
func (c *Codec) UID() string { return UID }

// Encode is unsupported: encoding is out of scope for this decoder.
func (c *Codec) Encode(codec.EncodeParams) ([]byte, error) {
	return nil, codec.ErrUnsupportedFormat
}

// Decode decodes one compressed frame's payload into packed BGRA pixel
// data at this codec's bound geometry.
func (c *Codec) Decode(data []byte) (*codec.DecodeResult, error) {
	if _, err := c.ctx.DecodeFrame(data); err != nil {
		return nil, fmt.Errorf("dicomcodec: decode: %w", err)
	}
	return &codec.DecodeResult{
		PixelData:  packBGRA(c.ctx.Output(), c.ctx.Stride, c.width, c.height),
		Width:      c.width,
		Height:     c.height,
		Components: 4,
		BitDepth:   8,
	}, nil
}

// DecodeFrames unwraps every compressed frame in src and writes a decoded
// BGRA frame to dst for each, following the same get-frame/decode/add-frame
// loop jpeg2000/lossless.Codec.Decode uses for its own frames.
func (c *Codec) DecodeFrames(src, dst imagetypes.PixelData) error {
	if src == nil || dst == nil {
		return fmt.Errorf("dicomcodec: source and destination PixelData cannot be nil")
	}
	frameCount := src.FrameCount()
	if frameCount == 0 {
		return fmt.Errorf("dicomcodec: source pixel data is empty (no frames)")
	}
	for i := 0; i < frameCount; i++ {
		frameData, err := src.GetFrame(i)
		if err != nil {
			return fmt.Errorf("dicomcodec: failed to get frame %d: %w", i, err)
		}
		if _, err := c.ctx.DecodeFrame(frameData); err != nil {
			return fmt.Errorf("dicomcodec: decode frame %d: %w", i, err)
		}
		if err := dst.AddFrame(packBGRA(c.ctx.Output(), c.ctx.Stride, c.width, c.height)); err != nil {
			return fmt.Errorf("dicomcodec: failed to add decoded frame %d: %w", i, err)
		}
	}
	return nil
}

// packBGRA strips the plane stride's alignment padding and serializes
// w*h packed BGRA words into little-endian bytes.
func packBGRA(words []uint32, stride, w, h int) []byte {
	out := make([]byte, w*h*4)
	for row := 0; row < h; row++ {
		rowWords := words[row*stride : row*stride+w]
		dstOff := row * w * 4
		for i, v := range rowWords {
			binary.LittleEndian.PutUint32(out[dstOff+i*4:], v)
		}
	}
	return out
}
