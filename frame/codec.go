package frame

import (
	"io"

	"github.com/pkg/errors"
)

// Frame is a zero-copy view over a decoded frame's backing buffer.
// All accessors slice into buf; none of them allocate.
type Frame struct {
	buf []byte
}

// View wraps an already-framed buffer (frame_length's bytes plus the
// 3-byte length field itself) without copying it.
func View(buf []byte) *Frame {
	return &Frame{buf: buf}
}

// Bytes returns the raw backing buffer, length field included.
func (f *Frame) Bytes() []byte { return f.buf }

// StreamID returns the stream_id field; 0 denotes a connection-level
// frame.
func (f *Frame) StreamID() uint32 { return StreamID(f.buf) }

// WireType returns the raw 6-bit wire type.
func (f *Frame) WireType() Type { return WireType(f.buf) }

// Flags returns the 10-bit flags field.
func (f *Frame) Flags() Flags { return FrameFlags(f.buf) }

// LogicalType resolves PAYLOAD's overloaded C/N flags into NEXT,
// COMPLETE or NEXT_COMPLETE; for every other wire type it is the wire
// type unchanged.
func (f *Frame) LogicalType() (Type, error) {
	return DecodeLogicalType(f.buf)
}

// Metadata returns a zero-copy view of the metadata block, or nil if
// the M flag is clear.
func (f *Frame) Metadata() []byte {
	return SliceMetadata(f.buf)
}

// Data returns a zero-copy view of the data block.
func (f *Frame) Data() []byte {
	return SliceData(f.buf)
}

// SliceMetadata returns a zero-copy view of buf's metadata block. It
// is empty when the M flag is clear.
func SliceMetadata(buf []byte) []byte {
	if !FrameFlags(buf).Has(FlagMetadata) {
		return nil
	}
	off := PayloadOffset(buf)
	wt := WireType(buf)
	if wt.hasMetadataLengthPrefix() {
		if off+3 > len(buf) {
			return nil
		}
		mlen := int(get24(buf[off : off+3]))
		start := off + 3
		end := start + mlen
		if end > len(buf) {
			end = len(buf)
		}
		return buf[start:end]
	}
	if wt.carriesPayload() {
		// Metadata is unprefixed and the type also carries data, which
		// this minimal implementation never emits together — metadata
		// would have no unambiguous end. Neither EncodeError nor
		// EncodeKeepalive ever sets the M flag, so this path is
		// unreached in practice; treat it as "no metadata" rather than
		// silently misreading the data block as metadata.
		return nil
	}
	// Unprefixed and data-free (METADATA_PUSH): metadata runs to the
	// end of the frame.
	return buf[off:]
}

// SliceData returns a zero-copy view of buf's data block. It is empty
// when the wire type does not carry data, or when nothing remains
// after the (optional) metadata block.
func SliceData(buf []byte) []byte {
	wt := WireType(buf)
	if !wt.carriesPayload() {
		return nil
	}
	off := PayloadOffset(buf)
	if FrameFlags(buf).Has(FlagMetadata) && wt.hasMetadataLengthPrefix() {
		if off+3 > len(buf) {
			return nil
		}
		mlen := int(get24(buf[off : off+3]))
		off = off + 3 + mlen
	}
	if off > len(buf) {
		return nil
	}
	return buf[off:]
}

func setFlags(buf []byte, flags Flags) {
	wt := uint16(WireType(buf))
	buf[7] = byte(wt<<2) | byte(flags>>8)
	buf[8] = byte(flags)
}

// EncodeMetadata appends metadata to buf, writing a 24-bit length
// prefix first when typ.hasMetadataLengthPrefix(); it sets the M flag
// bit in the already-written type_and_flags short when metadata is
// non-empty. Returns the extended buffer.
func EncodeMetadata(buf []byte, typ Type, metadata []byte) []byte {
	if len(metadata) == 0 {
		return buf
	}
	setFlags(buf, FrameFlags(buf).set(FlagMetadata))
	if typ.hasMetadataLengthPrefix() {
		var lenBuf [3]byte
		put24(lenBuf[:], uint32(len(metadata)))
		buf = append(buf, lenBuf[:]...)
	}
	return append(buf, metadata...)
}

// EncodeData appends raw data bytes to buf, with no length prefix.
func EncodeData(buf []byte, data []byte) []byte {
	return append(buf, data...)
}

// Encode is the top-level frame encoder. It writes the common header,
// the type's fixed-length header fields (fixed, which must already be
// sized to the fixedHeaderLen entry of typ's wire type), and the metadata/data
// region, appending everything to dst and returning the extended
// slice.
//
// When typ is one of the logical PAYLOAD subtypes (NEXT, COMPLETE,
// NEXT_COMPLETE) the wire type is rewritten to PAYLOAD and the
// matching C/N flags are ORed in; a literal TypePayload is rejected,
// callers must always name the logical subtype.
func Encode(dst []byte, streamID uint32, flags Flags, typ Type, fixed, metadata, data []byte) ([]byte, error) {
	if typ == TypePayload {
		return nil, errors.New("rsocket: Encode called with literal PAYLOAD; pass NEXT, COMPLETE or NEXT_COMPLETE")
	}

	wireType := typ
	if typ.IsLogicalPayload() {
		wireType = TypePayload
		switch typ {
		case TypeNext:
			flags |= FlagNext
		case TypeComplete:
			flags |= FlagComplete
		case TypeNextComplete:
			flags |= FlagNext | FlagComplete
		}
	}

	if want := fixedHeaderLen[wireType]; len(fixed) != want {
		return nil, errors.Errorf("rsocket: Encode: %s needs a %d-byte fixed header, got %d", wireType, want, len(fixed))
	}

	// Built in a fresh local buffer, not appended straight into dst, so
	// every offset math in EncodeMetadata/setFlags stays relative to
	// frame start regardless of where in dst the caller wants it.
	frameBuf := make([]byte, headerSize, headerSize+len(fixed)+3+len(metadata)+len(data))
	if err := EncodeHeader(frameBuf[:headerSize], headerSize, streamID, wireType, flags); err != nil {
		return nil, err
	}
	frameBuf = append(frameBuf, fixed...)
	frameBuf = EncodeMetadata(frameBuf, wireType, metadata)
	frameBuf = EncodeData(frameBuf, data)

	frameLen := len(frameBuf)
	if frameLen-3 > MaxFrameLength {
		return nil, &FrameTooLargeError{Length: frameLen}
	}
	put24(frameBuf[0:3], uint32(frameLen-3))
	return append(dst, frameBuf...), nil
}

// ReadFrame reads one length-prefixed frame from r into a buffer drawn
// from pool, returning it as a *Frame. The caller owns the returned
// frame until it calls pool.Put with its backing bytes.
func ReadFrame(r io.Reader, pool *Pool) (*Frame, error) {
	var lenBuf [3]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, errors.Wrap(err, "rsocket: frame length read failed")
	}
	n := int(get24(lenBuf[:]))

	buf := pool.Get(3 + n)
	copy(buf, lenBuf[:])
	if _, err := io.ReadFull(r, buf[3:3+n]); err != nil {
		pool.Put(buf)
		return nil, errors.Wrap(err, "rsocket: frame body read failed")
	}
	return View(buf[:3+n]), nil
}

// WriteFrame writes a length-prefixed frame (buf already includes the
// 3-byte length field) to w.
func WriteFrame(w io.Writer, buf []byte) error {
	_, err := w.Write(buf)
	return errors.Wrap(err, "rsocket: frame write failed")
}
