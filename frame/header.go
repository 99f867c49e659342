package frame

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// MaxFrameLength is the largest frame_length value the 24-bit length
// field can represent.
const MaxFrameLength = 1<<24 - 1

// headerSize is the common header: 3 bytes frame_length + 4 bytes
// stream_id + 2 bytes type_and_flags.
const headerSize = 3 + 4 + 2

// FrameTooLargeError is returned by EncodeHeader when the frame would
// not fit the 24-bit length field.
type FrameTooLargeError struct {
	Length int
}

func (e *FrameTooLargeError) Error() string {
	return errors.Errorf("rsocket: frame length %d exceeds 2^24-1", e.Length).Error()
}

// put24 writes n as a 24-bit big-endian unsigned integer at buf[0:3].
// Implemented as three explicit byte stores rather than a shifted
// 32-bit write, to sidestep the sign-extension pitfalls of writing a
// signed int at a byte offset.
func put24(buf []byte, n uint32) {
	buf[0] = byte(n >> 16)
	buf[1] = byte(n >> 8)
	buf[2] = byte(n)
}

func get24(buf []byte) uint32 {
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
}

// EncodeHeader writes the common frame header — the 24-bit
// frame_length (excluding the length field itself), the 32-bit
// stream_id, and the packed type_and_flags short — into buf[0:9].
// buf must be at least headerSize bytes long.
func EncodeHeader(buf []byte, frameLength int, streamID uint32, typ Type, flags Flags) error {
	if frameLength-3 > MaxFrameLength || frameLength < 0 {
		return &FrameTooLargeError{Length: frameLength}
	}
	put24(buf, uint32(frameLength-3))
	binary.BigEndian.PutUint32(buf[3:7], streamID)
	binary.BigEndian.PutUint16(buf[7:9], uint16(typ&0x3F)<<10|uint16(flags&flagsMask))
	return nil
}

// StreamID returns the stream_id field of a frame without copying.
func StreamID(buf []byte) uint32 {
	return binary.BigEndian.Uint32(buf[3:7])
}

// WireType returns the raw 6-bit wire frame type, before the
// PAYLOAD-overload translation DecodeLogicalType performs.
func WireType(buf []byte) Type {
	return Type(binary.BigEndian.Uint16(buf[7:9]) >> 10)
}

// FrameFlags returns the 10-bit flags field.
func FrameFlags(buf []byte) Flags {
	return Flags(binary.BigEndian.Uint16(buf[7:9])) & flagsMask
}

// IllegalFrameError marks a frame that is syntactically well formed
// but violates a protocol invariant — the overloaded PAYLOAD type with
// neither N nor C set, most notably.
type IllegalFrameError struct {
	Reason string
}

func (e *IllegalFrameError) Error() string {
	return "rsocket: illegal frame: " + e.Reason
}

// DecodeLogicalType reads the 6-bit wire type and, if it is PAYLOAD,
// resolves the C/N flag combination into the logical NEXT / COMPLETE /
// NEXT_COMPLETE type. A PAYLOAD frame with neither flag set is an
// IllegalFrameError.
func DecodeLogicalType(buf []byte) (Type, error) {
	wt := WireType(buf)
	if wt != TypePayload {
		return wt, nil
	}
	fl := FrameFlags(buf)
	n, c := fl.Has(FlagNext), fl.Has(FlagComplete)
	switch {
	case n && c:
		return TypeNextComplete, nil
	case n:
		return TypeNext, nil
	case c:
		return TypeComplete, nil
	default:
		return 0, &IllegalFrameError{Reason: "PAYLOAD frame with neither N nor C flag set"}
	}
}
