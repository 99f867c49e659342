package frame

// Per-type convenience encoders. These are the Go equivalent of the
// Java source's per-type "FrameFlyweight" encoders
// (PayloadFrameFlyweight.encodeNext, CancelFrameFlyweight.encode,
// RequestNFrameFlyweight.encode, ErrorFrameFlyweight.encode, ...):
// each one builds the fixed-header bytes for its type and delegates
// to Encode.

var noFixed = []byte{}

// EncodeNext builds a PAYLOAD frame with the N flag set.
func EncodeNext(dst []byte, streamID uint32, metadata, data []byte) ([]byte, error) {
	return Encode(dst, streamID, 0, TypeNext, noFixed, metadata, data)
}

// EncodeComplete builds a PAYLOAD frame with the C flag set and no
// payload.
func EncodeComplete(dst []byte, streamID uint32) ([]byte, error) {
	return Encode(dst, streamID, 0, TypeComplete, noFixed, nil, nil)
}

// EncodeNextComplete builds a PAYLOAD frame with both N and C set —
// the "one item, then done" shortcut request/response uses.
func EncodeNextComplete(dst []byte, streamID uint32, metadata, data []byte) ([]byte, error) {
	return Encode(dst, streamID, 0, TypeNextComplete, noFixed, metadata, data)
}

// EncodeRequestResponse builds a REQUEST_RESPONSE frame.
func EncodeRequestResponse(dst []byte, streamID uint32, metadata, data []byte) ([]byte, error) {
	return Encode(dst, streamID, 0, TypeRequestResponse, noFixed, metadata, data)
}

// EncodeRequestFNF builds a REQUEST_FNF frame.
func EncodeRequestFNF(dst []byte, streamID uint32, metadata, data []byte) ([]byte, error) {
	return Encode(dst, streamID, 0, TypeRequestFNF, noFixed, metadata, data)
}

// EncodeRequestStream builds a REQUEST_STREAM frame with the given
// initial credit.
func EncodeRequestStream(dst []byte, streamID uint32, initialRequestN uint32, metadata, data []byte) ([]byte, error) {
	var fixed [4]byte
	put32(fixed[:], initialRequestN)
	return Encode(dst, streamID, 0, TypeRequestStream, fixed[:], metadata, data)
}

// EncodeRequestChannel builds a REQUEST_CHANNEL frame with the given
// initial credit and bootstrap payload.
func EncodeRequestChannel(dst []byte, streamID uint32, initialRequestN uint32, metadata, data []byte) ([]byte, error) {
	var fixed [4]byte
	put32(fixed[:], initialRequestN)
	return Encode(dst, streamID, 0, TypeRequestChannel, fixed[:], metadata, data)
}

// EncodeRequestN builds a REQUEST_N frame carrying additional credit
// n.
func EncodeRequestN(dst []byte, streamID uint32, n uint32) ([]byte, error) {
	var fixed [4]byte
	put32(fixed[:], n)
	return Encode(dst, streamID, 0, TypeRequestN, fixed[:], nil, nil)
}

// EncodeCancel builds a CANCEL frame for streamID.
func EncodeCancel(dst []byte, streamID uint32) ([]byte, error) {
	return Encode(dst, streamID, 0, TypeCancel, noFixed, nil, nil)
}

// EncodeMetadataPush builds a connection-level METADATA_PUSH frame.
func EncodeMetadataPush(dst []byte, metadata []byte) ([]byte, error) {
	return Encode(dst, 0, 0, TypeMetadataPush, noFixed, metadata, nil)
}

// ErrorCode identifies the kind of error an ERROR frame carries.
// Values mirror the RSocket wire protocol's error code space; only
// the two this core actually emits are named.
type ErrorCode uint32

const (
	// ErrorCodeApplicationError marks a handler-raised error on a
	// request/response/stream/channel interaction.
	ErrorCodeApplicationError ErrorCode = 0x00000201
	// ErrorCodeConnectionError marks a connection-level protocol
	// violation (SETUP received post-setup, a raw PAYLOAD frame, an
	// unexpected LEASE frame on the responder side).
	ErrorCodeConnectionError ErrorCode = 0x00000101
)

// EncodeError builds an ERROR frame. streamID is 0 for connection-level
// errors, otherwise the id of the failed stream.
func EncodeError(dst []byte, streamID uint32, code ErrorCode, message []byte) ([]byte, error) {
	var fixed [4]byte
	put32(fixed[:], uint32(code))
	return Encode(dst, streamID, 0, TypeError, fixed[:], nil, message)
}

// ErrorMessage returns the error message carried by an ERROR frame's
// data block.
func ErrorMessage(buf []byte) []byte {
	return SliceData(buf)
}

// ErrorCodeOf returns the error code fixed-header field of an ERROR
// frame.
func ErrorCodeOf(buf []byte) ErrorCode {
	return ErrorCode(get32(buf[headerSize : headerSize+4]))
}

// FlagRespond is KEEPALIVE's per-type reinterpretation of the F bit:
// "this KEEPALIVE expects a KEEPALIVE reply". Frame types reuse flag
// bit positions for type-specific meanings; this is the one instance
// this core needs.
const FlagRespond = FlagFollows

// EncodeKeepalive builds a KEEPALIVE frame carrying opaque data and
// the respond flag.
func EncodeKeepalive(dst []byte, respond bool, data []byte) ([]byte, error) {
	var flags Flags
	if respond {
		flags = FlagRespond
	}
	return Encode(dst, 0, flags, TypeKeepalive, noFixed, nil, data)
}

// KeepaliveData returns the opaque data payload of a KEEPALIVE frame.
func KeepaliveData(buf []byte) []byte {
	return SliceData(buf)
}

// KeepaliveRespond reports whether a KEEPALIVE frame's respond flag is
// set.
func KeepaliveRespond(buf []byte) bool {
	return FrameFlags(buf).Has(FlagRespond)
}
