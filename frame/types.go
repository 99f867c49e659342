package frame

import "fmt"

// Type is the 6-bit frame type carried in the high bits of the
// type_and_flags header short. Values match the RSocket wire protocol
// exactly; they are not reassignable.
type Type byte

// Frame type alphabet, per the RSocket wire protocol. PAYLOAD is
// overloaded on the wire: NEXT, COMPLETE and NEXT_COMPLETE are not
// distinct wire types, they're PAYLOAD with particular C/N flags set.
// They get their own Type constants here so callers can work with the
// logical type instead of re-deriving it from flags every time; the
// codec is what translates between the two (see DecodeLogicalType).
const (
	TypeReserved        Type = 0x00
	TypeSetup            Type = 0x01
	TypeLease            Type = 0x02
	TypeKeepalive        Type = 0x03
	TypeRequestResponse  Type = 0x04
	TypeRequestFNF       Type = 0x05
	TypeRequestStream    Type = 0x06
	TypeRequestChannel   Type = 0x07
	TypeRequestN         Type = 0x08
	TypeCancel           Type = 0x09
	TypePayload          Type = 0x0A
	TypeError            Type = 0x0B
	TypeMetadataPush     Type = 0x0C
	TypeResume           Type = 0x0D
	TypeResumeOK         Type = 0x0E
	TypeExt              Type = 0x3F

	// Logical subtypes of PAYLOAD. These never appear in a wire
	// type_and_flags field directly — Encode rewrites them to
	// TypePayload plus the matching C/N flags, and DecodeLogicalType
	// performs the inverse mapping. Tagged outside the 6-bit wire
	// range (>0x3F) so they can never collide with a real wire type.
	TypeNext         Type = 0x80
	TypeComplete     Type = 0x81
	TypeNextComplete Type = 0x82
)

var typeNames = map[Type]string{
	TypeReserved:        "RESERVED",
	TypeSetup:           "SETUP",
	TypeLease:           "LEASE",
	TypeKeepalive:       "KEEPALIVE",
	TypeRequestResponse: "REQUEST_RESPONSE",
	TypeRequestFNF:      "REQUEST_FNF",
	TypeRequestStream:   "REQUEST_STREAM",
	TypeRequestChannel:  "REQUEST_CHANNEL",
	TypeRequestN:        "REQUEST_N",
	TypeCancel:          "CANCEL",
	TypePayload:         "PAYLOAD",
	TypeError:           "ERROR",
	TypeMetadataPush:    "METADATA_PUSH",
	TypeResume:          "RESUME",
	TypeResumeOK:        "RESUME_OK",
	TypeExt:             "EXT",
	TypeNext:            "NEXT",
	TypeComplete:        "COMPLETE",
	TypeNextComplete:    "NEXT_COMPLETE",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", byte(t))
}

// IsLogicalPayload reports whether t is one of the logical subtypes
// that Encode rewrites to a wire PAYLOAD frame.
func (t Type) IsLogicalPayload() bool {
	return t == TypeNext || t == TypeComplete || t == TypeNextComplete
}

// hasMetadataLengthPrefix reports whether this wire type's metadata
// block, when present, is prefixed by an explicit 24-bit length field.
// REQUEST_*, PAYLOAD and SETUP frames are; every other type writes
// metadata (if any) unprefixed. SliceMetadata reads unprefixed
// metadata back only for METADATA_PUSH, where it runs to the end of
// the frame; for types that also carry data, such as KEEPALIVE and
// ERROR, it reports no metadata. This governs the metadata encoding
// only, not whether a data block exists at all — see carriesPayload
// for that.
func (t Type) hasMetadataLengthPrefix() bool {
	switch t {
	case TypeRequestFNF, TypeRequestResponse, TypeRequestStream, TypeRequestChannel, TypePayload, TypeSetup:
		return true
	default:
		return false
	}
}

// carriesPayload reports whether frames of this wire type may carry a
// data block at all. CANCEL and REQUEST_N are pure control frames and
// never do; METADATA_PUSH carries metadata only, with no data block of
// its own; every other type that isn't purely a connection-setup
// detail (LEASE, RESUME, RESUME_OK) does.
func (t Type) carriesPayload() bool {
	switch t {
	case TypeCancel, TypeRequestN, TypeMetadataPush, TypeLease, TypeResume, TypeResumeOK:
		return false
	default:
		return true
	}
}
