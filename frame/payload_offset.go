package frame

// fixedHeaderLen is the per-type fixed header length, in bytes,
// between the common 9-byte header and the metadata/data region. A
// lookup table here avoids a branch tree keyed on frame type.
var fixedHeaderLen = map[Type]int{
	TypeSetup:          12, // majorVersion(2) minorVersion(2) keepaliveInterval(4) maxLifetime(4)
	TypeLease:          8,  // numberOfRequests(4) ttl(4)
	TypeRequestStream:  4,  // initialRequestN(4)
	TypeRequestChannel: 4,  // initialRequestN(4)
	TypeRequestN:       4,  // requestN(4)
	TypeError:          4,  // errorCode(4)
}

// PayloadOffset returns the byte offset, from the start of the frame,
// at which the metadata/data region begins for this frame's wire
// type.
func PayloadOffset(buf []byte) int {
	return headerSize + fixedHeaderLen[WireType(buf)]
}

// InitialRequestN reads the initialRequestN field of a REQUEST_STREAM
// or REQUEST_CHANNEL frame.
func InitialRequestN(buf []byte) uint32 {
	return get32(buf[headerSize : headerSize+4])
}

// RequestN reads the requestN field of a REQUEST_N frame.
func RequestN(buf []byte) uint32 {
	return get32(buf[headerSize : headerSize+4])
}

func put32(buf []byte, n uint32) {
	buf[0] = byte(n >> 24)
	buf[1] = byte(n >> 16)
	buf[2] = byte(n >> 8)
	buf[3] = byte(n)
}

func get32(buf []byte) uint32 {
	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
}
