package frame

// Flags holds the low 10 bits of the type_and_flags header short.
type Flags uint16

// Flag bits. Bit numbers are relative to the low 10 bits of
// type_and_flags, matching the RSocket wire protocol.
const (
	FlagIgnore   Flags = 1 << 9 // I — ignore this frame if its type is unrecognized
	FlagMetadata Flags = 1 << 8 // M — metadata block is present
	FlagFollows  Flags = 1 << 7 // F — fragment, more frames follow for this payload
	FlagComplete Flags = 1 << 6 // C — stream complete (PAYLOAD only, part of the NEXT/COMPLETE overload)
	FlagNext     Flags = 1 << 5 // N — next item present (PAYLOAD only, part of the overload)

	flagsMask Flags = 0x03FF
)

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

func (f Flags) set(bit Flags) Flags {
	return f | bit
}
