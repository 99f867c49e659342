// Package frame implements the RSocket wire frame codec: a bit-exact
// binary layout with variable-length header fields, type-specific
// payload offsets, and an overloaded PAYLOAD frame that encodes the
// logical NEXT / COMPLETE / NEXT_COMPLETE types via flag bits.
//
// Every accessor here is non-copying: Metadata and Data return slice
// views into the frame's backing buffer, not fresh allocations.
package frame
