package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type testcase struct {
		name     string
		encode   func() ([]byte, error)
		wireType Type
		streamID uint32
		metadata []byte
		data     []byte
	}

	tcs := []testcase{
		{
			name:     "request_response with metadata and data",
			encode:   func() ([]byte, error) { return EncodeRequestResponse(nil, 7, []byte("meta"), []byte("hello")) },
			wireType: TypeRequestResponse,
			streamID: 7,
			metadata: []byte("meta"),
			data:     []byte("hello"),
		},
		{
			name:     "request_fnf no metadata",
			encode:   func() ([]byte, error) { return EncodeRequestFNF(nil, 3, nil, []byte("fire")) },
			wireType: TypeRequestFNF,
			streamID: 3,
			metadata: nil,
			data:     []byte("fire"),
		},
		{
			name:     "next",
			encode:   func() ([]byte, error) { return EncodeNext(nil, 9, nil, []byte("item")) },
			wireType: TypePayload,
			streamID: 9,
			data:     []byte("item"),
		},
		{
			name:     "complete carries no payload",
			encode:   func() ([]byte, error) { return EncodeComplete(nil, 9) },
			wireType: TypePayload,
			streamID: 9,
		},
		{
			name:     "next_complete",
			encode:   func() ([]byte, error) { return EncodeNextComplete(nil, 11, []byte("m"), []byte("d")) },
			wireType: TypePayload,
			streamID: 11,
			metadata: []byte("m"),
			data:     []byte("d"),
		},
		{
			name:     "metadata_push",
			encode:   func() ([]byte, error) { return EncodeMetadataPush(nil, []byte("routing")) },
			wireType: TypeMetadataPush,
			streamID: 0,
			metadata: []byte("routing"),
		},
		{
			name:     "cancel carries nothing",
			encode:   func() ([]byte, error) { return EncodeCancel(nil, 5) },
			wireType: TypeCancel,
			streamID: 5,
		},
		{
			name:     "request_n carries nothing beyond the fixed field",
			encode:   func() ([]byte, error) { return EncodeRequestN(nil, 5, 32) },
			wireType: TypeRequestN,
			streamID: 5,
		},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			buf, err := tc.encode()
			require.NoError(t, err)

			f := View(buf)
			assert.Equal(t, tc.streamID, f.StreamID())
			assert.Equal(t, tc.wireType, f.WireType())
			if len(tc.metadata) == 0 {
				assert.Empty(t, f.Metadata())
			} else {
				assert.Equal(t, tc.metadata, f.Metadata())
			}
			if len(tc.data) == 0 {
				assert.Empty(t, f.Data())
			} else {
				assert.Equal(t, tc.data, f.Data())
			}

			wantLen := get24(buf[0:3])
			assert.Equal(t, int(wantLen), len(buf)-3, "frame_length field must match actual body length")
		})
	}
}

func TestDecodeLogicalTypeResolvesPayloadOverload(t *testing.T) {
	next, err := EncodeNext(nil, 1, nil, []byte("x"))
	require.NoError(t, err)
	lt, err := DecodeLogicalType(next)
	require.NoError(t, err)
	assert.Equal(t, TypeNext, lt)

	complete, err := EncodeComplete(nil, 1)
	require.NoError(t, err)
	lt, err = DecodeLogicalType(complete)
	require.NoError(t, err)
	assert.Equal(t, TypeComplete, lt)

	nc, err := EncodeNextComplete(nil, 1, nil, []byte("x"))
	require.NoError(t, err)
	lt, err = DecodeLogicalType(nc)
	require.NoError(t, err)
	assert.Equal(t, TypeNextComplete, lt)
}

func TestDecodeLogicalTypeRejectsNeitherFlagSet(t *testing.T) {
	buf := make([]byte, headerSize)
	require.NoError(t, EncodeHeader(buf, headerSize, 1, TypePayload, 0))
	_, err := DecodeLogicalType(buf)
	require.Error(t, err)
	var illegal *IllegalFrameError
	assert.ErrorAs(t, err, &illegal)
}

func TestEncodeRejectsLiteralPayload(t *testing.T) {
	_, err := Encode(nil, 1, 0, TypePayload, noFixed, nil, nil)
	assert.Error(t, err)
}

func TestEncodeRejectsWrongFixedHeaderSize(t *testing.T) {
	_, err := Encode(nil, 1, 0, TypeRequestStream, []byte{0, 0}, nil, nil)
	assert.Error(t, err)
}

func TestEncodeRejectsOversizeFrame(t *testing.T) {
	_, err := Encode(nil, 1, 0, TypeRequestFNF, noFixed, nil, make([]byte, MaxFrameLength+1))
	require.Error(t, err)
	var tooLarge *FrameTooLargeError
	assert.ErrorAs(t, err, &tooLarge)
}

func TestMetadataFlagSetIffMetadataPresent(t *testing.T) {
	withMeta, err := EncodeRequestResponse(nil, 1, []byte("m"), []byte("d"))
	require.NoError(t, err)
	assert.True(t, FrameFlags(withMeta).Has(FlagMetadata))

	withoutMeta, err := EncodeRequestResponse(nil, 1, nil, []byte("d"))
	require.NoError(t, err)
	assert.False(t, FrameFlags(withoutMeta).Has(FlagMetadata))
}

func TestErrorFrameRoundTrip(t *testing.T) {
	buf, err := EncodeError(nil, 42, ErrorCodeApplicationError, []byte("boom"))
	require.NoError(t, err)

	assert.Equal(t, uint32(42), StreamID(buf))
	assert.Equal(t, ErrorCodeApplicationError, ErrorCodeOf(buf))
	assert.Equal(t, []byte("boom"), ErrorMessage(buf))
}

func TestKeepaliveRoundTrip(t *testing.T) {
	buf, err := EncodeKeepalive(nil, true, []byte("ping"))
	require.NoError(t, err)

	assert.True(t, KeepaliveRespond(buf))
	assert.Equal(t, []byte("ping"), KeepaliveData(buf))

	buf, err = EncodeKeepalive(nil, false, []byte("pong"))
	require.NoError(t, err)
	assert.False(t, KeepaliveRespond(buf))
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	buf, err := EncodeRequestResponse(nil, 99, []byte("meta"), []byte("data"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, WriteFrame(&out, buf))

	pool := NewPool(4)
	f, err := ReadFrame(&out, pool)
	require.NoError(t, err)
	assert.Equal(t, uint32(99), f.StreamID())
	assert.Equal(t, []byte("meta"), f.Metadata())
	assert.Equal(t, []byte("data"), f.Data())
}

func TestRequestStreamCarriesInitialRequestN(t *testing.T) {
	buf, err := EncodeRequestStream(nil, 1, 128, nil, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, uint32(128), InitialRequestN(buf))
}

func TestRequestNFrame(t *testing.T) {
	buf, err := EncodeRequestN(nil, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), RequestN(buf))
}

func TestEncodeIntoNonEmptyDst(t *testing.T) {
	// Two frames encoded back to back into a shared buffer must not
	// corrupt each other's header fields.
	dst, err := EncodeCancel(nil, 1)
	require.NoError(t, err)
	before := len(dst)

	dst, err = EncodeRequestResponse(dst, 2, []byte("m"), []byte("d"))
	require.NoError(t, err)

	second := View(dst[before:])
	assert.Equal(t, uint32(2), second.StreamID())
	assert.Equal(t, TypeRequestResponse, second.WireType())
	assert.True(t, second.Flags().Has(FlagMetadata))
	assert.Equal(t, []byte("m"), second.Metadata())
	assert.Equal(t, []byte("d"), second.Data())
}
