package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	f := NewFrame(CmdSend, Header{"destination": "/publish/message", "note": "a:b\nc"}, []byte(`{"chatNo":1}`))
	got, err := Decode(f.Encode())
	require.NoError(t, err)
	assert.Equal(t, CmdSend, got.Command)
	assert.Equal(t, "a:b\nc", got.Header.Get("note"))
	assert.Equal(t, `{"chatNo":1}`, string(got.Body))
}

func TestEncodeEscapesHeaders(t *testing.T) {
	raw := string(NewFrame(CmdSend, Header{"k": "x:y"}, nil).Encode())
	assert.Equal(t, "SEND\nk:x\\cy\n\n\x00", raw)

	raw = string(NewFrame(CmdConnect, Header{"k": "x:y"}, nil).Encode())
	assert.Equal(t, "CONNECT\nk:x:y\n\n\x00", raw)
}

func TestDecodeHeartbeat(t *testing.T) {
	for _, in := range []string{"\n", "\r\n", "\n\n", ""} {
		f, err := Decode([]byte(in))
		assert.NoError(t, err)
		assert.Nil(t, f)
	}
}

func TestDecodeMissingNUL(t *testing.T) {
	f, err := Decode([]byte("MESSAGE\r\nsubscription:sub-1\r\n\r\n{\"id\":\"m1\"}"))
	require.NoError(t, err)
	assert.Equal(t, CmdMessage, f.Command)
	assert.Equal(t, "sub-1", f.Header.Get("subscription"))
	assert.Equal(t, `{"id":"m1"}`, string(f.Body))
}

func TestDecodeContentLengthAndRepeatedHeader(t *testing.T) {
	f, err := Decode([]byte("MESSAGE\nfoo:1\nfoo:2\ncontent-length:3\n\na\x00b\x00\n"))
	require.NoError(t, err)
	assert.Equal(t, "1", f.Header.Get("foo"))
	assert.Equal(t, []byte("a\x00b"), f.Body)
}

func TestDecodeMalformed(t *testing.T) {
	for _, in := range []string{"MESSAGE", "MESSAGE\nbroken\n\n", "MESSAGE\ncontent-length:9\n\nab"} {
		_, err := Decode([]byte(in))
		assert.ErrorIs(t, err, ErrMalformedFrame, in)
	}
}
