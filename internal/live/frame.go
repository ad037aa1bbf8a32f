package live

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// STOMP commands used by the channel and the dev broker.
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdSend        = "SEND"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
	CmdDisconnect  = "DISCONNECT"
)

var ErrMalformedFrame = errors.New("live: malformed frame")

// Header holds frame headers. Repeated keys on the wire keep the first value.
type Header map[string]string

func (h Header) Get(key string) string { return h[key] }

func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Frame is one STOMP 1.2 frame.
type Frame struct {
	Command string
	Header  Header
	Body    []byte
}

func NewFrame(command string, header Header, body []byte) *Frame {
	if header == nil {
		header = Header{}
	}
	return &Frame{Command: command, Header: header, Body: body}
}

// CONNECT and CONNECTED headers are not escaped (STOMP 1.2 section "Value Encoding").
func escapes(command string) bool {
	return command != CmdConnect && command != CmdConnected
}

var (
	headerEscaper   = strings.NewReplacer("\\", "\\\\", "\r", "\\r", "\n", "\\n", ":", "\\c")
	headerUnescaper = strings.NewReplacer("\\\\", "\\", "\\r", "\r", "\\n", "\n", "\\c", ":")
)

// Encode renders the frame, NUL terminated. Headers are written in key order.
func (f *Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	keys := make([]string, 0, len(f.Header))
	for k := range f.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	esc := escapes(f.Command)
	for _, k := range keys {
		v := f.Header[k]
		if esc {
			k, v = headerEscaper.Replace(k), headerEscaper.Replace(v)
		}
		buf.WriteString(k)
		buf.WriteByte(':')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Decode parses one frame from a websocket message. A message made only of
// EOLs is a heart-beat and yields (nil, nil). A missing trailing NUL is accepted.
func Decode(data []byte) (*Frame, error) {
	data = bytes.TrimLeft(data, "\r\n")
	if len(data) == 0 || (len(data) == 1 && data[0] == 0) {
		return nil, nil
	}

	line, rest, ok := cutLine(data)
	if !ok {
		return nil, fmt.Errorf("%w: no command line", ErrMalformedFrame)
	}
	f := &Frame{Command: string(line), Header: Header{}}
	esc := escapes(f.Command)

	for {
		line, rest, ok = cutLine(rest)
		if !ok {
			return nil, fmt.Errorf("%w: unterminated headers", ErrMalformedFrame)
		}
		if len(line) == 0 {
			break
		}
		k, v, found := bytes.Cut(line, []byte{':'})
		if !found {
			return nil, fmt.Errorf("%w: header %q", ErrMalformedFrame, line)
		}
		key, val := string(k), string(v)
		if esc {
			key, val = headerUnescaper.Replace(key), headerUnescaper.Replace(val)
		}
		if _, dup := f.Header[key]; !dup {
			f.Header[key] = val
		}
	}

	if cl, ok := f.Header["content-length"]; ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 || n > len(rest) {
			return nil, fmt.Errorf("%w: content-length %q", ErrMalformedFrame, cl)
		}
		f.Body = rest[:n]
		return f, nil
	}
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		rest = rest[:i]
	}
	f.Body = rest
	return f, nil
}

func cutLine(b []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return nil, nil, false
	}
	line = b[:i]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, b[i+1:], true
}
