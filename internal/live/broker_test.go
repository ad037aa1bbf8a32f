package live

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/d60-Lab/feedsync/internal/model"
)

// fakeBroker is a minimal STOMP broker: it answers CONNECT, tracks
// subscriptions, echoes /publish/message to room subscribers and
// answers receipt requests.
type fakeBroker struct {
	srv *httptest.Server

	mu       sync.Mutex
	reject   string
	mute     bool // no RECEIPT frames
	frames   []*Frame
	upgrades []http.Header
	conns    []*websocket.Conn
	subs     map[string]map[string]*websocket.Conn // destination -> id -> conn
	seq      int
}

func newFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()
	b := &fakeBroker{subs: make(map[string]map[string]*websocket.Conn)}
	up := websocket.Upgrader{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.conns = append(b.conns, conn)
		b.upgrades = append(b.upgrades, r.Header.Clone())
		b.mu.Unlock()
		go b.serve(conn)
	}))
	t.Cleanup(func() {
		b.kill()
		b.srv.Close()
	})
	return b
}

func (b *fakeBroker) url() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + Endpoint
}

func (b *fakeBroker) serve(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := Decode(msg)
		if err != nil || f == nil {
			continue
		}
		b.mu.Lock()
		b.frames = append(b.frames, f)
		switch f.Command {
		case CmdConnect:
			if b.reject != "" {
				b.writeLocked(conn, NewFrame(CmdError, Header{"message": b.reject}, nil))
				b.mu.Unlock()
				return
			}
			b.writeLocked(conn, NewFrame(CmdConnected, Header{"version": "1.2"}, nil))
		case CmdSubscribe:
			dest := f.Header.Get("destination")
			if b.subs[dest] == nil {
				b.subs[dest] = make(map[string]*websocket.Conn)
			}
			b.subs[dest][f.Header.Get("id")] = conn
		case CmdUnsubscribe:
			for _, ids := range b.subs {
				delete(ids, f.Header.Get("id"))
			}
		case CmdSend:
			if f.Header.Get("destination") == PublishMessage {
				var out model.OutgoingMessage
				if json.Unmarshal(f.Body, &out) == nil {
					b.seq++
					msg := model.ChatMessage{
						ID:         fmt.Sprintf("srv-%d", b.seq),
						ChatRoomNo: out.ChatNo,
						SenderName: out.SenderName,
						Content:    out.Content,
						SendDate:   out.SendDate,
					}
					body, _ := json.Marshal(msg)
					b.pushLocked(RoomDestination(out.ChatNo), body)
				}
			}
		case CmdDisconnect:
			b.receiptLocked(conn, f)
			b.mu.Unlock()
			return
		}
		b.receiptLocked(conn, f)
		b.mu.Unlock()
	}
}

func (b *fakeBroker) writeLocked(conn *websocket.Conn, f *Frame) {
	_ = conn.WriteMessage(websocket.TextMessage, f.Encode())
}

func (b *fakeBroker) receiptLocked(conn *websocket.Conn, f *Frame) {
	if id := f.Header.Get("receipt"); id != "" && !b.mute {
		b.writeLocked(conn, NewFrame(CmdReceipt, Header{"receipt-id": id}, nil))
	}
}

func (b *fakeBroker) pushLocked(dest string, body []byte) {
	for id, conn := range b.subs[dest] {
		b.writeLocked(conn, NewFrame(CmdMessage, Header{
			"destination":  dest,
			"subscription": id,
			"message-id":   fmt.Sprintf("mid-%d", len(b.frames)),
		}, body))
	}
}

// push delivers body to every subscriber of dest, as the server would.
func (b *fakeBroker) push(dest string, v any) {
	body, _ := json.Marshal(v)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pushLocked(dest, body)
}

// kill drops every open transport without a STOMP goodbye.
func (b *fakeBroker) kill() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		c.Close()
	}
	b.conns = nil
	b.subs = make(map[string]map[string]*websocket.Conn)
}

func (b *fakeBroker) received(cmd string) []*Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Frame
	for _, f := range b.frames {
		if cmd == "" || f.Command == cmd {
			out = append(out, f)
		}
	}
	return out
}

func (b *fakeBroker) subscribers(dest string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[dest])
}

func (b *fakeBroker) upgradeHeaders() []http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]http.Header(nil), b.upgrades...)
}
