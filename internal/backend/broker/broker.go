// Package broker 开发后端的 STOMP over WebSocket 聊天代理：
// CONNECT 校验 JWT，SUBSCRIBE /subscribe/{room}，SEND /publish/message 落库后
// 广播给房间订阅者，/publish/chatroom/leave 推进已读位置。
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/backend/handler"
	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/service"
	"github.com/d60-Lab/feedsync/internal/live"
	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

const (
	writeWait = 5 * time.Second
	opTimeout = 5 * time.Second
)

type Broker struct {
	users    *service.UserService
	chats    *service.ChatService
	upgrader websocket.Upgrader
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	rooms    map[int64]map[*session]string // room -> session -> subscription id
	sessions map[*session]struct{}
}

func New(users *service.UserService, chats *service.ChatService) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		users: users,
		chats: chats,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:      logger.Named("broker"),
		ctx:      ctx,
		cancel:   cancel,
		rooms:    make(map[int64]map[*session]string),
		sessions: make(map[*session]struct{}),
	}
}

type session struct {
	conn    *websocket.Conn
	msgType int
	// 升级请求上的 Authorization，CONNECT 帧未携带时使用
	upgradeAuth string

	writeMu sync.Mutex
	user    *model.User
	subs    map[string]int64 // subscription id -> room
}

func (s *session) write(f *live.Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(s.msgType, f.Encode())
}

// ServeHTTP 升级连接并阻塞处理该会话直到断开
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Debug("upgrade failed", zap.Error(err))
		return
	}
	s := &session{
		conn:        conn,
		msgType:     websocket.TextMessage,
		upgradeAuth: r.Header.Get("Authorization"),
		subs:        make(map[string]int64),
	}
	b.mu.Lock()
	b.sessions[s] = struct{}{}
	b.mu.Unlock()

	defer b.drop(s)
	b.serve(s)
}

func (b *Broker) serve(s *session) {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if s.user == nil {
			// 应答沿用客户端 CONNECT 使用的帧类型（文本或二进制）
			s.msgType = mt
		}
		f, err := live.Decode(data)
		if err != nil {
			b.reject(s, "malformed frame")
			return
		}
		if f == nil {
			continue // heart-beat
		}
		if s.user == nil && f.Command != live.CmdConnect && f.Command != "STOMP" {
			b.reject(s, "not connected")
			return
		}
		if !b.handle(s, f) {
			return
		}
	}
}

// handle 返回 false 表示关闭会话
func (b *Broker) handle(s *session, f *live.Frame) bool {
	ctx, cancel := context.WithTimeout(b.ctx, opTimeout)
	defer cancel()

	switch f.Command {
	case live.CmdConnect, "STOMP":
		auth := f.Header.Get("Authorization")
		if auth == "" {
			auth = s.upgradeAuth
		}
		token, ok := handler.BearerToken(auth)
		if !ok {
			b.reject(s, "missing bearer token")
			return false
		}
		u, err := b.users.Authenticate(ctx, token)
		if err != nil {
			b.reject(s, "invalid token")
			return false
		}
		s.user = u
		if err := s.write(live.NewFrame(live.CmdConnected, live.Header{"version": "1.2", "heart-beat": "0,0"}, nil)); err != nil {
			return false
		}
		b.log.Debug("stomp connected", zap.String("user", u.UserName))

	case live.CmdSubscribe:
		room, ok := roomOf(f.Header.Get("destination"))
		if !ok {
			b.reject(s, "unknown destination")
			return false
		}
		if _, err := b.chats.Member(ctx, room, s.user); err != nil {
			b.reject(s, err.Error())
			return false
		}
		b.subscribe(s, f.Header.Get("id"), room)

	case live.CmdUnsubscribe:
		b.unsubscribe(s, f.Header.Get("id"))

	case live.CmdSend:
		if err := b.send(ctx, s, f); err != nil {
			b.reject(s, err.Error())
			return false
		}

	case live.CmdDisconnect:
		b.receipt(s, f)
		return false

	default:
		b.reject(s, "unsupported command "+f.Command)
		return false
	}
	b.receipt(s, f)
	return true
}

func (b *Broker) send(ctx context.Context, s *session, f *live.Frame) error {
	switch f.Header.Get("destination") {
	case live.PublishMessage:
		var out dto.OutgoingMessage
		if err := json.Unmarshal(f.Body, &out); err != nil {
			return errors.New("invalid message body")
		}
		msg, err := b.chats.SaveMessage(ctx, s.user, out)
		if err != nil {
			return err
		}
		b.broadcast(msg, s.user.UserName)
		return nil
	case live.PublishLeave:
		var req dto.LeaveRequest
		if err := json.Unmarshal(f.Body, &req); err != nil {
			return errors.New("invalid leave body")
		}
		if err := b.chats.Leave(ctx, s.user, req.ChatNo); err != nil {
			b.log.Warn("leave failed", zap.Int64("room", req.ChatNo), zap.String("user", s.user.UserName), zap.Error(err))
		}
		return nil
	default:
		return errors.New("unknown destination " + f.Header.Get("destination"))
	}
}

// broadcast isMine 按订阅者分别计算
func (b *Broker) broadcast(msg dto.ChatMessage, sender string) {
	dest := live.RoomDestination(msg.ChatRoomNo)
	b.mu.Lock()
	targets := make(map[*session]string, len(b.rooms[msg.ChatRoomNo]))
	for sub, id := range b.rooms[msg.ChatRoomNo] {
		targets[sub] = id
	}
	b.mu.Unlock()

	for sub, id := range targets {
		m := msg
		m.IsMine = sub.user != nil && sub.user.UserName == sender
		body, err := json.Marshal(m)
		if err != nil {
			continue
		}
		frame := live.NewFrame(live.CmdMessage, live.Header{
			"destination":  dest,
			"subscription": id,
			"message-id":   uuid.New().String(),
			"content-type": "application/json",
		}, body)
		if err := sub.write(frame); err != nil {
			b.log.Debug("deliver failed", zap.Int64("room", msg.ChatRoomNo), zap.Error(err))
		}
	}
}

func (b *Broker) subscribe(s *session, id string, room int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[*session]string)
	}
	b.rooms[room][s] = id
	s.subs[id] = room
}

func (b *Broker) unsubscribe(s *session, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room, ok := s.subs[id]
	if !ok {
		return
	}
	delete(s.subs, id)
	delete(b.rooms[room], s)
	if len(b.rooms[room]) == 0 {
		delete(b.rooms, room)
	}
}

func (b *Broker) drop(s *session) {
	b.mu.Lock()
	for id, room := range s.subs {
		delete(b.rooms[room], s)
		if len(b.rooms[room]) == 0 {
			delete(b.rooms, room)
		}
		delete(s.subs, id)
	}
	delete(b.sessions, s)
	b.mu.Unlock()
	_ = s.conn.Close()
}

func (b *Broker) receipt(s *session, f *live.Frame) {
	if id := f.Header.Get("receipt"); id != "" {
		_ = s.write(live.NewFrame(live.CmdReceipt, live.Header{"receipt-id": id}, nil))
	}
}

func (b *Broker) reject(s *session, message string) {
	b.log.Debug("stomp error", zap.String("message", message))
	_ = s.write(live.NewFrame(live.CmdError, live.Header{"message": message}, nil))
}

// Subscribers 当前订阅某房间的会话数
func (b *Broker) Subscribers(room int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rooms[room])
}

// Close 断开全部会话
func (b *Broker) Close() {
	b.cancel()
	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.sessions))
	for s := range b.sessions {
		conns = append(conns, s.conn)
	}
	b.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func roomOf(dest string) (int64, bool) {
	if !strings.HasPrefix(dest, live.SubscribePrefix) {
		return 0, false
	}
	room, err := strconv.ParseInt(strings.TrimPrefix(dest, live.SubscribePrefix), 10, 64)
	return room, err == nil
}
