package live

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

// Broker endpoint and destinations.
const (
	Endpoint        = "/chat"
	SubscribePrefix = "/subscribe/"
	PublishMessage  = "/publish/message"
	PublishLeave    = "/publish/chatroom/leave"
)

func RoomDestination(room int64) string {
	return SubscribePrefix + strconv.FormatInt(room, 10)
}

// Credentials is read-only access to the current session.
type Credentials interface {
	Token(ctx context.Context) (string, error)
	UserName() string
}

// Room binds one Channel to one chat room and merges every MESSAGE into msgs.
type Room struct {
	no    int64
	ch    *Channel
	msgs  *paging.Collection[string, model.ChatMessage]
	creds Credentials
	log   *zap.Logger

	mu   sync.Mutex
	auth string
	sub  *Subscription
}

func NewRoom(no int64, ch *Channel, msgs *paging.Collection[string, model.ChatMessage], creds Credentials) *Room {
	return &Room{
		no:    no,
		ch:    ch,
		msgs:  msgs,
		creds: creds,
		log:   logger.Named("live").With(zap.Int64("room", no)),
	}
}

func (r *Room) No() int64 { return r.no }

func (r *Room) State() State { return r.ch.State() }

// Open fetches the token, connects and subscribes to the room destination.
// It returns after the broker has acknowledged the subscription.
func (r *Room) Open(ctx context.Context) error {
	token, err := r.creds.Token(ctx)
	if err != nil {
		r.log.Warn("no credentials for chat room", zap.Error(err))
		return err
	}
	auth := "Bearer " + token
	connect := Header{
		"Authorization": auth,
		"chatRoomNo":    strconv.FormatInt(r.no, 10),
	}
	if err := r.ch.Connect(ctx, connect); err != nil {
		return err
	}
	sub, err := r.ch.SubscribeAck(ctx, RoomDestination(r.no), Header{"Authorization": auth}, r.onMessage)
	if err != nil {
		r.log.Warn("subscribe failed", zap.Error(err))
		_ = r.ch.Disconnect(ctx)
		return err
	}

	r.mu.Lock()
	r.auth = auth
	r.sub = sub
	r.mu.Unlock()
	return nil
}

func (r *Room) onMessage(f *Frame) {
	var m model.ChatMessage
	if err := json.Unmarshal(f.Body, &m); err != nil {
		r.log.Warn("undecodable chat message", zap.Error(err))
		return
	}
	if m.ID == "" {
		r.log.Warn("chat message without id dropped")
		return
	}
	if !r.msgs.Push(m) {
		r.log.Debug("duplicate chat message", zap.String("key", m.ID))
	}
}

// Send publishes msg to the room over the open channel.
func (r *Room) Send(msg model.OutgoingMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	r.mu.Lock()
	auth := r.auth
	r.mu.Unlock()
	return r.ch.Publish(PublishMessage, Header{"Authorization": auth}, body)
}

// Leave notifies the broker (fire-and-forget), unsubscribes, then closes the
// transport. It never fails; problems are logged.
func (r *Room) Leave(ctx context.Context) {
	r.mu.Lock()
	auth, sub := r.auth, r.sub
	r.auth, r.sub = "", nil
	r.mu.Unlock()

	if name := r.creds.UserName(); auth != "" && name != "" {
		body, _ := json.Marshal(model.LeaveRequest{ChatNo: r.no, UserName: name})
		if err := r.ch.Publish(PublishLeave, Header{"Authorization": auth}, body); err != nil {
			r.log.Warn("leave notification failed", zap.Error(err))
		}
	}
	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			r.log.Warn("unsubscribe failed", zap.Error(err))
		}
	}
	if err := r.ch.Disconnect(ctx); err != nil {
		r.log.Warn("disconnect failed", zap.Error(err))
	}
}
