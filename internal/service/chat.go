package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/live"
	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/optimistic"
	"github.com/d60-Lab/feedsync/internal/paging"
	"github.com/d60-Lab/feedsync/internal/session"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

// ChatRooms lists the session user's rooms.
type ChatRooms struct {
	deps    Deps
	metrics metrics.Recorder
	rooms   *paging.Collection[int64, model.ChatRoom]
}

func NewChatRooms(d Deps) *ChatRooms {
	fetch := func(ctx context.Context, req paging.Request) (paging.Window[model.ChatRoom], error) {
		return d.API.MyChatRooms(ctx, req)
	}
	return &ChatRooms{
		deps:    d,
		metrics: d.recorder(),
		rooms: paging.New(model.ChatRoomKey, fetch, paging.Options{
			Name:    "chat_rooms",
			Size:    d.Paging.ChatRoomSize,
			Metrics: d.recorder(),
		}),
	}
}

func (r *ChatRooms) LoadMore(ctx context.Context) (int, error) { return r.rooms.LoadMore(ctx) }

func (r *ChatRooms) Refresh(ctx context.Context) (int, error) {
	r.rooms.Reset()
	return r.rooms.LoadMore(ctx)
}

func (r *ChatRooms) Rooms() []model.ChatRoom { return r.rooms.Items() }
func (r *ChatRooms) State() paging.State     { return r.rooms.State() }

func (r *ChatRooms) Create(ctx context.Context, joinUser string) (model.Chat, error) {
	return r.deps.API.CreateChatRoom(ctx, model.ChatRoomRequest{JoinUserName: joinUser})
}

// Enter zeroes the room's unread count right away and opens it. The count
// comes back if the history cannot be fetched.
func (r *ChatRooms) Enter(ctx context.Context, roomID int64) (*ChatRoom, error) {
	room := NewChatRoom(r.deps, roomID)
	err := optimistic.Do(ctx, r.rooms.Edit(roomID), unreadMutation, r.metrics, room.Open)
	if errors.Is(err, optimistic.ErrNotFound) || errors.Is(err, optimistic.ErrPending) {
		// not listed yet, e.g. a room created after the list was loaded,
		// or already being entered
		err = room.Open(ctx)
	}
	if err != nil {
		room.Close(context.Background())
		return nil, err
	}
	return room, nil
}

func (r *ChatRooms) Close() { r.rooms.Close() }

// ChatRoom is an open room: paged history plus live messages in one
// collection, de-duplicated by message id.
type ChatRoom struct {
	no      int64
	api     *api.Client
	session *session.Manager
	msgs    *paging.Collection[string, model.ChatMessage]
	live    *live.Room
	log     *zap.Logger
}

func NewChatRoom(d Deps, roomID int64) *ChatRoom {
	fetch := func(ctx context.Context, req paging.Request) (paging.Window[model.ChatMessage], error) {
		return d.API.ChatHistory(ctx, roomID, req)
	}
	msgs := paging.New(model.ChatMessageKey, fetch, paging.Options{
		Name:    "chat",
		Size:    d.Paging.ChatSize,
		Metrics: d.recorder(),
	})
	return &ChatRoom{
		no:      roomID,
		api:     d.API,
		session: d.Session,
		msgs:    msgs,
		live:    live.NewRoom(roomID, live.NewChannel(d.Live), msgs, d.Session),
		log:     logger.Named("service").With(zap.Int64("room", roomID)),
	}
}

// Open joins the live channel, then loads the first history page. A message
// sent while the page is in flight arrives over the subscription and the
// copy in history is dropped by id. Only a history failure is returned; a
// live failure is logged and the room stays usable without pushes.
func (c *ChatRoom) Open(ctx context.Context) error {
	if err := c.live.Open(ctx); err != nil {
		c.log.Warn("live channel unavailable", zap.Error(err))
	}
	_, err := c.msgs.LoadMore(ctx)
	return err
}

func (c *ChatRoom) No() int64                                 { return c.no }
func (c *ChatRoom) LoadMore(ctx context.Context) (int, error) { return c.msgs.LoadMore(ctx) }
func (c *ChatRoom) Messages() []model.ChatMessage             { return c.msgs.Items() }
func (c *ChatRoom) State() paging.State                       { return c.msgs.State() }
func (c *ChatRoom) LiveState() live.State                     { return c.live.State() }

// Send publishes over the live channel, then records the message for the
// receiver's alarm. A failed record is logged, not returned.
func (c *ChatRoom) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	msg := model.OutgoingMessage{
		ChatNo:     c.no,
		Content:    text,
		SenderName: c.session.UserName(),
		SendDate:   time.Now().UnixMilli(),
	}
	if err := c.live.Send(msg); err != nil {
		return err
	}
	if _, err := c.api.RecordMessage(ctx, msg); err != nil {
		c.log.Warn("message alarm record failed", zap.Error(err))
	}
	return nil
}

// Close leaves the room and drops its messages.
func (c *ChatRoom) Close(ctx context.Context) {
	c.live.Leave(ctx)
	c.msgs.Close()
}
