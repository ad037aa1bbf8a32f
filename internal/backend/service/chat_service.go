package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

// ChatService 一对一聊天：房间、历史、未读与消息落库
type ChatService struct {
	chats repository.ChatRepository
	users repository.UserRepository
	now   func() time.Time
	log   *zap.Logger
}

func NewChatService(chats repository.ChatRepository, users repository.UserRepository) *ChatService {
	return &ChatService{chats: chats, users: users, now: time.Now, log: logger.Named("chat_service")}
}

// CreateRoom 两人之间已有房间时直接返回
func (s *ChatService) CreateRoom(ctx context.Context, creator *model.User, joinName string) (dto.Chat, error) {
	joiner, err := s.users.FindByName(ctx, joinName)
	if errors.Is(err, repository.ErrNotFound) {
		return dto.Chat{}, ErrUserNotFound
	}
	if err != nil {
		return dto.Chat{}, err
	}
	if joiner.ID == creator.ID {
		return dto.Chat{}, ErrChatWithSelf
	}
	room, err := s.chats.FindRoomBetween(ctx, creator.ID, joiner.ID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		room = &model.ChatRoom{CreatorID: creator.ID, JoinerID: joiner.ID}
		if err := s.chats.CreateRoom(ctx, room); err != nil {
			return dto.Chat{}, err
		}
		s.log.Info("chat room created", zap.Int64("room", room.ID),
			zap.String("creator", creator.UserName), zap.String("joiner", joiner.UserName))
	default:
		return dto.Chat{}, err
	}
	names, err := s.users.FindByIDs(ctx, []int64{room.CreatorID, room.JoinerID})
	if err != nil {
		return dto.Chat{}, err
	}
	out := dto.Chat{ChatNo: room.ID, RegDate: room.CreatedAt.Format(timeLayout)}
	if u, ok := names[room.CreatorID]; ok {
		out.CreateUser = u.UserName
	}
	if u, ok := names[room.JoinerID]; ok {
		out.JoinUser = u.UserName
	}
	return out, nil
}

// Member 房间存在且 user 为成员
func (s *ChatService) Member(ctx context.Context, roomID int64, user *model.User) (*model.ChatRoom, error) {
	room, err := s.chats.FindRoom(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrChatRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.chats.IsMember(ctx, roomID, user.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermission
	}
	return room, nil
}

// History 最新在前，连续同一发送者的消息合为一组；读首页即视为已读
func (s *ChatService) History(ctx context.Context, viewer *model.User, roomID int64, req PageRequest) (*paging.Slice[dto.ChatHistoryGroup], error) {
	if _, err := s.Member(ctx, roomID, viewer); err != nil {
		return nil, err
	}
	req = req.normalize(10)
	rows, err := s.chats.History(ctx, roomID, req.Offset(), req.Size+1)
	if err != nil {
		return nil, err
	}
	page := newSlice(rows, req)

	ids := make([]int64, 0, 2)
	for _, m := range page.Content {
		ids = append(ids, m.SenderID)
	}
	senders, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	groups := make([]dto.ChatHistoryGroup, 0)
	for _, m := range page.Content {
		msg := dto.ChatMessage{
			ID:         m.ID,
			ChatRoomNo: m.RoomID,
			Content:    m.Content,
			SendDate:   m.SendDate,
			ReadCount:  m.ReadCount,
			IsMine:     m.SenderID == viewer.ID,
		}
		var img string
		if u, ok := senders[m.SenderID]; ok {
			msg.SenderName, img = u.UserName, u.UserImg
		}
		if n := len(groups); n > 0 && groups[n-1].UserName == msg.SenderName {
			groups[n-1].ChatList = append(groups[n-1].ChatList, msg)
			continue
		}
		groups = append(groups, dto.ChatHistoryGroup{UserName: msg.SenderName, UserImg: img, ChatList: []dto.ChatMessage{msg}})
	}

	if req.Page == 0 {
		if err := s.chats.MarkRead(ctx, roomID, viewer.ID, s.now().UnixMilli()); err != nil {
			s.log.Warn("mark read failed", zap.Int64("room", roomID), zap.Error(err))
		}
	}
	return &paging.Slice[dto.ChatHistoryGroup]{
		Content:     groups,
		Size:        page.Size,
		Number:      page.Number,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
	}, nil
}

// MyRooms 带未读数与最后一条消息
func (s *ChatService) MyRooms(ctx context.Context, viewer *model.User, req PageRequest) (*paging.Slice[dto.ChatRoom], error) {
	req = req.normalize(10)
	rows, err := s.chats.ListRooms(ctx, viewer.ID, req.Offset(), req.Size+1)
	if err != nil {
		return nil, err
	}
	page := newSlice(rows, req)

	peers := make([]int64, len(page.Content))
	for i, r := range page.Content {
		peers[i] = peerOf(r, viewer.ID)
	}
	users, err := s.users.FindByIDs(ctx, peers)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ChatRoom, 0, len(page.Content))
	for _, r := range page.Content {
		item := dto.ChatRoom{ChatRoomID: r.ID}
		if u, ok := users[peerOf(r, viewer.ID)]; ok {
			item.JoinUserName, item.JoinNickName, item.JoinUserImg = u.UserName, u.NickName, u.UserImg
		}
		unread, err := s.chats.UnreadCount(ctx, r.ID, viewer.ID)
		if err != nil {
			return nil, err
		}
		item.NotReadMessageCnt = int(unread)
		last, err := s.chats.LastMessage(ctx, r.ID)
		switch {
		case err == nil:
			item.LastContent = last.Content
			item.LastMessageTime = localDateTime(time.UnixMilli(last.SendDate))
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		out = append(out, item)
	}
	return &paging.Slice[dto.ChatRoom]{
		Content:     out,
		Size:        page.Size,
		Number:      page.Number,
		HasNext:     page.HasNext,
		HasPrevious: page.HasPrevious,
	}, nil
}

// SaveMessage 分配服务端 id 并落库，返回发送者视角的消息
func (s *ChatService) SaveMessage(ctx context.Context, sender *model.User, msg dto.OutgoingMessage) (dto.ChatMessage, error) {
	if strings.TrimSpace(msg.Content) == "" {
		return dto.ChatMessage{}, ErrEmptyMessage
	}
	if _, err := s.Member(ctx, msg.ChatNo, sender); err != nil {
		return dto.ChatMessage{}, err
	}
	sendDate := msg.SendDate
	if sendDate == 0 {
		sendDate = s.now().UnixMilli()
	}
	row := &model.ChatMessage{
		ID:       uuid.New().String(),
		RoomID:   msg.ChatNo,
		SenderID: sender.ID,
		Content:  msg.Content,
		SendDate: sendDate,
	}
	if err := s.chats.SaveMessage(ctx, row); err != nil {
		return dto.ChatMessage{}, err
	}
	// 发送者已读到自己的消息
	if err := s.chats.MarkRead(ctx, msg.ChatNo, sender.ID, sendDate); err != nil {
		s.log.Warn("mark read failed", zap.Int64("room", msg.ChatNo), zap.Error(err))
	}
	return dto.ChatMessage{
		ID:         row.ID,
		ChatRoomNo: row.RoomID,
		SenderName: sender.UserName,
		Content:    row.Content,
		SendDate:   row.SendDate,
		IsMine:     true,
	}, nil
}

// Leave 离开房间时推进已读位置
func (s *ChatService) Leave(ctx context.Context, user *model.User, roomID int64) error {
	if _, err := s.Member(ctx, roomID, user); err != nil {
		return err
	}
	return s.chats.MarkRead(ctx, roomID, user.ID, s.now().UnixMilli())
}

// RecordAlarm 消息已由 STOMP 落库，这里只校验成员身份并回显
func (s *ChatService) RecordAlarm(ctx context.Context, sender *model.User, msg dto.OutgoingMessage) (dto.OutgoingMessage, error) {
	room, err := s.Member(ctx, msg.ChatNo, sender)
	if err != nil {
		return dto.OutgoingMessage{}, err
	}
	s.log.Debug("message alarm", zap.Int64("room", room.ID),
		zap.String("sender", sender.UserName), zap.Int64("to", peerOf(room, sender.ID)))
	msg.SenderName = sender.UserName
	return msg, nil
}

func peerOf(r *model.ChatRoom, self int64) int64 {
	if r.CreatorID == self {
		return r.JoinerID
	}
	return r.CreatorID
}

// localDateTime 对应后端 LocalDateTime 的数组序列化
func localDateTime(t time.Time) []int {
	return []int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()}
}
