package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

func (c *Client) CreateChatRoom(ctx context.Context, req model.ChatRoomRequest) (model.Chat, error) {
	return result[model.Chat](ctx, c, call{method: http.MethodPost, path: "/chatroom", body: req, private: true})
}

// ChatHistory returns one page of room history with the per-sender groups
// flattened into messages, group order preserved.
func (c *Client) ChatHistory(ctx context.Context, room int64, req paging.Request) (paging.Window[model.ChatMessage], error) {
	groups, err := result[*paging.Slice[model.ChatHistoryGroup]](ctx, c, call{
		method:  http.MethodGet,
		path:    "/chatroom/" + strconv.FormatInt(room, 10),
		query:   req.Values(),
		private: true,
	})
	if err != nil {
		return nil, err
	}
	return paging.Map[model.ChatHistoryGroup](groups, func(g model.ChatHistoryGroup) []model.ChatMessage {
		return g.ChatList
	}), nil
}

func (c *Client) MyChatRooms(ctx context.Context, req paging.Request) (*paging.Slice[model.ChatRoom], error) {
	return result[*paging.Slice[model.ChatRoom]](ctx, c, call{
		method: http.MethodGet, path: "/my-chatroom", query: req.Values(), private: true,
	})
}

// RecordMessage stores msg and raises the receiver's alarm.
func (c *Client) RecordMessage(ctx context.Context, msg model.OutgoingMessage) (model.OutgoingMessage, error) {
	return result[model.OutgoingMessage](ctx, c, call{
		method: http.MethodPost, path: "/chatroom/message-alarm-record", body: msg, private: true,
	})
}
