package handler

import (
	"github.com/gin-gonic/gin"

	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/pkg/response"
)

// CreateChatRoom 与 joinUserName 建立一对一房间；已存在则返回原房间
// @Summary 创建聊天室
// @Tags 聊天
// @Accept json
// @Produce json
// @Param request body dto.ChatRoomRequest true "对方用户名"
// @Success 200 {object} response.Response
// @Router /api/v1/chatroom [post]
func (h *Handler) CreateChatRoom(c *gin.Context) {
	var req dto.ChatRoomRequest
	if !h.bindValid(c, &req) {
		return
	}
	chat, err := h.chats.CreateRoom(c.Request.Context(), currentUser(c), req.JoinUserName)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, chat)
}

// ChatHistory 历史消息（Slice，按发送者分组）
// @Router /api/v1/chatroom/{room} [get]
func (h *Handler) ChatHistory(c *gin.Context) {
	room, ok := int64Param(c, "room")
	if !ok {
		return
	}
	slice, err := h.chats.History(c.Request.Context(), currentUser(c), room, pageRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, slice)
}

func (h *Handler) MyChatRooms(c *gin.Context) {
	slice, err := h.chats.MyRooms(c.Request.Context(), currentUser(c), pageRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, slice)
}

// RecordMessage 发送后补记通知
func (h *Handler) RecordMessage(c *gin.Context) {
	var req dto.OutgoingMessage
	if !h.bindValid(c, &req) {
		return
	}
	msg, err := h.chats.RecordAlarm(c.Request.Context(), currentUser(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, msg)
}
