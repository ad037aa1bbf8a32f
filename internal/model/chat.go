package model

// ChatMessage 聊天消息；ID 由服务端分配，历史与实时推送共用该去重键
type ChatMessage struct {
	ID         string `json:"id"`
	ChatRoomNo int64  `json:"chatRoomNo"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
	SendDate   int64  `json:"sendDate"` // unix millis
	ReadCount  int    `json:"readCount"`
	IsMine     bool   `json:"isMine"`
}

func ChatMessageKey(m ChatMessage) string { return m.ID }

// ChatHistoryGroup 历史接口按发送者分组返回，客户端展开为消息列表
type ChatHistoryGroup struct {
	UserName string        `json:"userName"`
	UserImg  string        `json:"userImg"`
	ChatList []ChatMessage `json:"chatList"`
}

// OutgoingMessage 发送到 /publish/message 与 message-alarm-record 的消息体
type OutgoingMessage struct {
	ID         string `json:"id,omitempty"`
	ChatNo     int64  `json:"chatNo"`
	Content    string `json:"content" validate:"required"`
	SenderName string `json:"senderName" validate:"required"`
	SendDate   int64  `json:"sendDate"`
	ReadCount  int    `json:"readCount"`
}

// LeaveRequest 离开房间通知
type LeaveRequest struct {
	ChatNo   int64  `json:"chatNo"`
	UserName string `json:"userName"`
}

// ChatRoom 我的聊天室列表项；NotReadMessageCnt 为乐观字段
type ChatRoom struct {
	ChatRoomID        int64  `json:"chatRoomId"`
	JoinUserName      string `json:"joinUserName"`
	JoinNickName      string `json:"joinNickName"`
	JoinUserImg       string `json:"joinUserImg"`
	NotReadMessageCnt int    `json:"notReadMessageCnt"`
	LastContent       string `json:"lastContent"`
	LastMessageTime   []int  `json:"lastMessageTime"`
}

func ChatRoomKey(r ChatRoom) int64 { return r.ChatRoomID }

type ChatRoomRequest struct {
	JoinUserName string `json:"joinUserName" validate:"required"`
}

type Chat struct {
	ChatNo     int64  `json:"chatNo"`
	CreateUser string `json:"createUser"`
	JoinUser   string `json:"joinUser"`
	RegDate    string `json:"regDate"`
}
