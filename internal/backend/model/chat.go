package model

import "time"

// ChatRoom 一对一聊天室
type ChatRoom struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	CreatorID int64 `gorm:"index;not null"`
	JoinerID  int64 `gorm:"index;not null"`
	CreatedAt time.Time
}

func (ChatRoom) TableName() string { return "chat_rooms" }

// ChatMember 成员与已读位置（毫秒时间戳）
type ChatMember struct {
	RoomID     int64 `gorm:"primaryKey"`
	UserID     int64 `gorm:"primaryKey;index"`
	LastReadAt int64
}

func (ChatMember) TableName() string { return "chat_members" }

// ChatMessage ID 由服务端分配（uuid），客户端据此去重
type ChatMessage struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	RoomID    int64  `gorm:"index:idx_chat_room_date;not null"`
	SenderID  int64  `gorm:"not null"`
	Content   string `gorm:"type:text"`
	SendDate  int64  `gorm:"index:idx_chat_room_date"`
	ReadCount int
	CreatedAt time.Time
}

func (ChatMessage) TableName() string { return "chat_messages" }

// All 返回需要迁移的全部模型
func All() []any {
	return []any{
		&User{}, &Follow{}, &Fan{}, &Post{}, &PostMedia{}, &Like{},
		&Inbox{}, &Outbox{}, &Comment{}, &Alarm{},
		&ChatRoom{}, &ChatMember{}, &ChatMessage{},
	}
}
