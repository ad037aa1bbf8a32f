package model

import "time"

// Inbox 关注流时间线项（写扩散，按 user_id 读取）
type Inbox struct {
	ID     string `gorm:"primaryKey;type:varchar(36)"`
	UserID int64  `gorm:"index:idx_inbox_user_score,priority:1;uniqueIndex:ux_inbox_user_post"`
	PostID int64  `gorm:"index:idx_inbox_post;uniqueIndex:ux_inbox_user_post"`
	// ux_inbox_user_post = (user_id, post_id)，避免重复投递
	Score     int64 `gorm:"index:idx_inbox_user_score,priority:2"`
	CreatedAt time.Time
}

func (Inbox) TableName() string { return "inbox" }
