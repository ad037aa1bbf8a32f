package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
)

// Outbox 发帖事件外发盒，与 Post 同事务写入，由 FanoutWorker 投递到 Inbox
type Outbox struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	PostID      int64  `gorm:"uniqueIndex"`
	AuthorID    int64  `gorm:"index:idx_outbox_author"`
	CreatedAt   time.Time `gorm:"index"`
	Status      string    `gorm:"type:varchar(16);index"`
	ProcessedAt *time.Time
	FanoutCount int64
}

func (Outbox) TableName() string { return "outbox" }
