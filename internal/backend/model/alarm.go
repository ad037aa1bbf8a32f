package model

import "time"

// Alarm 通知：点赞、评论、关注
type Alarm struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	AlarmType    string `gorm:"type:varchar(16);not null"`
	FromUserID   int64  `gorm:"not null"`
	TargetUserID int64  `gorm:"index:idx_alarm_target;not null"`
	Text         string `gorm:"type:varchar(255)"`
	CreatedAt    time.Time `gorm:"index:idx_alarm_target"`
}

func (Alarm) TableName() string { return "alarms" }
