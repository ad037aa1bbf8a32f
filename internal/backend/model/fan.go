package model

import "time"

// Fan 粉丝关系（B 的粉丝是 A）冗余自 Follow
type Fan struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    int64  `gorm:"index:idx_fan_user;uniqueIndex:idx_fan_pair;not null"`
	FanID     int64  `gorm:"uniqueIndex:idx_fan_pair;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Fan) TableName() string { return "fans" }
