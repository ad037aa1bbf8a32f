package model

import "time"

// User 用户；Password 为 bcrypt 哈希
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserName  string `gorm:"type:varchar(30);uniqueIndex;not null"`
	NickName  string `gorm:"type:varchar(30)"`
	Password  string `gorm:"type:varchar(72);not null"`
	UserImg   string `gorm:"type:varchar(255)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
