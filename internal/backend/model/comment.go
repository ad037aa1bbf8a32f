package model

import "time"

type Comment struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	PostID    int64  `gorm:"index:idx_comment_post;not null"`
	UserID    int64  `gorm:"not null"`
	Body      string `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index:idx_comment_post"`
	UpdatedAt time.Time
}

func (Comment) TableName() string { return "comments" }
