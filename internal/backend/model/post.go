package model

import "time"

// Post 帖子；LikeCnt/CommentCnt 为冗余计数，与 likes/comments 同事务更新
type Post struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	AuthorID   int64  `gorm:"index:idx_post_author;not null"`
	Body       string `gorm:"type:text"`
	LikeCnt    int    `gorm:"not null;default:0"`
	CommentCnt int    `gorm:"not null;default:0"`
	Media      []PostMedia
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Post) TableName() string { return "posts" }

// PostMedia 帖子图片，按 MediaOrder 展示
type PostMedia struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	PostID     int64  `gorm:"index;not null"`
	URL        string `gorm:"type:varchar(255)"`
	MediaOrder int
}

func (PostMedia) TableName() string { return "post_media" }

// Like 点赞（user, post）唯一
type Like struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	PostID    int64  `gorm:"uniqueIndex:ux_like_post_user;not null"`
	UserID    int64  `gorm:"uniqueIndex:ux_like_post_user;not null"`
	CreatedAt time.Time
}

func (Like) TableName() string { return "likes" }
