package model

import "time"

// PostMedia 帖子图片（按 mediaOrder 排序）
type PostMedia struct {
	MediaURL   string `json:"mediaUrl"`
	MediaOrder int    `json:"mediaOrder"`
}

// PostDetail 关注流与详情页的帖子；IsLiked/LikeCnt 为乐观字段
type PostDetail struct {
	PostID       int64       `json:"postId"`
	Body         string      `json:"body"`
	UserName     string      `json:"userName"`
	NickName     string      `json:"nickName"`
	RegisteredAt string      `json:"registeredAt"`
	LikeCnt      int         `json:"likeCnt"`
	UserImg      string      `json:"userImg"`
	CommentCnt   int         `json:"commentCnt"`
	IsOwner      bool        `json:"isOwner"`
	IsLiked      bool        `json:"isLiked"`
	Media        []PostMedia `json:"postMediaDtoList"`
}

func PostDetailKey(p PostDetail) int64 { return p.PostID }

// PostSummary 个人主页九宫格
type PostSummary struct {
	PostID       int64     `json:"postId"`
	ThumbnailURL string    `json:"postThumbnailUrl"`
	RegisteredAt time.Time `json:"registeredAt"`
}

func PostSummaryKey(p PostSummary) int64 { return p.PostID }

// PostCreateRequest 发帖请求
type PostCreateRequest struct {
	Body  string             `json:"body" validate:"required_without=Media,max=2200"`
	Media []PostMediaRequest `json:"media" validate:"dive"`
}

type PostMediaRequest struct {
	URI   string `json:"uri" validate:"required"`
	Order int    `json:"order" validate:"gte=0"`
}
