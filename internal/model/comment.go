package model

type Comment struct {
	ID           int64  `json:"id"`
	Comment      string `json:"comment"`
	UserName     string `json:"userName"`
	UserImg      string `json:"userImg"`
	PostID       int64  `json:"postId"`
	RegisteredAt string `json:"registeredAt"`
}

func CommentKey(c Comment) int64 { return c.ID }

// CommentRequest 新建与修改共用
type CommentRequest struct {
	Comment string `json:"comment" validate:"required,max=1000"`
}
