package handler

import (
	"github.com/gin-gonic/gin"

	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/pkg/response"
)

// Comments 评论列表，最新在前（公开）
func (h *Handler) Comments(c *gin.Context) {
	postID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	page, err := h.comments.List(c.Request.Context(), postID, pageRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, page)
}

func (h *Handler) AddComment(c *gin.Context) {
	postID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !h.bindValid(c, &req) {
		return
	}
	if err := h.comments.Add(c.Request.Context(), currentUser(c), postID, req.Comment); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) UpdateComment(c *gin.Context) {
	postID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	commentID, ok := int64Param(c, "cid")
	if !ok {
		return
	}
	var req dto.CommentRequest
	if !h.bindValid(c, &req) {
		return
	}
	if err := h.comments.Update(c.Request.Context(), currentUser(c), postID, commentID, req.Comment); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	commentID, ok := int64Param(c, "cid")
	if !ok {
		return
	}
	if err := h.comments.Delete(c.Request.Context(), currentUser(c), commentID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}
