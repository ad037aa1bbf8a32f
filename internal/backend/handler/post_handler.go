package handler

import (
	"github.com/gin-gonic/gin"

	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/pkg/response"
)

// CreatePost 发帖：事务写 posts + outbox，扇出到粉丝 inbox
// @Summary 发帖
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body dto.PostCreateRequest true "帖子内容"
// @Success 200 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req dto.PostCreateRequest
	if !h.bindValid(c, &req) {
		return
	}
	id, err := h.posts.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"postId": id})
}

// FollowingFeed 关注流
// @Summary 关注流
// @Tags 帖子
// @Param page query int false "页码（0 起）"
// @Param size query int false "每页数量" default(10)
// @Router /api/v1/posts/following [get]
func (h *Handler) FollowingFeed(c *gin.Context) {
	page, err := h.posts.Feed(c.Request.Context(), currentUser(c), pageRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, page)
}

func (h *Handler) PostDetail(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	d, err := h.posts.Detail(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, d)
}

// UserPosts 个人主页九宫格（公开）
func (h *Handler) UserPosts(c *gin.Context) {
	author, err := h.users.Resolve(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.posts.UserPosts(c.Request.Context(), author, pageRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, page)
}

func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Like 点赞（幂等）
// @Router /api/v1/posts/{id}/likes [post]
func (h *Handler) Like(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Like(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Unlike 取消点赞（幂等）
// @Router /api/v1/posts/{id}/likes [delete]
func (h *Handler) Unlike(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Unlike(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}
