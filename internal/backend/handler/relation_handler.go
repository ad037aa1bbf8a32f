package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/feedsync/internal/backend/service"
	"github.com/d60-Lab/feedsync/pkg/response"
)

// Follow 关注 :name（粉丝表同步或异步冗余）
// @Summary 关注用户
// @Tags 关系链
// @Produce json
// @Param name path string true "被关注的用户名"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/follow/{name} [post]
func (h *Handler) Follow(c *gin.Context) {
	me := currentUser(c)
	target, err := h.users.Resolve(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.relService.Follow(c.Request.Context(), me.ID, target.ID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Produce json
// @Param name path string true "用户名"
// @Success 200 {object} response.Response
// @Router /api/v1/users/unfollow/{name} [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	me := currentUser(c)
	target, err := h.users.Resolve(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.relService.Unfollow(c.Request.Context(), me.ID, target.ID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, nil)
}

// FollowCheck 返回裸 bool，不带包装
// @Router /api/v1/users/follow-check/{name} [get]
func (h *Handler) FollowCheck(c *gin.Context) {
	me := currentUser(c)
	target, err := h.users.Resolve(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok, err := h.relService.IsFollowing(c.Request.Context(), me.ID, target.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ok)
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param name path string true "用户名"
// @Param page query int false "页码（0 起）" default(0)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} response.Response
// @Router /api/v1/users/{name}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	target, err := h.users.Resolve(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.userPage(c, target.ID, h.relService.ListFollowing)
}

// ListFans 查询某用户的粉丝
// @Summary 查询粉丝列表
// @Tags 关系链
// @Param name path string true "用户名"
// @Param page query int false "页码（0 起）" default(0)
// @Param size query int false "每页数量" default(20)
// @Success 200 {object} response.Response
// @Router /api/v1/users/{name}/followers [get]
func (h *Handler) ListFans(c *gin.Context) {
	target, err := h.users.Resolve(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.userPage(c, target.ID, h.relService.ListFans)
}

func (h *Handler) MyFollowing(c *gin.Context) {
	h.userPage(c, currentUser(c).ID, h.relService.ListFollowing)
}

func (h *Handler) MyFans(c *gin.Context) {
	h.userPage(c, currentUser(c).ID, h.relService.ListFans)
}

type idLister func(ctx context.Context, userID int64, req service.PageRequest) ([]int64, int64, error)

func (h *Handler) userPage(c *gin.Context, userID int64, list idLister) {
	req := pageRequest(c)
	ids, total, err := list(c.Request.Context(), userID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := h.users.InfoPage(c.Request.Context(), ids, req, total)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, page)
}
