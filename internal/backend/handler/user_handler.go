package handler

import (
	"github.com/gin-gonic/gin"

	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/pkg/response"
)

type joinRequest struct {
	UserName string `json:"userName" binding:"required,min=3,max=30"`
	NickName string `json:"nickName" binding:"required,max=30"`
	Password string `json:"password" binding:"required,min=4"`
}

// Join 注册
// @Summary 注册
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body joinRequest true "注册信息"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/users/join [post]
func (h *Handler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.users.Join(c.Request.Context(), req.UserName, req.NickName, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, res)
}

// Login 登录，返回 {jwt}
// @Summary 登录
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/users/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.bindValid(c, &req) {
		return
	}
	token, err := h.users.Login(c.Request.Context(), req.UserName, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, dto.LoginResult{JWT: token})
}

// UserDetail 个人主页头部（公开）
// @Router /api/v1/users/{name} [get]
func (h *Handler) UserDetail(c *gin.Context) {
	d, err := h.users.Detail(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, d)
}

func (h *Handler) MyInfo(c *gin.Context) {
	d, err := h.users.Detail(c.Request.Context(), currentUser(c).UserName)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, d)
}

// SearchUsers 用户名/昵称前缀搜索；空关键字返回空页
func (h *Handler) SearchUsers(c *gin.Context) {
	keyword := c.Query("keyword")
	page, err := h.users.Search(c.Request.Context(), keyword, pageRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if keyword == "" {
		page.Content = []dto.UserInfo{}
		page.TotalElements, page.TotalPages, page.Last, page.Empty = 0, 0, true, true
	}
	response.Success(c, page)
}

func (h *Handler) Alarms(c *gin.Context) {
	page, err := h.alarms.List(c.Request.Context(), currentUser(c), pageRequest(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, page)
}
