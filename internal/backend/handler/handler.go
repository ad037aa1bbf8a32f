package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/service"
	"github.com/d60-Lab/feedsync/pkg/logger"
	"github.com/d60-Lab/feedsync/pkg/response"
)

const ctxUserKey = "currentUser"

// Handler 开发后端的全部 REST 接口
type Handler struct {
	users      *service.UserService
	relService service.RelationshipService
	posts      *service.PostService
	comments   *service.CommentService
	alarms     *service.AlarmService
	chats      *service.ChatService
	validate   *validator.Validate
	log        *zap.Logger
}

func New(
	users *service.UserService,
	relService service.RelationshipService,
	posts *service.PostService,
	comments *service.CommentService,
	alarms *service.AlarmService,
	chats *service.ChatService,
) *Handler {
	return &Handler{
		users:      users,
		relService: relService,
		posts:      posts,
		comments:   comments,
		alarms:     alarms,
		chats:      chats,
		validate:   validator.New(),
		log:        logger.Named("handler"),
	}
}

// currentUser 由 Auth 中间件注入
func currentUser(c *gin.Context) *model.User {
	u, _ := c.MustGet(ctxUserKey).(*model.User)
	return u
}

// pageRequest 解析 Spring 风格的 page/size；sort 由各接口自行决定
func pageRequest(c *gin.Context) service.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.Query("size"))
	return service.PageRequest{Page: page, Size: size}
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// bindValid 解析 JSON 并按 validate 标签校验共享 DTO
func (h *Handler) bindValid(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

// fail 把服务层错误映射为 ERROR 包装
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, response.CodeUserNotFound, err.Error())
	case errors.Is(err, service.ErrPostNotFound):
		response.NotFound(c, response.CodePostNotFound, err.Error())
	case errors.Is(err, service.ErrCommentNotFound):
		response.NotFound(c, response.CodeCommentNotFound, err.Error())
	case errors.Is(err, service.ErrChatRoomNotFound):
		response.NotFound(c, response.CodeChatRoomNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicatedName):
		response.Fail(c, http.StatusConflict, response.CodeDuplicatedName, err.Error())
	case errors.Is(err, service.ErrInvalidPassword):
		response.Fail(c, http.StatusUnauthorized, response.CodeInvalidPassword, err.Error())
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrPermission):
		response.Fail(c, http.StatusForbidden, response.CodePermission, err.Error())
	case errors.Is(err, service.ErrFollowSelf),
		errors.Is(err, service.ErrChatWithSelf),
		errors.Is(err, service.ErrEmptyMessage):
		response.BadRequest(c, err.Error())
	default:
		h.log.Error("request failed",
			zap.String("method", c.Request.Method), zap.String("path", c.FullPath()), zap.Error(err))
		response.InternalError(c, err)
	}
}
