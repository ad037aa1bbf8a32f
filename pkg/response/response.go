// Package response defines the backend's JSON envelope. The dev backend writes it
// through the gin helpers below and the API client decodes it with the same types.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	ResultSuccess = "SUCCESS"
	ResultError   = "ERROR"
)

// Response is the raw envelope; Result is decoded lazily by the caller.
type Response struct {
	ResultCode string          `json:"resultCode"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// Envelope is the typed success envelope.
type Envelope[T any] struct {
	ResultCode string `json:"resultCode"`
	Result     T      `json:"result"`
}

// ErrorResult is the payload of an ERROR envelope.
type ErrorResult struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// Error codes emitted by the dev backend.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeInvalidPassword  = "INVALID_PASSWORD"
	CodeDuplicatedName   = "DUPLICATED_USER_NAME"
	CodeUserNotFound     = "USERNAME_NOT_FOUND"
	CodePostNotFound     = "POST_NOT_FOUND"
	CodeCommentNotFound  = "COMMENT_NOT_FOUND"
	CodeChatRoomNotFound = "CHATROOM_NOT_FOUND"
	CodePermission       = "INVALID_PERMISSION"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// Success 200 + SUCCESS 包装
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope[any]{ResultCode: ResultSuccess, Result: data})
}

// Fail 写出 ERROR 包装并终止后续 handler
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope[ErrorResult]{
		ResultCode: ResultError,
		Result:     ErrorResult{ErrorCode: code, Message: message},
	})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, CodeInvalidRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, CodeInvalidToken, message)
}

func NotFound(c *gin.Context, code, message string) {
	Fail(c, http.StatusNotFound, code, message)
}

func InternalError(c *gin.Context, err error) {
	Fail(c, http.StatusInternalServerError, CodeInternal, err.Error())
}
