package service

import "errors"

var (
	ErrFollowSelf       = errors.New("cannot follow self")
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicatedName   = errors.New("user name already taken")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidToken     = errors.New("invalid token")
	ErrPostNotFound     = errors.New("post not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrChatRoomNotFound = errors.New("chat room not found")
	ErrPermission       = errors.New("permission denied")
	ErrEmptyMessage     = errors.New("empty message")
	ErrChatWithSelf     = errors.New("cannot chat with self")
)
