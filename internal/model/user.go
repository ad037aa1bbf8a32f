package model

import "strconv"

// UserInfo 用户列表项（关注、粉丝、搜索）
type UserInfo struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	NickName string `json:"nickName"`
	UserImg  string `json:"userImg"`
}

// UserInfoKey 优先使用 userId，旧接口未返回 userId 时退回 userName
func UserInfoKey(u UserInfo) string {
	if u.UserID != 0 {
		return "id:" + strconv.FormatInt(u.UserID, 10)
	}
	return "name:" + u.UserName
}

// UserDetail 个人主页头部；IsFollowing/FollowerCount 为乐观字段，
// IsFollowing 来自 follow-check 接口而不是 /users/{name}
type UserDetail struct {
	UserName       string `json:"userName"`
	NickName       string `json:"nickName"`
	UserImg        string `json:"userImg"`
	FollowingCount int    `json:"followingCount"`
	FollowerCount  int    `json:"followerCount"`
	IsFollowing    bool   `json:"-"`
}

// JoinRequest 注册；Confirm 只在本地校验，不上送
type JoinRequest struct {
	UserName string `json:"userName" validate:"required,min=3,max=30"`
	NickName string `json:"nickName" validate:"required,max=30"`
	Password string `json:"password" validate:"required,min=4"`
	Confirm  string `json:"-" validate:"required,eqfield=Password"`
}

type JoinResult struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	NickName string `json:"nickName"`
}

type LoginRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	JWT string `json:"jwt"`
}
