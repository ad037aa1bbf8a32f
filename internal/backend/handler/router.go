package handler

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Register 挂载 /api/v1 路由；静态段优先于 :name
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1", gzip.Gzip(gzip.DefaultCompression))
	auth := Auth(h.users)

	users := v1.Group("/users")
	{
		users.POST("/join", h.Join)
		users.POST("/login", h.Login)
		users.GET("/search", h.SearchUsers)
		users.GET("/info", auth, h.MyInfo)
		users.GET("/alarm", auth, h.Alarms)
		users.GET("/my-following", auth, h.MyFollowing)
		users.GET("/my-followers", auth, h.MyFans)
		users.GET("/follow-check/:name", auth, h.FollowCheck)
		users.POST("/follow/:name", auth, h.Follow)
		users.DELETE("/unfollow/:name", auth, h.Unfollow)
		users.GET("/:name", h.UserDetail)
		users.GET("/:name/following", auth, h.ListFollowing)
		users.GET("/:name/followers", auth, h.ListFans)
	}

	posts := v1.Group("/posts")
	{
		posts.POST("", auth, h.CreatePost)
		posts.GET("/following", auth, h.FollowingFeed)
		posts.GET("/info/:name", h.UserPosts)
		posts.DELETE("/comments/:cid", auth, h.DeleteComment)
		posts.GET("/:id", auth, h.PostDetail)
		posts.DELETE("/:id", auth, h.DeletePost)
		posts.POST("/:id/likes", auth, h.Like)
		posts.DELETE("/:id/likes", auth, h.Unlike)
		posts.GET("/:id/comments", h.Comments)
		posts.POST("/:id/comments", auth, h.AddComment)
		posts.PUT("/:id/comments/:cid", auth, h.UpdateComment)
	}

	v1.POST("/chatroom", auth, h.CreateChatRoom)
	v1.POST("/chatroom/message-alarm-record", auth, h.RecordMessage)
	v1.GET("/chatroom/:room", auth, h.ChatHistory)
	v1.GET("/my-chatroom", auth, h.MyChatRooms)
}
