package main

import (
	"context"
	"time"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/service"
)

func join(ctx context.Context, d service.Deps, user, password, nick string) error {
	if nick == "" {
		nick = user
	}
	res, err := service.NewAuth(d).Register(ctx, model.JoinRequest{
		UserName: user,
		NickName: nick,
		Password: password,
		Confirm:  password,
	})
	if err != nil {
		return err
	}
	Out.Printf("joined as %s (id %d)", res.UserName, res.UserID)
	return nil
}

func feed(ctx context.Context, d service.Deps, pages int) error {
	f := service.NewFeed(d)
	defer f.Close()
	for i := 0; i < pages; i++ {
		n, err := f.LoadMore(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
	}
	for _, p := range f.Posts() {
		liked := " "
		if p.IsLiked {
			liked = "*"
		}
		Out.Printf("[%d] %s %s: %s  (%d likes%s, %d comments)", p.PostID, p.RegisteredAt, p.UserName, p.Body, p.LikeCnt, liked, p.CommentCnt)
	}
	return nil
}

func like(ctx context.Context, d service.Deps, postID int64) error {
	p := service.NewPostDetail(d, postID, nil)
	defer p.Close()
	if _, err := p.Load(ctx); err != nil {
		return err
	}
	if err := p.ToggleLike(ctx); err != nil {
		return err
	}
	post, _ := p.Post()
	Out.Printf("post %d liked=%t likes=%d", post.PostID, post.IsLiked, post.LikeCnt)
	return nil
}

func comments(ctx context.Context, d service.Deps, postID int64) error {
	c := service.NewComments(d, postID)
	defer c.Close()
	if _, err := c.LoadMore(ctx); err != nil {
		return err
	}
	for _, cm := range c.Items() {
		Out.Printf("[%d] %s %s: %s", cm.ID, cm.RegisteredAt, cm.UserName, cm.Comment)
	}
	return nil
}

func profile(ctx context.Context, d service.Deps, name string) error {
	p := service.NewProfile(d, name)
	defer p.Close()
	if err := p.Load(ctx); err != nil {
		return err
	}
	h, _ := p.Header()
	Out.Printf("%s (%s) following=%d followers=%d", h.UserName, h.NickName, h.FollowingCount, h.FollowerCount)
	if !p.IsSelf() {
		Out.Printf("you follow: %t", h.IsFollowing)
	}
	for _, s := range p.Posts() {
		Out.Printf("[%d] %s %s", s.PostID, s.RegisteredAt.Format(time.DateTime), s.ThumbnailURL)
	}
	return nil
}

func follow(ctx context.Context, d service.Deps, name string) error {
	p := service.NewProfile(d, name)
	defer p.Close()
	if err := p.Load(ctx); err != nil {
		return err
	}
	if err := p.ToggleFollow(ctx); err != nil {
		return err
	}
	h, _ := p.Header()
	Out.Printf("following %s: %t (followers=%d)", h.UserName, h.IsFollowing, h.FollowerCount)
	return nil
}

func follows(ctx context.Context, d service.Deps, name string, other, mine service.FollowKind) error {
	kind := other
	if name == "" {
		kind = mine
	}
	l := service.NewFollowList(d, kind, name)
	defer l.Close()
	if _, err := l.LoadMore(ctx); err != nil {
		return err
	}
	for _, u := range l.Users() {
		Out.Printf("%s (%s)", u.UserName, u.NickName)
	}
	return nil
}

func search(ctx context.Context, d service.Deps, q string) error {
	s := service.NewSearch(d)
	defer s.Close()
	if _, err := s.Query(ctx, q); err != nil {
		return err
	}
	for _, u := range s.Users() {
		Out.Printf("%s (%s)", u.UserName, u.NickName)
	}
	return nil
}

func alarms(ctx context.Context, d service.Deps) error {
	a := service.NewAlarms(d)
	defer a.Close()
	if _, err := a.LoadMore(ctx); err != nil {
		return err
	}
	for _, al := range a.Items() {
		Out.Printf("%s %s %s", al.RegisteredAt, al.AlarmType, al.Text)
	}
	return nil
}

func rooms(ctx context.Context, d service.Deps) error {
	r := service.NewChatRooms(d)
	defer r.Close()
	if _, err := r.LoadMore(ctx); err != nil {
		return err
	}
	for _, room := range r.Rooms() {
		Out.Printf("[%d] %s unread=%d last=%q", room.ChatRoomID, room.JoinUserName, room.NotReadMessageCnt, room.LastContent)
	}
	return nil
}

func chat(ctx context.Context, d service.Deps, roomID int64, message string, wait time.Duration) error {
	rooms := service.NewChatRooms(d)
	defer rooms.Close()
	if _, err := rooms.LoadMore(ctx); err != nil {
		return err
	}
	room, err := rooms.Enter(ctx, roomID)
	if err != nil {
		return err
	}
	defer room.Close(context.Background())

	if message != "" {
		if err := room.Send(ctx, message); err != nil {
			return err
		}
	}
	if wait > 0 {
		time.Sleep(wait)
	}
	for _, m := range room.Messages() {
		who := m.SenderName
		if m.IsMine {
			who = "me"
		}
		Out.Printf("%s %s: %s", time.UnixMilli(m.SendDate).Format(time.DateTime), who, m.Content)
	}
	return nil
}
