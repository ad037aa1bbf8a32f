package service_test

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/feedsync/config"
	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/backend/backendtest"
	"github.com/d60-Lab/feedsync/internal/live"
	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
	"github.com/d60-Lab/feedsync/internal/service"
	"github.com/d60-Lab/feedsync/internal/session"
)

var errInjected = errors.New("injected transport failure")

// transport counts requests per path and fails the ones matching fail.
type transport struct {
	mu    sync.Mutex
	hits  map[string]int
	hooks map[string]func() // run once after the response for "METHOD path"
	fail  atomic.Value      // string path suffix, "" for none
}

func (tr *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	key := r.Method + " " + r.URL.Path
	tr.mu.Lock()
	tr.hits[key]++
	hook := tr.hooks[key]
	delete(tr.hooks, key)
	tr.mu.Unlock()
	if s, _ := tr.fail.Load().(string); s != "" && strings.HasSuffix(r.URL.Path, s) {
		return nil, errInjected
	}
	resp, err := http.DefaultTransport.RoundTrip(r)
	if hook != nil {
		hook()
	}
	return resp, err
}

func (tr *transport) after(method, path string, fn func()) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.hooks[method+" /api/v1"+path] = fn
}

func (tr *transport) count(method, path string) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.hits[method+" /api/v1"+path]
}

func (tr *transport) failOn(suffix string) { tr.fail.Store(suffix) }

type client struct {
	service.Deps
	tr *transport
}

var testPaging = config.PagingConfig{
	FeedSize:        2,
	CommentSize:     10,
	ProfilePostSize: 9,
	FollowSize:      20,
	AlarmSize:       20,
	SearchSize:      20,
	ChatSize:        10,
	ChatRoomSize:    10,
}

// login registers name on env and returns a logged-in client for it.
func login(t *testing.T, env *backendtest.Env, name string) *client {
	t.Helper()
	tr := &transport{hits: map[string]int{}, hooks: map[string]func(){}}
	tr.failOn("")
	sess := session.NewManager(session.NewMemoryStore())
	d := service.Deps{
		API:     api.New(env.BaseURL, sess, api.WithHTTPClient(&http.Client{Transport: tr, Timeout: 5 * time.Second})),
		Session: sess,
		Paging:  testPaging,
		Live: live.Options{
			URL:              env.LiveURL,
			HandshakeTimeout: 2 * time.Second,
			WriteTimeout:     2 * time.Second,
			ReceiptTimeout:   2 * time.Second,
		},
		Metrics: metrics.Nop,
	}
	ctx := context.Background()
	auth := service.NewAuth(d)
	_, err := auth.Register(ctx, model.JoinRequest{UserName: name, NickName: name, Password: "pass", Confirm: "pass"})
	require.NoError(t, err)
	_, err = auth.Login(ctx, name, "pass")
	require.NoError(t, err)
	return &client{Deps: d, tr: tr}
}

func TestRegisterValidatesLocally(t *testing.T) {
	env := backendtest.Start(t)
	kim := login(t, env, "kim")
	before := kim.tr.count(http.MethodPost, "/users/join")

	_, err := service.NewAuth(kim.Deps).Register(context.Background(),
		model.JoinRequest{UserName: "lee", NickName: "lee", Password: "pass", Confirm: "nope"})
	require.Error(t, err)
	assert.Equal(t, before, kim.tr.count(http.MethodPost, "/users/join"))

	require.NoError(t, service.NewAuth(kim.Deps).Logout(context.Background()))
	assert.Empty(t, kim.Session.UserName())
}

func TestFeedScrollsToLastPage(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	lee := env.User(t, "lee")
	kim := login(t, env, "kim")
	require.NoError(t, kim.API.Follow(ctx, "lee"))
	for _, body := range []string{"one", "two", "three"} {
		env.Post(t, lee, body)
	}

	feed := service.NewFeed(kim.Deps)
	defer feed.Close()

	n, err := feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, feed.State().HasMore)

	n, err = feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, kim.tr.count(http.MethodGet, "/posts/following"))

	var bodies []string
	for _, p := range feed.Posts() {
		bodies = append(bodies, p.Body)
	}
	assert.Equal(t, []string{"three", "two", "one"}, bodies)

	n, err = feed.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, feed.Posts(), 2)
}

func TestFeedLikeRollsBackOnFailure(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	lee := env.User(t, "lee")
	kim := login(t, env, "kim")
	require.NoError(t, kim.API.Follow(ctx, "lee"))
	env.Post(t, lee, "hello")

	feed := service.NewFeed(kim.Deps)
	defer feed.Close()
	_, err := feed.LoadMore(ctx)
	require.NoError(t, err)
	require.Len(t, feed.Posts(), 1)
	id := feed.Posts()[0].PostID

	require.NoError(t, feed.ToggleLike(ctx, id))
	p := feed.Posts()[0]
	assert.True(t, p.IsLiked)
	assert.Equal(t, 1, p.LikeCnt)

	kim.tr.failOn("/likes")
	err = feed.ToggleLike(ctx, id)
	require.ErrorIs(t, err, errInjected)
	p = feed.Posts()[0]
	assert.True(t, p.IsLiked)
	assert.Equal(t, 1, p.LikeCnt)

	kim.tr.failOn("")
	require.NoError(t, feed.ToggleLike(ctx, id))
	p = feed.Posts()[0]
	assert.False(t, p.IsLiked)
	assert.Zero(t, p.LikeCnt)

	server, err := kim.API.Post(ctx, id)
	require.NoError(t, err)
	assert.False(t, server.IsLiked)
	assert.Zero(t, server.LikeCnt)
}

func TestPostDetailMirrorsIntoFeed(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	kim := login(t, env, "kim")
	lee := login(t, env, "lee")
	require.NoError(t, lee.API.Follow(ctx, "kim"))
	require.NoError(t, kim.API.CreatePost(ctx, model.PostCreateRequest{Body: "mine"}))

	feed := service.NewFeed(lee.Deps)
	defer feed.Close()
	_, err := feed.LoadMore(ctx)
	require.NoError(t, err)
	require.Len(t, feed.Posts(), 1)
	id := feed.Posts()[0].PostID

	detail := service.NewPostDetail(lee.Deps, id, feed)
	post, err := detail.Load(ctx)
	require.NoError(t, err)
	assert.False(t, post.IsOwner)
	require.NoError(t, detail.ToggleLike(ctx))
	assert.True(t, feed.Posts()[0].IsLiked)
	assert.Equal(t, 1, feed.Posts()[0].LikeCnt)

	err = detail.Delete(ctx)
	require.Error(t, err, "only the author may delete")
	assert.Len(t, feed.Posts(), 1)

	own := service.NewPostDetail(kim.Deps, id, nil)
	require.NoError(t, own.Delete(ctx))
	_, ok := own.Post()
	assert.False(t, ok)
}

func TestProfileToggleFollow(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	env.User(t, "lee")
	kim := login(t, env, "kim")

	p := service.NewProfile(kim.Deps, "lee")
	defer p.Close()
	require.NoError(t, p.Load(ctx))
	h, ok := p.Header()
	require.True(t, ok)
	assert.False(t, h.IsFollowing)
	assert.Zero(t, h.FollowerCount)

	require.NoError(t, p.ToggleFollow(ctx))
	h, _ = p.Header()
	assert.True(t, h.IsFollowing)
	assert.Equal(t, 1, h.FollowerCount)

	kim.tr.failOn("/users/unfollow/lee")
	require.ErrorIs(t, p.ToggleFollow(ctx), errInjected)
	h, _ = p.Header()
	assert.True(t, h.IsFollowing)
	assert.Equal(t, 1, h.FollowerCount)
	kim.tr.failOn("")

	again := service.NewProfile(kim.Deps, "lee")
	defer again.Close()
	require.NoError(t, again.Load(ctx))
	h, _ = again.Header()
	assert.True(t, h.IsFollowing)
	assert.Equal(t, 1, h.FollowerCount)

	self := service.NewProfile(kim.Deps, "")
	defer self.Close()
	assert.True(t, self.IsSelf())
	require.NoError(t, self.Load(ctx))
	h, _ = self.Header()
	assert.Equal(t, 1, h.FollowingCount)
	assert.ErrorIs(t, self.ToggleFollow(ctx), service.ErrSelfFollow)

	mine := service.NewFollowList(kim.Deps, service.MyFollowing, "")
	defer mine.Close()
	_, err := mine.LoadMore(ctx)
	require.NoError(t, err)
	require.Len(t, mine.Users(), 1)
	assert.Equal(t, "lee", mine.Users()[0].UserName)
}

func TestProfileSelfFollowsSessionChange(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	login(t, env, "lee")
	kim := login(t, env, "kim")

	p := service.NewProfile(kim.Deps, "lee")
	defer p.Close()
	assert.False(t, p.IsSelf())

	// same device, now signed in as lee
	_, err := service.NewAuth(kim.Deps).Login(ctx, "lee", "pass")
	require.NoError(t, err)
	assert.True(t, p.IsSelf())
	assert.ErrorIs(t, p.ToggleFollow(ctx), service.ErrSelfFollow)
	assert.Zero(t, kim.tr.count(http.MethodPost, "/users/follow/lee"))

	require.NoError(t, p.Load(ctx))
	h, ok := p.Header()
	require.True(t, ok)
	assert.Equal(t, "lee", h.UserName)
	assert.Zero(t, kim.tr.count(http.MethodGet, "/users/follow-check/lee"))
}

func TestProfileFollowCheckFailureMeansNotFollowing(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	env.User(t, "lee")
	kim := login(t, env, "kim")
	require.NoError(t, kim.API.Follow(ctx, "lee"))

	kim.tr.failOn("/users/follow-check/lee")
	p := service.NewProfile(kim.Deps, "lee")
	defer p.Close()
	require.NoError(t, p.Load(ctx))
	h, _ := p.Header()
	assert.False(t, h.IsFollowing)
}

func TestCommentsSheet(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	kim := login(t, env, "kim")
	require.NoError(t, kim.API.CreatePost(ctx, model.PostCreateRequest{Body: "post"}))
	posts, err := kim.API.UserPosts(ctx, "kim", paging.Request{Size: 9})
	require.NoError(t, err)
	require.Len(t, posts.Items(), 1)
	id := posts.Items()[0].PostID

	c := service.NewComments(kim.Deps, id)
	defer c.Close()
	assert.ErrorIs(t, c.Add(ctx, "   "), service.ErrEmptyText)
	require.NoError(t, c.Add(ctx, "first"))
	require.NoError(t, c.Add(ctx, "second"))
	require.Len(t, c.Items(), 2)
	assert.Equal(t, "second", c.Items()[0].Comment)

	cid := c.Items()[1].ID
	require.NoError(t, c.Edit(ctx, cid, "first!"))
	assert.Equal(t, "first!", c.Items()[1].Comment)

	require.NoError(t, c.Delete(ctx, cid))
	require.Len(t, c.Items(), 1)
	_, err = c.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Items(), 1)
}

func TestSearchReplacesQuery(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	env.User(t, "alpha")
	env.User(t, "albert")
	env.User(t, "bravo")
	kim := login(t, env, "kim")

	s := service.NewSearch(kim.Deps)
	defer s.Close()
	_, err := s.Query(ctx, "al")
	require.NoError(t, err)
	assert.Len(t, s.Users(), 2)

	_, err = s.Query(ctx, "br")
	require.NoError(t, err)
	require.Len(t, s.Users(), 1)
	assert.Equal(t, "bravo", s.Users()[0].UserName)

	n, err := s.Query(ctx, "  ")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.Users())
}

func TestAlarmsAfterFollow(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	lee := login(t, env, "lee")
	kim := login(t, env, "kim")
	require.NoError(t, kim.API.Follow(ctx, "lee"))

	a := service.NewAlarms(lee.Deps)
	defer a.Close()
	_, err := a.LoadMore(ctx)
	require.NoError(t, err)
	require.Len(t, a.Items(), 1)
	assert.Equal(t, model.AlarmFollow, a.Items()[0].AlarmType)
	assert.Equal(t, "kim", a.Items()[0].FromUserName)
}

func TestChatRoomEnterAndLive(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	kim := login(t, env, "kim")
	lee := login(t, env, "lee")

	chat, err := service.NewChatRooms(kim.Deps).Create(ctx, "lee")
	require.NoError(t, err)
	roomID := chat.ChatNo

	leeRooms := service.NewChatRooms(lee.Deps)
	defer leeRooms.Close()
	leeRoom, err := leeRooms.Enter(ctx, roomID)
	require.NoError(t, err)
	defer leeRoom.Close(context.Background())
	assert.Equal(t, 1, env.Server.Broker.Subscribers(roomID))

	assert.ErrorIs(t, leeRoom.Send(ctx, " "), service.ErrEmptyText)
	require.NoError(t, leeRoom.Send(ctx, "hi"))
	require.Eventually(t, func() bool { return len(leeRoom.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, leeRoom.Messages()[0].IsMine)

	kimRooms := service.NewChatRooms(kim.Deps)
	defer kimRooms.Close()
	require.Eventually(t, func() bool {
		if _, err := kimRooms.Refresh(ctx); err != nil {
			return false
		}
		rooms := kimRooms.Rooms()
		return len(rooms) == 1 && rooms[0].NotReadMessageCnt == 1
	}, 2*time.Second, 20*time.Millisecond)

	kimRoom, err := kimRooms.Enter(ctx, roomID)
	require.NoError(t, err)
	defer kimRoom.Close(context.Background())
	assert.Zero(t, kimRooms.Rooms()[0].NotReadMessageCnt)
	require.Len(t, kimRoom.Messages(), 1)
	assert.Equal(t, "hi", kimRoom.Messages()[0].Content)
	assert.False(t, kimRoom.Messages()[0].IsMine)

	assert.Equal(t, 2, env.Server.Broker.Subscribers(roomID))
	require.NoError(t, leeRoom.Send(ctx, "again"))
	require.Eventually(t, func() bool { return len(kimRoom.Messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestChatMessageSentWhileHistoryLoads(t *testing.T) {
	env := backendtest.Start(t)
	ctx := context.Background()
	kim := login(t, env, "kim")
	lee := login(t, env, "lee")

	chat, err := service.NewChatRooms(kim.Deps).Create(ctx, "lee")
	require.NoError(t, err)
	roomID := chat.ChatNo

	leeRooms := service.NewChatRooms(lee.Deps)
	defer leeRooms.Close()
	leeRoom, err := leeRooms.Enter(ctx, roomID)
	require.NoError(t, err)
	defer leeRoom.Close(context.Background())

	// lee speaks right after kim's history page came back
	kim.tr.after(http.MethodGet, "/chatroom/"+strconv.FormatInt(roomID, 10), func() {
		assert.NoError(t, leeRoom.Send(ctx, "while loading"))
	})

	kimRooms := service.NewChatRooms(kim.Deps)
	defer kimRooms.Close()
	kimRoom, err := kimRooms.Enter(ctx, roomID)
	require.NoError(t, err)
	defer kimRoom.Close(context.Background())

	require.Eventually(t, func() bool { return len(kimRoom.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "while loading", kimRoom.Messages()[0].Content)

	require.NoError(t, leeRoom.Send(ctx, "after"))
	require.Eventually(t, func() bool { return len(kimRoom.Messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "after", kimRoom.Messages()[1].Content)
}
