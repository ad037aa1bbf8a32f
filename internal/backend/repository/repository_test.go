package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/pkg/database"
)

func setupDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(tb, err)
	require.NoError(tb, db.AutoMigrate(model.All()...))
	return db
}

func seedUsers(tb testing.TB, db *gorm.DB, n int) []model.User {
	tb.Helper()
	users := make([]model.User, n)
	for i := range users {
		users[i] = model.User{UserName: fmt.Sprintf("u%04d", i), Password: "p"}
	}
	require.NoError(tb, db.Create(&users).Error)
	return users
}

func TestFollowAndFanRedundancy(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, 3)
	follows := NewFollowRepository(db)
	fans := NewFanRepository(db)
	ctx := context.Background()
	a, b, c := users[0].ID, users[1].ID, users[2].ID

	require.NoError(t, follows.Create(ctx, a, b))
	require.NoError(t, follows.Create(ctx, a, b), "duplicate follow is a no-op")
	require.NoError(t, follows.Create(ctx, a, c))
	require.NoError(t, fans.Create(ctx, b, a))
	require.NoError(t, fans.Create(ctx, b, a))

	ok, err := follows.Exists(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = follows.Exists(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := follows.CountFollowings(ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = fans.CountFans(ctx, b)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ids, err := fans.ListFanIDs(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, ids)

	page, err := follows.ListFollowings(ctx, a, 1, 10)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	require.NoError(t, follows.Delete(ctx, a, b))
	require.NoError(t, fans.Delete(ctx, b, a))
	n, err = fans.CountFans(ctx, b)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUserCreateAndSearch(t *testing.T) {
	db := setupDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &model.User{UserName: "kim", NickName: "Kimmy", Password: "x"}))
	assert.ErrorIs(t, users.Create(ctx, &model.User{UserName: "kim", Password: "y"}), ErrDuplicate)
	require.NoError(t, users.Create(ctx, &model.User{UserName: "lee", NickName: "Kimlee", Password: "x"}))

	_, err := users.FindByName(ctx, "park")
	assert.ErrorIs(t, err, ErrNotFound)

	found, total, err := users.Search(ctx, "Kim", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, found, 2)
}

func TestLikeCounters(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, 2)
	post := &model.Post{AuthorID: users[0].ID, Body: "b"}
	require.NoError(t, db.Create(post).Error)
	posts := NewPostRepository(db)
	ctx := context.Background()

	created, err := posts.Like(ctx, post.ID, users[1].ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = posts.Like(ctx, post.ID, users[1].ID)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCnt)

	liked, err := posts.LikedSet(ctx, users[1].ID, []int64{post.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{post.ID: true}, liked)

	removed, err := posts.Unlike(ctx, post.ID, users[1].ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = posts.Unlike(ctx, post.ID, users[1].ID)
	require.NoError(t, err)
	assert.False(t, removed)

	got, err = posts.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikeCnt)

	require.NoError(t, posts.Delete(ctx, post.ID))
	assert.ErrorIs(t, posts.Delete(ctx, post.ID), ErrNotFound)
}

func TestTimelineOrder(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, 2)
	posts := NewPostRepository(db)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		p := &model.Post{AuthorID: users[0].ID, Body: fmt.Sprint(i)}
		require.NoError(t, db.Create(p).Error)
		require.NoError(t, db.Create(&model.Inbox{ID: fmt.Sprint("ib", i), UserID: users[1].ID, PostID: p.ID, Score: p.ID}).Error)
	}

	got, total, err := posts.Timeline(ctx, users[1].ID, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Body)
	assert.Equal(t, "1", got[1].Body)
}

func TestChatUnread(t *testing.T) {
	db := setupDB(t)
	users := seedUsers(t, db, 2)
	chats := NewChatRepository(db)
	ctx := context.Background()
	a, b := users[0].ID, users[1].ID

	room := &model.ChatRoom{CreatorID: a, JoinerID: b}
	require.NoError(t, chats.CreateRoom(ctx, room))
	found, err := chats.FindRoomBetween(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, room.ID, found.ID)

	for i, sender := range []int64{a, a, b} {
		require.NoError(t, chats.SaveMessage(ctx, &model.ChatMessage{
			ID: fmt.Sprint("m", i), RoomID: room.ID, SenderID: sender, Content: fmt.Sprint(i), SendDate: int64(100 + i),
		}))
	}
	n, err := chats.UnreadCount(ctx, room.ID, b)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, chats.MarkRead(ctx, room.ID, b, 100))
	require.NoError(t, chats.MarkRead(ctx, room.ID, b, 50), "read position never moves back")
	n, err = chats.UnreadCount(ctx, room.ID, b)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	last, err := chats.LastMessage(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", last.Content)

	rooms, err := chats.ListRooms(ctx, b, 0, 10)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
	ok, err := chats.IsMember(ctx, room.ID, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func BenchmarkFollowWrite_And_FanRedundancy(b *testing.B) {
	db := setupDB(b)
	followRepo := NewFollowRepository(db)
	fanRepo := NewFanRepository(db)
	ctx := context.Background()
	users := seedUsers(b, db, 1000)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := users[rng.Intn(len(users))].ID
		to := users[rng.Intn(len(users))].ID
		if from == to {
			continue
		}
		_ = followRepo.Create(ctx, from, to)
		_ = fanRepo.Create(ctx, to, from)
	}
}
