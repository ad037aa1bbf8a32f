package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

type fixedToken string

func (t fixedToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("logged out")
	}
	return string(t), nil
}

type recorder struct {
	hits atomic.Int32
	last *http.Request
	body []byte
}

// serve answers every request with status and payload (JSON encoded unless raw string).
func serve(t *testing.T, status int, payload any) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.hits.Add(1)
		rec.last = r
		if r.Body != nil {
			rec.body, _ = io.ReadAll(r.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if s, ok := payload.(string); ok {
			_, _ = w.Write([]byte(s))
			return
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func success(result any) map[string]any {
	return map[string]any{"resultCode": "SUCCESS", "result": result}
}

func TestFollowingFeedDecodesPage(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, success(map[string]any{
		"content": []map[string]any{{"postId": 1, "likeCnt": 5}, {"postId": 2}},
		"number":  0,
		"last":    false,
	}))
	c := New(srv.URL+"/api/v1", fixedToken("tkn"))

	page, err := c.FollowingFeed(context.Background(), paging.Request{Page: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, page.Items(), 2)
	assert.Equal(t, 5, page.Items()[0].LikeCnt)
	assert.True(t, page.HasMore())

	assert.Equal(t, "/api/v1/posts/following", rec.last.URL.Path)
	assert.Equal(t, "0", rec.last.URL.Query().Get("page"))
	assert.Equal(t, "10", rec.last.URL.Query().Get("size"))
	assert.Equal(t, "Bearer tkn", rec.last.Header.Get("Authorization"))
}

func TestPrivateCallWithoutTokenNeverHitsNetwork(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, success(nil))
	c := New(srv.URL, fixedToken(""))

	err := c.Like(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, rec.hits.Load())

	_, err = New(srv.URL, nil).MyInfo(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPublicCallHasNoAuthorization(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, success(map[string]any{"userName": "kim", "followerCount": 3}))
	c := New(srv.URL, fixedToken("tkn"))

	u, err := c.User(context.Background(), "kim")
	require.NoError(t, err)
	assert.Equal(t, 3, u.FollowerCount)
	assert.Empty(t, rec.last.Header.Get("Authorization"))
	assert.Equal(t, "/users/kim", rec.last.URL.Path)
}

func TestBusinessErrorRendering(t *testing.T) {
	srv, _ := serve(t, http.StatusConflict, map[string]any{
		"resultCode": "ERROR",
		"result":     map[string]string{"errorCode": "DUPLICATED_USER_NAME", "message": "kim is taken"},
	})
	c := New(srv.URL, nil)

	_, err := c.Join(context.Background(), model.JoinRequest{UserName: "kim", NickName: "k", Password: "pass", Confirm: "pass"})
	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "DUPLICATED_USER_NAME: kim is taken", err.Error())
	assert.Equal(t, http.StatusConflict, be.Status)
	assert.Equal(t, "DUPLICATED_USER_NAME", Code(err))
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestErrorEnvelopeWithOKStatus(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, map[string]any{
		"resultCode": "ERROR",
		"result":     map[string]string{"errorCode": "POST_NOT_FOUND", "message": "no post"},
	})
	c := New(srv.URL, fixedToken("t"))

	_, err := c.Post(context.Background(), 9)
	assert.EqualError(t, err, "POST_NOT_FOUND: no post")
	assert.EqualError(t, c.DeletePost(context.Background(), 9), "POST_NOT_FOUND: no post")
}

func TestUnauthorizedStatus(t *testing.T) {
	srv, _ := serve(t, http.StatusUnauthorized, "")
	c := New(srv.URL, fixedToken("expired"))
	_, err := c.Alarms(context.Background(), paging.Request{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	srv, _ = serve(t, http.StatusForbidden, map[string]any{
		"resultCode": "ERROR",
		"result":     map[string]string{"errorCode": "INVALID_PERMISSION", "message": "not yours"},
	})
	c = New(srv.URL, fixedToken("t"))
	err = c.DeleteComment(context.Background(), 3)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualError(t, err, "INVALID_PERMISSION: not yours")
}

func TestPlainServerError(t *testing.T) {
	srv, _ := serve(t, http.StatusBadGateway, "<html>bad gateway</html>")
	_, err := New(srv.URL, nil).User(context.Background(), "kim")
	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "HTTP_502", be.Code)
}

func TestTransportError(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, success(nil))
	srv.Close()

	_, err := New(srv.URL, nil).User(context.Background(), "kim")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.MethodGet, te.Method)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(srv.URL, nil).User(ctx, "kim")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidationBeforeNetwork(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, success(nil))
	c := New(srv.URL, fixedToken("t"))

	err := c.AddComment(context.Background(), 1, model.CommentRequest{Comment: ""})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "comment", ve.Field)
	assert.Equal(t, "required", ve.Rule)

	_, err = c.Join(context.Background(), model.JoinRequest{UserName: "kim", NickName: "k", Password: "pass", Confirm: "other"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "eqfield", ve.Rule)

	assert.Zero(t, rec.hits.Load())
}

func TestJoinDoesNotSendConfirmation(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, success(map[string]any{"userId": 4, "userName": "kim"}))
	res, err := New(srv.URL, nil).Join(context.Background(), model.JoinRequest{UserName: "kim", NickName: "k", Password: "pass", Confirm: "pass"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.UserID)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(rec.body, &sent))
	assert.Equal(t, map[string]any{"userName": "kim", "nickName": "k", "password": "pass"}, sent)
}

func TestLoginReturnsJWT(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, success(map[string]string{"jwt": "a.b.c"}))
	tok, err := New(srv.URL, nil).Login(context.Background(), model.LoginRequest{UserName: "kim", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok)
	assert.Equal(t, http.MethodPost, rec.last.Method)
	assert.Equal(t, "application/json", rec.last.Header.Get("Content-Type"))
}

func TestFollowCheckBareBool(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, "true")
	ok, err := New(srv.URL, fixedToken("t")).FollowCheck(context.Background(), "lee")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/users/follow-check/lee", rec.last.URL.Path)
}

func TestChatHistoryFlattensGroups(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, success(map[string]any{
		"content": []map[string]any{
			{"userName": "kim", "chatList": []map[string]any{{"id": "1"}, {"id": "2"}}},
			{"userName": "lee", "chatList": []map[string]any{{"id": "3"}}},
		},
		"hasNext": true,
	}))
	w, err := New(srv.URL, fixedToken("t")).ChatHistory(context.Background(), 7, paging.Request{Size: 10})
	require.NoError(t, err)
	ids := []string{}
	for _, m := range w.Items() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	assert.True(t, w.HasMore())
}

func TestCommentsAndAlarmsSortNewest(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, success(map[string]any{"content": []any{}, "last": true}))
	c := New(srv.URL, fixedToken("t"))

	page, err := c.Comments(context.Background(), 3, paging.Request{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.False(t, page.HasMore())
	assert.Equal(t, SortNewest, rec.last.URL.Query().Get("sort"))
	assert.Equal(t, "/posts/3/comments", rec.last.URL.Path)

	_, err = c.Alarms(context.Background(), paging.Request{Size: 20})
	require.NoError(t, err)
	assert.Equal(t, SortNewest, rec.last.URL.Query().Get("sort"))
}

func TestSearchCarriesKeyword(t *testing.T) {
	srv, rec := serve(t, http.StatusOK, success(map[string]any{"content": []any{}, "last": true}))
	_, err := New(srv.URL, nil).SearchUsers(context.Background(), "ki m", paging.Request{Size: 20})
	require.NoError(t, err)
	assert.Equal(t, "ki m", rec.last.URL.Query().Get("keyword"))
}

func TestNullResultIsAnEmptyLastPage(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, success(nil))
	page, err := New(srv.URL, fixedToken("t")).MyFollowers(context.Background(), paging.Request{})
	require.NoError(t, err)
	assert.Empty(t, page.Items())
	assert.False(t, page.HasMore())
}

func TestRateLimitOption(t *testing.T) {
	c := New("http://x", nil, WithRateLimit(5, 0))
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())
	assert.Nil(t, New("http://x", nil, WithRateLimit(0, 3)).limiter)
}
