// Package backendtest starts an in-memory dev backend for integration tests.
package backendtest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/config"
	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/backend"
	"github.com/d60-Lab/feedsync/internal/live"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/pkg/database"
)

// Env is one isolated backend: its own sqlite database and HTTP server.
type Env struct {
	Server  *backend.Server
	HTTP    *httptest.Server
	DB      *gorm.DB
	Redis   *miniredis.Miniredis // nil unless WithFollowerCache
	BaseURL string               // .../api/v1
	LiveURL string               // ws://.../chat
}

type options struct {
	cfg   config.ServerConfig
	cache bool
}

type Option func(*options)

// WithAsyncWorkers runs the fan replicator and fanout worker in the background.
func WithAsyncWorkers(replica, fanout int) Option {
	return func(o *options) {
		o.cfg.ReplicaWorkers = replica
		o.cfg.FanoutWorkers = fanout
	}
}

// WithFollowerCache backs follower lists with a miniredis index.
func WithFollowerCache() Option {
	return func(o *options) { o.cache = true }
}

func Start(t testing.TB, opts ...Option) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := options{cfg: config.ServerConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)

	env := &Env{DB: db}
	var rdb *redis.Client
	if o.cache {
		env.Redis = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: env.Redis.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	srv, err := backend.New(o.cfg, db, rdb)
	require.NoError(t, err)
	srv.Start()
	env.Server = srv
	env.HTTP = httptest.NewServer(srv.Handler())
	env.BaseURL = env.HTTP.URL + "/api/v1"
	env.LiveURL = "ws" + strings.TrimPrefix(env.HTTP.URL, "http") + live.Endpoint

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		env.HTTP.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return env
}

// Token is a fixed bearer token source.
type Token string

func (t Token) Token(context.Context) (string, error) { return string(t), nil }

// Client returns an API client that authenticates with tok ("" for public calls only).
func (e *Env) Client(tok string) *api.Client {
	if tok == "" {
		return api.New(e.BaseURL, nil)
	}
	return api.New(e.BaseURL, Token(tok))
}

// User registers name (password "pass") and returns its JWT.
func (e *Env) User(t testing.TB, name string) string {
	t.Helper()
	ctx := context.Background()
	c := e.Client("")
	_, err := c.Join(ctx, model.JoinRequest{UserName: name, NickName: name, Password: "pass", Confirm: "pass"})
	require.NoError(t, err)
	tok, err := c.Login(ctx, model.LoginRequest{UserName: name, Password: "pass"})
	require.NoError(t, err)
	return tok
}

// Post publishes body as the holder of tok.
func (e *Env) Post(t testing.TB, tok, body string) {
	t.Helper()
	require.NoError(t, e.Client(tok).CreatePost(context.Background(), model.PostCreateRequest{Body: body}))
}

// Follow makes the holder of tok follow name.
func (e *Env) Follow(t testing.TB, tok, name string) {
	t.Helper()
	require.NoError(t, e.Client(tok).Follow(context.Background(), name))
}
