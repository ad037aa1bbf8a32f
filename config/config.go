package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置（客户端 SDK、CLI 与开发后端共用）
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Paging   PagingConfig   `mapstructure:"paging"`
	Live     LiveConfig     `mapstructure:"live"`
	Session  SessionConfig  `mapstructure:"session"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	StompURL  string        `mapstructure:"stomp_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // req/sec, 0 = unlimited
	RateBurst int           `mapstructure:"rate_burst"`
}

// PagingConfig 各列表的每页条数
type PagingConfig struct {
	FeedSize        int `mapstructure:"feed_size"`
	CommentSize     int `mapstructure:"comment_size"`
	ProfilePostSize int `mapstructure:"profile_post_size"`
	FollowSize      int `mapstructure:"follow_size"`
	AlarmSize       int `mapstructure:"alarm_size"`
	SearchSize      int `mapstructure:"search_size"`
	ChatSize        int `mapstructure:"chat_size"`
	ChatRoomSize    int `mapstructure:"chat_room_size"`
}

type LiveConfig struct {
	HandshakeTimeout time.Duration   `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration   `mapstructure:"write_timeout"`
	ReceiptTimeout   time.Duration   `mapstructure:"receipt_timeout"`
	BinaryFrames     bool            `mapstructure:"binary_frames"`
	Reconnect        ReconnectConfig `mapstructure:"reconnect"`
}

type ReconnectConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
}

type SessionConfig struct {
	Store     string `mapstructure:"store"` // memory | database | redis
	RedisAddr string `mapstructure:"redis_addr"`
	RedisKey  string `mapstructure:"redis_key"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	OTLPEndpoint string        `mapstructure:"otlp_endpoint"`

	// 0 表示同步写粉丝表 / 同步扇出
	ReplicaWorkers int           `mapstructure:"replica_workers"`
	FanoutWorkers  int           `mapstructure:"fanout_workers"`
	CacheAddr      string        `mapstructure:"cache_addr"` // 粉丝列表缓存，空表示不启用
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

const envPrefix = "FEEDSYNC"

// Load 读取 config.yaml（可选）并叠加 FEEDSYNC_* 环境变量
func Load() (*Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom 使用调用方提供的 viper 实例，便于测试注入
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8089/api/v1")
	v.SetDefault("api.stomp_url", "ws://localhost:8089")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.rate_burst", 1)

	v.SetDefault("paging.feed_size", 10)
	v.SetDefault("paging.comment_size", 10)
	v.SetDefault("paging.profile_post_size", 9)
	v.SetDefault("paging.follow_size", 20)
	v.SetDefault("paging.alarm_size", 20)
	v.SetDefault("paging.search_size", 20)
	v.SetDefault("paging.chat_size", 10)
	v.SetDefault("paging.chat_room_size", 10)

	v.SetDefault("live.handshake_timeout", 5*time.Second)
	v.SetDefault("live.write_timeout", 5*time.Second)
	v.SetDefault("live.receipt_timeout", 2*time.Second)
	v.SetDefault("live.binary_frames", true)
	v.SetDefault("live.reconnect.enabled", false)
	v.SetDefault("live.reconnect.initial_interval", 500*time.Millisecond)
	v.SetDefault("live.reconnect.max_interval", 30*time.Second)
	v.SetDefault("live.reconnect.max_attempts", 8)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.redis_key", "feedsync:session")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "feedsync.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.addr", ":8089")
	v.SetDefault("server.jwt_secret", "dev-secret")
	v.SetDefault("server.token_ttl", 24*time.Hour)
	v.SetDefault("server.replica_workers", 0)
	v.SetDefault("server.fanout_workers", 0)
	v.SetDefault("server.cache_ttl", 5*time.Minute)

	v.SetDefault("sentry.environment", "development")
}

// Validate 校验必填项与取值范围
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api.base_url is required")
	}
	sizes := map[string]int{
		"paging.feed_size":         c.Paging.FeedSize,
		"paging.comment_size":      c.Paging.CommentSize,
		"paging.profile_post_size": c.Paging.ProfilePostSize,
		"paging.follow_size":       c.Paging.FollowSize,
		"paging.alarm_size":        c.Paging.AlarmSize,
		"paging.search_size":       c.Paging.SearchSize,
		"paging.chat_size":         c.Paging.ChatSize,
		"paging.chat_room_size":    c.Paging.ChatRoomSize,
	}
	for key, size := range sizes {
		if size <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", key, size)
		}
	}
	switch c.Session.Store {
	case "memory", "database", "redis":
	default:
		return fmt.Errorf("config: unknown session.store %q", c.Session.Store)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown database.driver %q", c.Database.Driver)
	}
	return nil
}
