package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/config"
)

// NewStore picks the backend named by cfg.Store. db is only needed for "database".
func NewStore(cfg config.SessionConfig, db *gorm.DB) (Store, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(), nil
	case "database":
		if db == nil {
			return nil, errors.New("session: database store needs a db")
		}
		return NewDBStore(db)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisStore(client, cfg.RedisKey), nil
	default:
		return nil, fmt.Errorf("session: unknown store %q", cfg.Store)
	}
}

type MemoryStore struct {
	mu sync.Mutex
	id *Identity
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(context.Context) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == nil {
		return nil, nil
	}
	cp := *s.id
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, id Identity) error {
	s.mu.Lock()
	s.id = &id
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.id = nil
	s.mu.Unlock()
	return nil
}

// sessionRow 单行表，id 固定为 1
type sessionRow struct {
	ID        uint `gorm:"primaryKey"`
	Token     string
	UserName  string `gorm:"size:64"`
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "client_sessions" }

const sessionRowID = 1

type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) (*DBStore, error) {
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate session table: %w", err)
	}
	return &DBStore{db: db}, nil
}

func (s *DBStore) Load(ctx context.Context) (*Identity, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, sessionRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id := &Identity{Token: row.Token, UserName: row.UserName}
	if row.ExpiresAt != nil {
		id.ExpiresAt = *row.ExpiresAt
	}
	return id, nil
}

func (s *DBStore) Save(ctx context.Context, id Identity) error {
	row := sessionRow{ID: sessionRowID, Token: id.Token, UserName: id.UserName}
	if !id.ExpiresAt.IsZero() {
		exp := id.ExpiresAt
		row.ExpiresAt = &exp
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *DBStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Delete(&sessionRow{}, sessionRowID).Error
}

// RedisStore keeps the identity as JSON under one key; the key expires with the token.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "feedsync:session"
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

func (s *RedisStore) Load(ctx context.Context) (*Identity, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &id, nil
}

func (s *RedisStore) Save(ctx context.Context, id Identity) error {
	payload, err := json.Marshal(id)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if !id.ExpiresAt.IsZero() {
		ttl = id.ExpiresAt.Sub(s.now())
		if ttl <= 0 {
			return s.Clear(ctx)
		}
	}
	return s.client.Set(ctx, s.key, payload, ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
