package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/pkg/logger"
)

// ErrNoSession is returned when no user is logged in or the token expired.
var ErrNoSession = errors.New("session: not logged in")

// Identity is the persisted credential pair. ExpiresAt is zero when the
// token carries no exp claim.
type Identity struct {
	Token     string    `json:"token"`
	UserName  string    `json:"userName"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Store persists at most one Identity. Load returns (nil, nil) when empty.
type Store interface {
	Load(ctx context.Context) (*Identity, error)
	Save(ctx context.Context, id Identity) error
	Clear(ctx context.Context) error
}

// Manager owns the process-wide session. Only Login, Logout and Restore
// change it; everything else reads.
type Manager struct {
	store Store
	now   func() time.Time
	log   *zap.Logger

	mu  sync.RWMutex
	cur *Identity
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		log:   logger.Named("session"),
	}
}

// Login records a freshly issued token. The signature is not checked here;
// only the exp claim is read.
func (m *Manager) Login(ctx context.Context, token, userName string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" || userName == "" {
		return Identity{}, errors.New("session: token and user name are required")
	}
	id := Identity{Token: token, UserName: userName}
	if exp, err := expiry(token); err != nil {
		m.log.Debug("token has no readable expiry", zap.Error(err))
	} else {
		id.ExpiresAt = exp
	}

	if err := m.store.Save(ctx, id); err != nil {
		return Identity{}, fmt.Errorf("save session: %w", err)
	}
	m.mu.Lock()
	m.cur = &id
	m.mu.Unlock()
	m.log.Info("logged in", zap.String("user", userName))
	return id, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.cur = nil
	m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Restore loads a previously saved identity. Expired ones are cleared.
func (m *Manager) Restore(ctx context.Context) (Identity, error) {
	id, err := m.store.Load(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("load session: %w", err)
	}
	if id == nil {
		return Identity{}, ErrNoSession
	}
	if id.Expired(m.now()) {
		if err := m.store.Clear(ctx); err != nil {
			m.log.Warn("clear expired session", zap.Error(err))
		}
		return Identity{}, fmt.Errorf("%w: token expired at %s", ErrNoSession, id.ExpiresAt.Format(time.RFC3339))
	}
	m.mu.Lock()
	m.cur = id
	m.mu.Unlock()
	return *id, nil
}

// Token returns the bearer token for private calls.
func (m *Manager) Token(context.Context) (string, error) {
	m.mu.RLock()
	cur := m.cur
	m.mu.RUnlock()
	if cur == nil {
		return "", ErrNoSession
	}
	if cur.Expired(m.now()) {
		return "", fmt.Errorf("%w: token expired", ErrNoSession)
	}
	return cur.Token, nil
}

// UserName is empty when logged out.
func (m *Manager) UserName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return ""
	}
	return m.cur.UserName
}

func (m *Manager) Identity() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cur == nil {
		return Identity{}, false
	}
	return *m.cur, true
}

func expiry(token string) (time.Time, error) {
	parsed, _, err := gojwt.NewParser().ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
