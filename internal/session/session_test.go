package session

import (
	"context"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := gojwt.RegisteredClaims{Subject: "kim"}
	if !exp.IsZero() {
		claims.ExpiresAt = gojwt.NewNumericDate(exp)
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return tok
}

func TestLoginTokenLogout(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	_, err := m.Token(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, m.UserName())

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, exp)
	id, err := m.Login(ctx, tok, "kim")
	require.NoError(t, err)
	assert.True(t, exp.Equal(id.ExpiresAt))

	got, err := m.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok, got)
	assert.Equal(t, "kim", m.UserName())

	require.NoError(t, m.Logout(ctx))
	_, err = m.Token(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, ok := m.Identity()
	assert.False(t, ok)
}

func TestTokenExpires(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())
	now := time.Now()
	m.now = func() time.Time { return now }

	_, err := m.Login(ctx, signed(t, now.Add(time.Minute)), "kim")
	require.NoError(t, err)
	_, err = m.Token(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.Token(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestOpaqueTokenNeverExpires(t *testing.T) {
	m := NewManager(NewMemoryStore())
	id, err := m.Login(context.Background(), "not-a-jwt", "kim")
	require.NoError(t, err)
	assert.True(t, id.ExpiresAt.IsZero())
	assert.False(t, id.Expired(time.Now().Add(1000*time.Hour)))
}

func TestLoginRequiresFields(t *testing.T) {
	m := NewManager(NewMemoryStore())
	_, err := m.Login(context.Background(), " ", "kim")
	assert.Error(t, err)
	_, err = m.Login(context.Background(), "tok", "")
	assert.Error(t, err)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := NewManager(store).Restore(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	first := NewManager(store)
	_, err = first.Login(ctx, signed(t, time.Now().Add(time.Hour)), "lee")
	require.NoError(t, err)

	second := NewManager(store)
	id, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lee", id.UserName)
	assert.Equal(t, "lee", second.UserName())
}

func TestRestoreDropsExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, Identity{Token: "t", UserName: "kim", ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err := NewManager(store).Restore(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	left, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, left)
}
