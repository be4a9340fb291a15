package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/model"
	"storefront/internal/storage"
)

func TestLoginStoresTokenAndUser(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := NewStore(kv, "client-a", 0)

	user := &model.User{ID: "1", Username: "admin123", Roles: model.Roles{"ADMIN"}}
	require.NoError(t, s.Login(ctx, user, "abc.def.ghi"))

	token, err := s.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	got, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	raw, err := kv.Get(ctx, "client-a:token")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", raw)
}

func TestLoginRequiresToken(t *testing.T) {
	s := NewStore(storage.NewMemoryKV(), "client-a", 0)
	assert.Error(t, s.Login(context.Background(), &model.User{Username: "x"}, ""))
}

func TestLoginWithoutUserDropsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	first := NewStore(kv, "client-a", 0)
	require.NoError(t, first.Login(ctx, &model.User{Username: "old"}, "t1"))

	second := NewStore(kv, "client-a", 0)
	require.NoError(t, second.Login(ctx, nil, "t2"))

	reloaded := NewStore(kv, "client-a", 0)
	user, err := reloaded.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, reloaded.SetUser(ctx, &model.User{Username: "new"}))
	user, err = NewStore(kv, "client-a", 0).CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "new", user.Username)
}

func TestLogoutClearsTokenAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryKV(), "client-a", 0)
	require.NoError(t, s.Login(ctx, &model.User{Username: "u"}, "tok"))

	require.NoError(t, s.Logout(ctx))
	require.NoError(t, s.Logout(ctx))

	token, err := s.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	user, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCurrentTokenRereadsStorage(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := NewStore(kv, "client-a", 0)
	require.NoError(t, s.Login(ctx, &model.User{Username: "u"}, "tok"))

	// storage cleared behind the store's back
	require.NoError(t, kv.Delete(ctx, "client-a:token"))

	token, err := s.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	user, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user, "no token means no user even with a cached snapshot")
}

func TestSetUserIgnoredWhenAnonymous(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	s := NewStore(kv, "client-a", 0)

	require.NoError(t, s.SetUser(ctx, &model.User{Username: "ghost"}))

	_, err := kv.Get(ctx, "client-a:user")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()

	a := NewStore(kv, "client-a", 0)
	b := NewStore(kv, "client-b", 0)
	require.NoError(t, a.Login(ctx, nil, "token-a"))

	ok, err := b.Authenticated(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.Authenticated(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewStore(storage.NewRedisKV(client), "client-a", DefaultTTL)
	require.NoError(t, s.Login(ctx, &model.User{Username: "u"}, "tok"))

	assert.Equal(t, DefaultTTL, mr.TTL("storefront:client-a:token"))

	mr.FastForward(DefaultTTL + time.Second)

	token, err := s.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestGenerateIDIsValid(t *testing.T) {
	id, err := GenerateID()
	require.NoError(t, err)
	assert.True(t, ValidID(id))

	other, err := GenerateID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	assert.False(t, ValidID(""))
	assert.False(t, ValidID("short"))
	assert.False(t, ValidID("../../etc/passwd"))
}

func TestSetCookieDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "abc", CookieOptions{Secure: true})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int(DefaultTTL.Seconds()), c.MaxAge)
}
