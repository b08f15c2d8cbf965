package sessionx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	_, ok, err := s.Get("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("auth_token", "a.b.c"))
	v, ok, err := s.Get("auth_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.b.c", v)

	require.NoError(t, s.Set("auth_token", "d.e.f"))
	v, _, err = s.Get("auth_token")
	require.NoError(t, err)
	assert.Equal(t, "d.e.f", v)

	require.NoError(t, s.Remove("auth_token"))
	require.NoError(t, s.Remove("auth_token"))
	_, ok, err = s.Get("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage(nil))

	seed := map[string]string{"token": "x.y.z"}
	s := NewMemoryStorage(seed)
	seed["token"] = "changed"
	v, _, err := s.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "x.y.z", v)
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "storage.json")
	exerciseStorage(t, NewFileStorage(path))

	t.Run("shared between instances", func(t *testing.T) {
		a := NewFileStorage(path)
		b := NewFileStorage(path)
		require.NoError(t, a.Set("token", "1.2.3"))
		v, ok, err := b.Get("token")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "1.2.3", v)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("corrupt file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "storage.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
		_, _, err := NewFileStorage(bad).Get("token")
		assert.Equal(t, ErrCodeStorageUnavailable, CodeOf(err))
	})
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStorage(t *testing.T) {
	mr, client := newMiniRedis(t)
	s := NewRedisStorage(client, "sessionx:")
	exerciseStorage(t, s)

	require.NoError(t, s.Set("token", "r.e.d"))
	got, err := mr.Get("sessionx:token")
	require.NoError(t, err)
	assert.Equal(t, "r.e.d", got)

	require.NoError(t, s.SetWithTTL("short", "v", time.Minute))
	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get("short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorage_Unavailable(t *testing.T) {
	mr, client := newMiniRedis(t)
	s := NewRedisStorage(client, "")
	mr.Close()

	_, _, err := s.Get("token")
	assert.Equal(t, ErrCodeStorageUnavailable, CodeOf(err))
	assert.Equal(t, ErrCodeStorageUnavailable, CodeOf(s.Set("token", "v")))
}

func TestStorageCookieStore_Expiry(t *testing.T) {
	clock := newFakeClock()
	store := NewStorageCookieStore(NewMemoryStorage(nil), clock)
	opts := CookieOptions{}

	require.NoError(t, store.SetCookie(opts.Cookie("auth_token", "v", clock.Now().Add(time.Hour))))
	v, ok, err := store.Cookie("auth_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(time.Hour)
	_, ok, err = store.Cookie("auth_token")
	require.NoError(t, err)
	assert.False(t, ok, "cookie is gone at its expiry instant")

	require.NoError(t, store.SetCookie(opts.Cookie("auth_token", "w", clock.Now().Add(time.Hour))))
	require.NoError(t, store.SetCookie(opts.Expired("auth_token")))
	_, ok, err = store.Cookie("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageCookieStore_RedisTTL(t *testing.T) {
	mr, client := newMiniRedis(t)
	clock := newFakeClock()
	store := NewStorageCookieStore(NewRedisStorage(client, "app:"), clock)

	require.NoError(t, store.SetCookie(CookieOptions{}.Cookie("auth_token", "v", clock.Now().Add(DefaultCookieTTL))))
	assert.Equal(t, DefaultCookieTTL, mr.TTL("app:"+cookieKey("auth_token")))
}

func TestJarCookieStore(t *testing.T) {
	store, err := NewJarCookieStore("https://app.example.com")
	require.NoError(t, err)

	opts := CookieOptions{Secure: true}
	require.NoError(t, store.SetCookie(opts.Cookie("auth_token", "a.b.c", time.Now().Add(time.Hour))))
	v, ok, err := store.Cookie("auth_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.b.c", v)

	require.NoError(t, store.SetCookie(opts.Expired("auth_token")))
	_, ok, err = store.Cookie("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewJarCookieStore("/relative")
	assert.Error(t, err)
}

func TestCookieOptions_Defaults(t *testing.T) {
	expires := epoch.Add(DefaultCookieTTL)
	c := CookieOptions{}.Cookie("auth_token", "v", expires)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, expires, c.Expires)
	assert.False(t, c.Secure)

	del := CookieOptions{Domain: "example.com"}.Expired("auth_token")
	assert.Equal(t, -1, del.MaxAge)
	assert.Equal(t, "example.com", del.Domain)
	assert.Empty(t, del.Value)
}
