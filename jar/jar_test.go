package jar

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/focusflow/internal/util"
	"github.com/jmcleod/focusflow/storage"
	"github.com/jmcleod/focusflow/storage/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestJar(t *testing.T, repo storage.Repository, key []byte, clock *fakeClock) *Jar {
	t.Helper()
	j, err := New(repo, util.CopyBytes(key), WithClock(clock.Now))
	require.NoError(t, err)
	return j
}

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := NewEphemeralKey()
	require.NoError(t, err)
	return key
}

func TestJarSetGetRemove(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	j := newTestJar(t, memory.NewRepository(), testKey(t), clock)

	err := j.Set(&http.Cookie{
		Name:     "refreshToken",
		Value:    "r-1",
		Expires:  clock.Now().Add(7 * 24 * time.Hour),
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	require.NoError(t, err)

	c, err := j.Get("refreshToken")
	require.NoError(t, err)
	assert.Equal(t, "r-1", c.Value)
	assert.Equal(t, "/", c.Path, "path defaults to /")
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	require.NoError(t, j.Set(&http.Cookie{Name: "refreshToken", Value: "r-2", MaxAge: 60}))
	c, err = j.Get("refreshToken")
	require.NoError(t, err)
	assert.Equal(t, "r-2", c.Value, "last write wins")
	assert.True(t, clock.Now().Add(time.Minute).Equal(c.Expires), "MaxAge is converted to an absolute expiry")

	require.NoError(t, j.Remove("refreshToken"))
	_, err = j.Get("refreshToken")
	assert.ErrorIs(t, err, ErrNoCookie)

	assert.NoError(t, j.Remove("refreshToken"), "removing a missing cookie is not an error")
	assert.NoError(t, j.Remove("never-set"))
}

func TestJarExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	repo := memory.NewRepository()
	j := newTestJar(t, repo, testKey(t), clock)

	require.NoError(t, j.Set(&http.Cookie{Name: "accessToken", Value: "a", Expires: clock.Now().Add(24 * time.Hour)}))

	clock.Advance(23 * time.Hour)
	_, err := j.Get("accessToken")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = j.Get("accessToken")
	assert.ErrorIs(t, err, ErrNoCookie)

	_, err = repo.Get(defaultBucket, "accessToken")
	assert.ErrorIs(t, err, storage.ErrNotFound, "expired cookie is deleted on read")

	t.Run("ExpiredOnWriteRemoves", func(t *testing.T) {
		require.NoError(t, j.Set(&http.Cookie{Name: "x", Value: "1", MaxAge: 10}))
		require.NoError(t, j.Set(&http.Cookie{Name: "x", Value: "2", Expires: clock.Now().Add(-time.Second)}))
		_, err := j.Get("x")
		assert.ErrorIs(t, err, ErrNoCookie)
	})

	t.Run("NegativeMaxAgeRemoves", func(t *testing.T) {
		require.NoError(t, j.Set(&http.Cookie{Name: "y", Value: "1", MaxAge: 10}))
		require.NoError(t, j.Set(&http.Cookie{Name: "y", MaxAge: -1}))
		_, err := j.Get("y")
		assert.ErrorIs(t, err, ErrNoCookie)
	})
}

func TestJarSealsValuesAtRest(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	repo := memory.NewRepository()
	j := newTestJar(t, repo, testKey(t), clock)

	require.NoError(t, j.Set(&http.Cookie{Name: "refreshToken", Value: "super-secret-refresh", MaxAge: 3600}))

	env, err := repo.Get(defaultBucket, "refreshToken")
	require.NoError(t, err)
	assert.False(t, bytes.Contains(env.Ciphertext, []byte("super-secret-refresh")))

	other := newTestJar(t, repo, testKey(t), clock)
	_, err = other.Get("refreshToken")
	assert.ErrorIs(t, err, ErrNoCookie, "a jar with a different key cannot read the cookie")
}

type undeletableRepo struct{ storage.Repository }

func (undeletableRepo) Delete(string, string) error { return errors.New("disk full") }

func TestJarLogsFailedDiscard(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	repo := memory.NewRepository()
	require.NoError(t, newTestJar(t, repo, testKey(t), clock).Set(&http.Cookie{Name: "accessToken", Value: "a", MaxAge: 60}))

	var logs bytes.Buffer
	j, err := New(undeletableRepo{repo}, testKey(t), WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)

	_, err = j.Get("accessToken")
	assert.ErrorIs(t, err, ErrNoCookie)
	assert.Contains(t, logs.String(), "deleting unreadable cookie failed")
	assert.Contains(t, logs.String(), "disk full")
}

func TestJarBatchIsAtomic(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	j := newTestJar(t, memory.NewRepository(), testKey(t), clock)

	require.NoError(t, j.Set(&http.Cookie{Name: "accessToken", Value: "old-a", MaxAge: 60}))

	boom := errors.New("boom")
	err := j.Batch(func(tx *Tx) error {
		if err := tx.Set(&http.Cookie{Name: "accessToken", Value: "new-a", MaxAge: 60}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	c, err := j.Get("accessToken")
	require.NoError(t, err)
	assert.Equal(t, "old-a", c.Value)

	err = j.Batch(func(tx *Tx) error {
		if err := tx.Set(&http.Cookie{Name: "accessToken", Value: "new-a", MaxAge: 60}); err != nil {
			return err
		}
		return tx.Set(&http.Cookie{Name: "refreshToken", Value: "new-r", MaxAge: 60})
	})
	require.NoError(t, err)

	all, err := j.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "accessToken", all[0].Name)
	assert.Equal(t, "new-a", all[0].Value)
	assert.Equal(t, "refreshToken", all[1].Name)
}

func TestJarRejectsInvalidInput(t *testing.T) {
	_, err := New(nil, make([]byte, 32))
	assert.Error(t, err)

	_, err = New(memory.NewRepository(), []byte("short"))
	assert.Error(t, err)

	j := newTestJar(t, memory.NewRepository(), testKey(t), &fakeClock{t: time.Now()})
	assert.ErrorIs(t, j.Set(&http.Cookie{Value: "no-name"}), ErrInvalidCookie)
	assert.ErrorIs(t, j.Set(nil), ErrInvalidCookie)
}

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "jar.key")

	k1, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Len(t, k1, util.AESKeySize)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	k2, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "the same seed derives the same key")

	seed, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, seed, k1, "the stored seed is not the jar key itself")

	bad := filepath.Join(t.TempDir(), "bad.key")
	require.NoError(t, os.WriteFile(bad, []byte("short"), 0o600))
	_, err = LoadOrCreateKey(bad)
	assert.Error(t, err)
}
