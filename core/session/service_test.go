package session_test

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

type mapCache struct {
	sessions map[string]session.Session
	gets     int
}

func newMapCache() *mapCache { return &mapCache{sessions: make(map[string]session.Session)} }

func (c *mapCache) GetSession(_ context.Context, key string) (session.Session, bool, error) {
	c.gets++
	sess, ok := c.sessions[key]
	return sess, ok, nil
}

func (c *mapCache) SetSession(_ context.Context, sess session.Session, ttl time.Duration) error {
	if ttl <= 0 {
		delete(c.sessions, sess.Key)
		return nil
	}
	c.sessions[sess.Key] = sess
	return nil
}

func (c *mapCache) DeleteSessions(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.sessions, k)
	}
	return nil
}

func newService(cache session.Cache) *session.Service {
	repo := inmemdb.NewSessionRepository(inmemdb.Open())
	if cache == nil {
		return session.NewService(repo, nil, session.NewCodec("secret"))
	}
	return session.NewService(repo, cache, session.NewCodec("secret"))
}

func TestService_SaveLoad(t *testing.T) {
	now := time.Date(2023, 10, 2, 12, 0, 0, 0, time.UTC)
	testutil.SetNow(t, now)
	ctx := context.Background()
	svc := newService(nil)

	key := session.NewKey()
	assert.Len(t, key, 32)

	meta := session.Meta{UserID: null.IntFrom(7), UserAgent: "curl/8.1.2", IP: "10.0.0.1"}
	sess, err := svc.Save(ctx, key, map[string]interface{}{session.UserIDKey: "7"}, now.Add(time.Hour), meta)
	require.NoError(t, err)
	assert.Equal(t, key, sess.Key)
	assert.Equal(t, null.IntFrom(7), sess.UserID)
	assert.Equal(t, "10.0.0.1", sess.IP.String)
	assert.Equal(t, now, sess.LastActivity)

	got, values, err := svc.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
	assert.Equal(t, "7", values[session.UserIDKey])

	detail := svc.Decoded(got)
	assert.True(t, detail.IsValid)
	assert.Equal(t, "curl", detail.Device)
	assert.Equal(t, "7", detail.Decoded[session.UserIDKey])

	t.Run("expired", func(t *testing.T) {
		testutil.SetNow(t, now.Add(time.Hour))
		_, _, err := svc.Load(ctx, key)
		assert.True(t, core.IsNotFound(err))
		assert.False(t, svc.Decoded(got).IsValid)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, _, err := svc.Load(ctx, "lol")
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("long user agent", func(t *testing.T) {
		ua := strings.Repeat("é", 150) + strings.Repeat("a", 100)
		sess, err := svc.Save(ctx, session.NewKey(), map[string]interface{}{"k": "v"}, now.Add(time.Hour), session.Meta{UserAgent: ua})
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(sess.UserAgent.String))
		assert.Equal(t, 200, utf8.RuneCountInString(sess.UserAgent.String))
		assert.Equal(t, ua[:len(sess.UserAgent.String)], sess.UserAgent.String)
	})

	t.Run("empty values delete", func(t *testing.T) {
		_, err := svc.Save(ctx, key, nil, now.Add(time.Hour), meta)
		require.NoError(t, err)
		_, err = svc.Get(ctx, key)
		assert.True(t, core.IsNotFound(err))
	})
}

func TestService_Query(t *testing.T) {
	now := time.Date(2023, 10, 2, 12, 0, 0, 0, time.UTC)
	testutil.SetNow(t, now)
	ctx := context.Background()
	svc := newService(nil)

	save := func(key string, userID int, ip string, expire time.Time) {
		_, err := svc.Save(ctx, key, map[string]interface{}{"k": "v"}, expire,
			session.Meta{UserID: null.NewInt(userID, userID != 0), IP: ip})
		require.NoError(t, err)
	}
	save("a", 1, "10.0.0.1", now.Add(time.Hour))
	save("b", 2, "192.168.1.5", now.Add(time.Hour))
	save("c", 0, "10.0.0.2", now.Add(-time.Minute))
	save("d", 1, "172.16.0.9", now) // expire_date == now: expired

	keys := func(filter session.Filter) []string {
		list, err := svc.Query(ctx, filter)
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, s := range list {
			out = append(out, s.Key)
		}
		return out
	}
	yes, no, one := true, false, 1

	assert.Equal(t, []string{"a", "b", "c", "d"}, keys(session.Filter{}))
	assert.Equal(t, []string{"a", "b"}, keys(session.Filter{Valid: &yes}))
	assert.Equal(t, []string{"c", "d"}, keys(session.Filter{Valid: &no}))
	assert.Equal(t, []string{"a", "d"}, keys(session.Filter{UserID: &one}))
	assert.Equal(t, []string{"a", "c"}, keys(session.Filter{Search: " 10.0.0 "}))
	assert.Equal(t, []string{"b"}, keys(session.Filter{Search: "192"}))
	assert.Equal(t, []string{"d"}, keys(session.Filter{Valid: &no, UserID: &one}))

	n, err := svc.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"a", "b"}, keys(session.Filter{}))

	n, err = svc.Delete(ctx, "a", "lol")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"b"}, keys(session.Filter{}))
}

func TestService_Cache(t *testing.T) {
	now := time.Date(2023, 10, 2, 12, 0, 0, 0, time.UTC)
	testutil.SetNow(t, now)
	ctx := context.Background()
	cache := newMapCache()
	svc := newService(cache)

	_, err := svc.Save(ctx, "k1", map[string]interface{}{"n": "1"}, now.Add(time.Hour), session.Meta{})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "k2", map[string]interface{}{"n": "2"}, now.Add(time.Minute), session.Meta{})
	require.NoError(t, err)
	assert.Len(t, cache.sessions, 2)

	_, values, err := svc.Load(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "1", values["n"])
	assert.Equal(t, 1, cache.gets)

	n, err := svc.Delete(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, cache.sessions, "k1")

	testutil.SetNow(t, now.Add(2*time.Minute))
	n, err = svc.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, cache.sessions)
}
