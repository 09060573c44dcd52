package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
)

var ErrNotFound = core.NewNotFoundError("session")

type (
	Repository interface {
		// SaveSession inserts or replaces the session with the same key.
		SaveSession(ctx context.Context, sess Session) (Session, error)
		GetSession(ctx context.Context, key string) (Session, error)
		QuerySessions(ctx context.Context, filter Filter, now time.Time) ([]Session, error)
		DeleteSessions(ctx context.Context, keys ...string) (int, error)
		// DeleteExpiredSessions deletes sessions with expire_date <= now and returns their keys.
		DeleteExpiredSessions(ctx context.Context, now time.Time) ([]string, error)
	}

	// Cache keeps hot sessions out of the database.
	Cache interface {
		GetSession(ctx context.Context, key string) (Session, bool, error)
		SetSession(ctx context.Context, sess Session, ttl time.Duration) error
		DeleteSessions(ctx context.Context, keys ...string) error
	}

	Service struct {
		repo  Repository
		cache Cache // optional
		codec *Codec
	}
)

func NewService(repo Repository, cache Cache, codec *Codec) *Service {
	return &Service{repo: repo, cache: cache, codec: codec}
}

// NewKey returns a new random session key.
func NewKey() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Save stores values under key. Empty values delete the session.
func (svc *Service) Save(ctx context.Context, key string, values map[string]interface{}, expire time.Time, meta Meta) (Session, error) {
	if len(values) == 0 {
		_, err := svc.Delete(ctx, key)
		return Session{}, err
	}

	data, err := svc.codec.Encode(values)
	if err != nil {
		return Session{}, err
	}
	sess := Session{
		Key:          key,
		Data:         data,
		ExpireDate:   expire.UTC(),
		UserID:       meta.UserID,
		UserAgent:    null.NewString(truncate(meta.UserAgent, 200), meta.UserAgent != ""),
		LastActivity: core.NowFunc().UTC(),
		IP:           null.NewString(meta.IP, meta.IP != ""),
	}
	sess, err = svc.repo.SaveSession(ctx, sess)
	if err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	if svc.cache != nil {
		if err := svc.cache.SetSession(ctx, sess, sess.ExpireDate.Sub(core.NowFunc())); err != nil {
			return Session{}, errors.Wrap(err, "caching session")
		}
	}
	return sess, nil
}

// Load returns a valid session and its values. Missing and expired sessions are ErrNotFound.
func (svc *Service) Load(ctx context.Context, key string) (Session, map[string]interface{}, error) {
	var (
		sess   Session
		cached bool
		err    error
	)
	if svc.cache != nil {
		if sess, cached, err = svc.cache.GetSession(ctx, key); err != nil {
			return Session{}, nil, errors.Wrap(err, "reading session cache")
		}
	}
	if !cached {
		if sess, err = svc.repo.GetSession(ctx, key); err != nil {
			return Session{}, nil, err
		}
	}
	if !sess.IsValid(core.NowFunc()) {
		return Session{}, nil, ErrNotFound
	}
	if !cached && svc.cache != nil {
		if err := svc.cache.SetSession(ctx, sess, sess.ExpireDate.Sub(core.NowFunc())); err != nil {
			return Session{}, nil, errors.Wrap(err, "caching session")
		}
	}

	values, err := svc.codec.Decode(sess.Data)
	if err != nil {
		// tampered or signed with another secret
		return Session{}, nil, ErrNotFound
	}
	return sess, values, nil
}

func (svc *Service) Get(ctx context.Context, key string) (Session, error) {
	return svc.repo.GetSession(ctx, key)
}

// Decoded returns the session along with its values, for display.
func (svc *Service) Decoded(sess Session) Detail {
	values, err := svc.codec.Decode(sess.Data)
	if err != nil {
		values = map[string]interface{}{}
	}
	return Detail{
		Session: sess,
		Decoded: values,
		IsValid: sess.IsValid(core.NowFunc()),
		Device:  Device(sess.UserAgent.String),
	}
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Session, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QuerySessions(ctx, filter, core.NowFunc().UTC())
}

func (svc *Service) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	if svc.cache != nil {
		if err := svc.cache.DeleteSessions(ctx, keys...); err != nil {
			return 0, errors.Wrap(err, "deleting cached sessions")
		}
	}
	return svc.repo.DeleteSessions(ctx, keys...)
}

// ClearExpired deletes every expired session.
func (svc *Service) ClearExpired(ctx context.Context) (int, error) {
	keys, err := svc.repo.DeleteExpiredSessions(ctx, core.NowFunc().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired sessions")
	}
	if svc.cache != nil && len(keys) > 0 {
		if err := svc.cache.DeleteSessions(ctx, keys...); err != nil {
			return len(keys), errors.Wrap(err, "deleting cached sessions")
		}
	}
	return len(keys), nil
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx]
		}
		i++
	}
	return s
}
