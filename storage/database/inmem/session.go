package inmemdb

import (
	"context"
	"strconv"
	"time"

	"github.com/trezcool/academia/core/session"
)

type sessionRepository struct {
	db *DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) SaveSession(_ context.Context, sess session.Session) (session.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.sessions.insert(sess), nil
}

func (repo *sessionRepository) GetSession(_ context.Context, key string) (session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if sess, ok := repo.db.sessions.get(key); ok {
		return sess, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) QuerySessions(_ context.Context, filter session.Filter, now time.Time) ([]session.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.sessions.filter(func(s session.Session) bool {
		if filter.Valid != nil && s.IsValid(now) != *filter.Valid {
			return false
		}
		if filter.UserID != nil && (!s.UserID.Valid || s.UserID.Int != *filter.UserID) {
			return false
		}
		if filter.Search != "" && !containsFold(s.IP.String, filter.Search) &&
			!(s.UserID.Valid && strconv.Itoa(s.UserID.Int) == filter.Search) {
			return false
		}
		return true
	}), nil
}

func (repo *sessionRepository) DeleteSessions(_ context.Context, keys ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.sessions.delete(keys...), nil
}

func (repo *sessionRepository) DeleteExpiredSessions(_ context.Context, now time.Time) ([]string, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	deleted := repo.db.sessions.deleteWhere(func(s session.Session) bool { return !s.IsValid(now) })
	keys := make([]string, 0, len(deleted))
	for _, s := range deleted {
		keys = append(keys, s.Key)
	}
	return keys, nil
}
