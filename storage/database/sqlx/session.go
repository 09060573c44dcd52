package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/session"
)

const sessionColumns = "session_key, session_data, expire_date, user_id, user_agent, last_activity, ip"

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil)

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) SaveSession(ctx context.Context, sess session.Session) (session.Session, error) {
	_, err := namedExec(ctx, repo.db, `INSERT INTO users_session (`+sessionColumns+`)
		VALUES (:session_key, :session_data, :expire_date, :user_id, :user_agent, :last_activity, :ip)
		ON CONFLICT (session_key) DO UPDATE SET
			session_data = EXCLUDED.session_data, expire_date = EXCLUDED.expire_date, user_id = EXCLUDED.user_id,
			user_agent = EXCLUDED.user_agent, last_activity = EXCLUDED.last_activity, ip = EXCLUDED.ip`, sess)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "saving session")
	}
	return sess, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, key string) (session.Session, error) {
	var sess session.Session
	err := repo.db.GetContext(ctx, &sess, "SELECT "+sessionColumns+" FROM users_session WHERE session_key = $1", key)
	if err != nil {
		return session.Session{}, trapNoRowsErr(err, session.ErrNotFound, "getting session")
	}
	return sess, nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, filter session.Filter, now time.Time) ([]session.Session, error) {
	var conds conditions
	if filter.Valid != nil {
		if *filter.Valid {
			conds.add("expire_date > ?", now.UTC())
		} else {
			conds.add("expire_date <= ?", now.UTC())
		}
	}
	if filter.UserID != nil {
		conds.add("user_id = ?", *filter.UserID)
	}
	if filter.Search != "" {
		conds.add("ip ILIKE ? OR user_id::text = ?", likeArg(filter.Search), filter.Search)
	}
	sessions := make([]session.Session, 0)
	query := repo.db.Rebind("SELECT " + sessionColumns + " FROM users_session" + conds.where() + " ORDER BY expire_date DESC")
	err := repo.db.SelectContext(ctx, &sessions, query, conds.args...)
	return sessions, errors.Wrap(err, "querying sessions")
}

func (repo *sessionRepository) DeleteSessions(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM users_session WHERE session_key IN (?)", keys)
	return n, errors.Wrap(err, "deleting sessions")
}

func (repo *sessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) ([]string, error) {
	keys := make([]string, 0)
	err := repo.db.SelectContext(ctx, &keys, "DELETE FROM users_session WHERE expire_date <= $1 RETURNING session_key", now.UTC())
	return keys, errors.Wrap(err, "deleting expired sessions")
}
