// Package database opens the PostgreSQL database and keeps its schema up to date.
package database

import (
	"context"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"
	"github.com/trezcool/goose"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/academia/core"
	appfs "github.com/trezcool/academia/fs"
)

const migrationsDir = "migrations"

var gooseRunFunc = goose.RunFS // mockable

// dsn returns the connection URL of dbName; admin connects with the admin credentials when configured.
func dsn(dbName string, admin bool, conf core.DatabaseConfig) string {
	usr := url.UserPassword(conf.User, conf.Password)
	if admin && conf.AdminUser != "" {
		usr = url.UserPassword(conf.AdminUser, conf.AdminPassword)
	}
	sslMode := "require"
	if conf.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     usr,
		Host:     conf.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func open(dbName string, admin bool, conf core.DatabaseConfig) (*sqlx.DB, error) {
	return sqlx.Open(conf.Engine, dsn(dbName, admin, conf))
}

// Open connects to the application database and waits until it answers.
func Open(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf.Database)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready, 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	for attempt := 1; attempt <= 30; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "pinging database")
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found []bool
	if err := db.SelectContext(ctx, &found, query, name); err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// CreateIfNotExist creates the application role and database, connecting as the admin user.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	admin, err := open("postgres", true, conf.Database)
	if err != nil {
		return errors.Wrap(err, "opening admin connection")
	}
	defer func() { _ = admin.Close() }()
	if err := ping(ctx, admin); err != nil {
		return err
	}

	if conf.Database.User != "" {
		found, err := exists(ctx, admin, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !found {
			// identifiers and passwords cannot be bound as parameters
			q := "CREATE USER " + strmangle.IdentQuote('"', '"', conf.Database.User) +
				" CREATEDB ENCRYPTED PASSWORD " + quoteLiteral(conf.Database.Password)
			if _, err := admin.ExecContext(ctx, q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	found, err := exists(ctx, admin, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if !found {
		q := "CREATE DATABASE " + strmangle.IdentQuote('"', '"', conf.Database.Name)
		if conf.Database.User != "" {
			q += " OWNER " + strmangle.IdentQuote('"', '"', conf.Database.User)
		}
		if _, err := admin.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

func quoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(append(out, '\''))
}

// Migrate runs a goose command (up, down, status, ...) with the embedded migrations.
func Migrate(db *sqlx.DB, command string, args ...string) error {
	if err := gooseRunFunc(command, db.DB, appfs.FS, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrate %s", command)
	}
	return nil
}
