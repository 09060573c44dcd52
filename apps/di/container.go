// Package di assembles the services shared by the API server and the admin CLI.
package di

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/backup"
	"github.com/trezcool/academia/core/contenttype"
	"github.com/trezcool/academia/core/history"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/script"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/training"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/core/website"
	cachesvc "github.com/trezcool/academia/services/cache"
	emailsvc "github.com/trezcool/academia/services/email"
	mediasvc "github.com/trezcool/academia/services/media"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	boiledrepos "github.com/trezcool/academia/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

// EngineInMemory keeps every table in memory; used by tests and quick demos.
const EngineInMemory = "inmem"

type (
	Container struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Registry   *contenttype.Registry
		Storage    core.FileStorage
		Mailer     core.EmailService

		// DB is nil with the in-memory engine.
		DB *sqlx.DB

		ContentTypes *contenttype.Service
		History      *history.Service
		DataIO       contenttype.DataIO
		Users        *user.Service
		UserRepo     user.Repository
		Sessions     *session.Service
		Schools      *school.Service
		Scripts      *script.Service
		Trainings    *training.Service
		Website      *website.Service
		Backups      *backup.Service

		closers []func() error
	}

	userRepository interface {
		user.Repository
		user.ParentRepository
		user.SSOLinkRepository
	}

	repositories struct {
		contentTypes contenttype.Repository
		history      history.Repository
		dataIO       contenttype.DataIO
		users        userRepository
		sessions     session.Repository
		schools      school.Repository
		scripts      script.Repository
		trainings    training.Repository
		website      website.Repository
		backups      backup.Repository
	}
)

// NewRegistry registers every model of the project.
func NewRegistry() *contenttype.Registry {
	r := contenttype.NewRegistry()
	user.RegisterContentTypes(r)
	session.RegisterContentTypes(r)
	school.RegisterContentTypes(r)
	script.RegisterContentTypes(r)
	backup.RegisterContentTypes(r)
	training.RegisterContentTypes(r)
	website.RegisterContentTypes(r)
	return r
}

// NewMailer picks the console service in debug and test modes, SendGrid otherwise.
func NewMailer(conf *core.Config, logger core.Logger) core.EmailService {
	switch {
	case conf.TestMode:
		return emailsvc.NewConsoleServiceMock(conf)
	case conf.Debug || conf.SendgridApiKey == "":
		return emailsvc.NewConsoleService(conf)
	default:
		return emailsvc.NewSendgridService(conf, logger)
	}
}

// New connects to the configured database (creating and migrating it when migrate is set) and wires the services.
func New(ctx context.Context, conf *core.Config, logger core.Logger, migrate bool) (*Container, error) {
	storage, err := mediasvc.New(conf)
	if err != nil {
		return nil, err
	}
	mailer := NewMailer(conf, logger)

	if conf.Database.Engine == EngineInMemory {
		c := NewInMemory(conf, logger, storage, mailer)
		return c, nil
	}

	if migrate && conf.Database.AdminUser != "" {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	c := assemble(conf, logger, storage, mailer, repositories{
		contentTypes: sqlxrepos.NewContentTypeRepository(db),
		history:      sqlxrepos.NewHistoryRepository(db),
		dataIO:       boiledrepos.NewDataIO(db),
		users:        sqlxrepos.NewUserRepository(db),
		sessions:     sqlxrepos.NewSessionRepository(db),
		schools:      sqlxrepos.NewSchoolRepository(db),
		scripts:      sqlxrepos.NewScriptRepository(db),
		trainings:    sqlxrepos.NewTrainingRepository(db),
		website:      sqlxrepos.NewWebsiteRepository(db),
		backups:      sqlxrepos.NewBackupRepository(db),
	})
	c.DB = db
	c.closers = append(c.closers, db.Close)

	if conf.Session.RedisURL != "" {
		cache, err := cachesvc.NewRedisSessionCache(ctx, conf.Session.RedisURL)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Sessions = session.NewService(sqlxrepos.NewSessionRepository(db), cache, session.NewCodec(conf.SecretKey))
		c.closers = append(c.closers, cache.Close)
	}
	return c, nil
}

// NewInMemory wires the services on a fresh in-memory database.
func NewInMemory(conf *core.Config, logger core.Logger, storage core.FileStorage, mailer core.EmailService) *Container {
	db := inmemdb.Open()
	return assemble(conf, logger, storage, mailer, repositories{
		contentTypes: inmemdb.NewContentTypeRepository(db),
		history:      inmemdb.NewHistoryRepository(db),
		dataIO:       inmemdb.NewDataIO(db),
		users:        inmemdb.NewUserRepository(db),
		sessions:     inmemdb.NewSessionRepository(db),
		schools:      inmemdb.NewSchoolRepository(db),
		scripts:      inmemdb.NewScriptRepository(db),
		trainings:    inmemdb.NewTrainingRepository(db),
		website:      inmemdb.NewWebsiteRepository(db),
		backups:      inmemdb.NewBackupRepository(db),
	})
}

func assemble(conf *core.Config, logger core.Logger, storage core.FileStorage, mailer core.EmailService, repos repositories) *Container {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	registry := NewRegistry()
	contentTypes := contenttype.NewService(repos.contentTypes, registry)
	hist := history.NewService(repos.history)
	users := user.NewService(repos.users, repos.users, repos.users, hist, storage, validate, conf.SSOLinks.TTL)

	return &Container{
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		Registry:     registry,
		Storage:      storage,
		Mailer:       mailer,
		ContentTypes: contentTypes,
		History:      hist,
		DataIO:       repos.dataIO,
		Users:        users,
		UserRepo:     repos.users,
		Sessions:     session.NewService(repos.sessions, nil, session.NewCodec(conf.SecretKey)),
		Schools:      school.NewService(repos.schools, storage, validate),
		Scripts:      script.NewService(repos.scripts, validate),
		Trainings:    training.NewService(repos.trainings, hist, validate),
		Website:      website.NewService(repos.website, users, hist, storage, validate),
		Backups:      backup.NewService(repos.backups, contentTypes, repos.dataIO, storage, mailer, conf),
	}
}

// Close releases the database and cache connections.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
