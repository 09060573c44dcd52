package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core"
)

type (
	Options struct {
		DisableReqLogs bool
		// Shutdown is called when a handler fails with a core shutdown error.
		Shutdown func()
	}

	Server struct {
		c     *di.Container
		conf  *core.Config
		opts  Options
		app   *echo.Echo
		store *sessionStore
	}
)

func NewServer(c *di.Container, opts Options) *Server {
	s := &Server{
		c:     c,
		conf:  c.Conf,
		opts:  opts,
		app:   echo.New(),
		store: newSessionStore(c.Sessions, c.Conf),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	shutdown := s.opts.Shutdown
	if shutdown == nil {
		shutdown = func() {}
	}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.c.Logger, s.c.Translator, shutdown)
	s.app.Debug = s.conf.Debug && !s.conf.TestMode

	s.app.GET("/", s.home)
	s.registerMedia()

	admin := s.app.Group("/admin")
	admin.POST("/login", s.login)
	admin.POST("/logout", s.logout)
	admin.POST("/sso/:token", s.ssoLogin)

	authed := admin.Group("", s.authMiddleware, staffMiddleware)
	authed.POST("/token-refresh", s.refreshToken)
	authed.GET("/contenttypes/contenttype", s.queryContentTypes)

	s.registerUsers(authed.Group("/users"))
	s.registerInternals(authed.Group("/internals"))
	s.registerTrainings(authed.Group("/trainings"))
	s.registerWebsite(authed.Group("/website"))
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	err := s.app.Start(s.conf.Server.Address)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}

func (s *Server) queryContentTypes(ctx echo.Context) error {
	cts, err := s.c.ContentTypes.Query(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(cts))
}
