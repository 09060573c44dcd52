package echoapi

import (
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

// registerMedia serves uploaded files when they are stored on the local filesystem.
// S3 files are served by the bucket itself.
func (s *Server) registerMedia() {
	if s.conf.Media.Backend != "fs" || !strings.HasPrefix(s.conf.Media.URL, "/") {
		return
	}
	prefix := strings.TrimSuffix(s.conf.Media.URL, "/")
	s.app.GET(prefix+"/*", s.serveMedia)
}

func (s *Server) serveMedia(ctx echo.Context) error {
	name := path.Clean("/" + ctx.Param("*"))[1:]
	if name == "" {
		return errHTTPNotFound
	}
	f, err := s.c.Storage.Open(ctx.Request().Context(), name)
	if err != nil {
		return err
	}
	defer f.Close()

	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	return ctx.Stream(http.StatusOK, ct, f)
}
