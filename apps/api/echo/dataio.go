package echoapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
	"github.com/trezcool/academia/core/history"
)

const mimeTextCSV = "text/csv"

// registerModelTools adds export, import and (for tracked models) history routes to a model group.
// They must be registered before the /:id routes of the group.
func (s *Server) registerModelTools(g *echo.Group, model contenttype.Model) {
	g.GET("/export", s.exportHandler(model))
	g.POST("/import", s.importHandler(model))
	if model.Tracked {
		g.GET("/:id/history", s.historyHandler(model))
	}
}

func (s *Server) historyHandler(model contenttype.Model) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := idParam(ctx)
		if err != nil {
			return err
		}
		records, err := s.c.History.List(ctx.Request().Context(), model, id)
		if err != nil {
			return err
		}
		if records == nil {
			records = []history.Record{}
		}
		return ctx.JSON(http.StatusOK, records)
	}
}

// exportHandler sends every row of model as CSV, or the rows of one day with `?date=YYYY-MM-DD`.
func (s *Server) exportHandler(model contenttype.Model) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		day, err := queryDate(ctx, "date")
		if err != nil {
			return err
		}
		var filter contenttype.ExportFilter
		fname := model.AppLabel + "-" + model.Name
		if day != nil {
			if model.DateHierarchy == "" {
				return core.NewValidationError(nil, core.FieldError{Field: "date", Error: model.Key() + " has no date field"})
			}
			filter = contenttype.ExportFilter{
				DateField: model.DateHierarchy,
				From:      day.Start(s.conf.Location),
				To:        day.AddDays(1).Start(s.conf.Location),
			}
			fname += "-" + day.String()
		}

		ds, err := s.c.DataIO.Export(ctx.Request().Context(), model, filter)
		if err != nil {
			return errors.Wrapf(err, "exporting %s", model.Key())
		}
		var buf bytes.Buffer
		if err := ds.WriteCSV(&buf); err != nil {
			return errors.Wrap(err, "writing csv")
		}
		ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+fname+`.csv"`)
		return ctx.Blob(http.StatusOK, mimeTextCSV+"; charset=utf-8", buf.Bytes())
	}
}

type ImportResponse struct {
	Imported int `json:"imported"`
}

// importHandler reads a CSV from the `file` form field or from the raw body.
func (s *Server) importHandler(model contenttype.Model) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var r io.Reader = ctx.Request().Body
		if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
			fh, err := ctx.FormFile("file")
			if err != nil {
				return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})
			}
			f, err := fh.Open()
			if err != nil {
				return errors.Wrap(err, "opening uploaded file")
			}
			defer f.Close()
			r = f
		}

		ds, err := contenttype.ReadCSV(r)
		if err != nil {
			return err
		}
		if err := ds.Validate(model); err != nil {
			return err
		}
		n, err := s.c.DataIO.Import(ctx.Request().Context(), model, ds)
		if err != nil {
			return errors.Wrapf(err, "importing %s", model.Key())
		}
		return ctx.JSON(http.StatusOK, ImportResponse{Imported: n})
	}
}

// uploadedFile returns the file posted in the given form field.
func uploadedFile(ctx echo.Context, field string) (string, io.ReadCloser, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return "", nil, core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, errors.Wrap(err, "opening uploaded file")
	}
	return fh.Filename, f, nil
}
