package echoapi

import (
	"io"
	"net/http"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/backup"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/script"
)

func (s *Server) registerInternals(g *echo.Group) {
	sg := g.Group("/school")
	s.registerModelTools(sg, school.SchoolModel)
	sg.GET("", s.querySchools)
	sg.POST("", s.createSchool)
	sg.DELETE("", s.deleteSchools)
	sg.GET("/:id", s.retrieveSchool)
	sg.PUT("/:id", s.updateSchool)
	sg.DELETE("/:id", s.deleteSchool)

	ug := g.Group("/university")
	s.registerModelTools(ug, school.UniversityModel)
	ug.GET("", s.queryUniversities)
	ug.POST("", s.createUniversity)
	ug.DELETE("", s.deleteUniversities)
	ug.GET("/:id", s.retrieveUniversity)
	ug.PUT("/:id", s.updateUniversity)
	ug.DELETE("/:id", s.deleteUniversity)
	ug.POST("/:id/logo", s.uploadUniversityLogo)

	// scripts run arbitrary code: superusers only
	scg := g.Group("/script", superuserMiddleware)
	s.registerModelTools(scg, script.ScriptModel)
	scg.POST("/execute", s.executeScript)
	scg.GET("", s.queryScripts)
	scg.POST("", s.createScript)
	scg.DELETE("", s.deleteScripts)
	scg.GET("/:id", s.retrieveScript)
	scg.PUT("/:id", s.updateScript)
	scg.DELETE("/:id", s.deleteScript)

	bg := g.Group("/backup")
	s.registerModelTools(bg, backup.BackupModel)
	bg.GET("", s.queryBackups)
	bg.DELETE("", s.deleteBackups)
	bg.GET("/:id", s.retrieveBackup)
	bg.DELETE("/:id", s.deleteBackup)
	bg.GET("/:id/file", s.downloadBackup)
}

// Schools

func (s *Server) querySchools(ctx echo.Context) error {
	schools, err := s.c.Schools.QuerySchools(ctx.Request().Context(), school.Filter{Search: ctx.QueryParam("search")})
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	return ctx.JSON(http.StatusOK, nonNil(schools))
}

func (s *Server) createSchool(ctx echo.Context) error {
	var data school.SchoolInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SchoolInput")
	}
	sch, err := s.c.Schools.CreateSchool(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (s *Server) retrieveSchool(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	sch, err := s.c.Schools.GetSchool(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (s *Server) updateSchool(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data school.SchoolInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SchoolInput")
	}
	sch, err := s.c.Schools.UpdateSchool(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (s *Server) deleteSchool(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Schools.GetSchool(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Schools.DeleteSchools(ctx.Request().Context(), id))
}

func (s *Server) deleteSchools(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Schools.DeleteSchools(ctx.Request().Context(), ids...))
}

// Universities

func (s *Server) queryUniversities(ctx echo.Context) error {
	univs, err := s.c.Schools.QueryUniversities(ctx.Request().Context(), school.Filter{Search: ctx.QueryParam("search")})
	if err != nil {
		return errors.Wrap(err, "querying universities")
	}
	return ctx.JSON(http.StatusOK, nonNil(univs))
}

func (s *Server) createUniversity(ctx echo.Context) error {
	var data school.UniversityInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UniversityInput")
	}
	univ, err := s.c.Schools.CreateUniversity(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, univ)
}

func (s *Server) retrieveUniversity(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	univ, err := s.c.Schools.GetUniversity(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, univ)
}

func (s *Server) updateUniversity(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data school.UniversityInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UniversityInput")
	}
	univ, err := s.c.Schools.UpdateUniversity(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, univ)
}

func (s *Server) uploadUniversityLogo(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	name, f, err := uploadedFile(ctx, "logo")
	if err != nil {
		return err
	}
	defer f.Close()
	univ, err := s.c.Schools.UploadLogo(ctx.Request().Context(), id, name, f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, univ)
}

func (s *Server) deleteUniversity(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Schools.GetUniversity(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Schools.DeleteUniversities(ctx.Request().Context(), id))
}

func (s *Server) deleteUniversities(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Schools.DeleteUniversities(ctx.Request().Context(), ids...))
}

// Scripts

// executeScript runs the posted `source` and returns everything it printed.
func (s *Server) executeScript(ctx echo.Context) error {
	src := ctx.FormValue("source")
	if src == "" {
		b, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			return errors.Wrap(err, "reading script source")
		}
		src = string(b)
	}
	usr, _ := getContextUser(ctx)
	s.c.Logger.Info("executing script", usr)
	return ctx.String(http.StatusOK, s.c.Scripts.Execute(src))
}

func (s *Server) queryScripts(ctx echo.Context) error {
	scripts, err := s.c.Scripts.Query(ctx.Request().Context(), ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "querying scripts")
	}
	return ctx.JSON(http.StatusOK, nonNil(scripts))
}

func (s *Server) createScript(ctx echo.Context) error {
	var data script.Input
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to script.Input")
	}
	scr, err := s.c.Scripts.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, scr)
}

func (s *Server) retrieveScript(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	scr, err := s.c.Scripts.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, scr)
}

func (s *Server) updateScript(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data script.Input
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to script.Input")
	}
	scr, err := s.c.Scripts.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, scr)
}

func (s *Server) deleteScript(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Scripts.Get(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Scripts.Delete(ctx.Request().Context(), id))
}

func (s *Server) deleteScripts(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Scripts.Delete(ctx.Request().Context(), ids...))
}

// Backups

func (s *Server) queryBackups(ctx echo.Context) error {
	var (
		filter backup.Filter
		err    error
	)
	if filter.ContentTypeID, err = queryInt(ctx, "model_id"); err != nil {
		return err
	}
	if filter.Date, err = queryDate(ctx, "date"); err != nil {
		return err
	}
	backups, err := s.c.Backups.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying backups")
	}
	return ctx.JSON(http.StatusOK, nonNil(backups))
}

func (s *Server) retrieveBackup(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	bkp, err := s.c.Backups.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, bkp)
}

func (s *Server) downloadBackup(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	bkp, rc, err := s.c.Backups.Open(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	defer rc.Close()
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+path.Base(bkp.File)+`"`)
	return ctx.Stream(http.StatusOK, mimeTextCSV, rc)
}

func (s *Server) deleteBackup(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Backups.Get(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Backups.Delete(ctx.Request().Context(), id))
}

func (s *Server) deleteBackups(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Backups.Delete(ctx.Request().Context(), ids...))
}
