package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/website"
)

func (s *Server) registerWebsite(g *echo.Group) {
	cg := g.Group("/contributor")
	s.registerModelTools(cg, website.ContributorModel)
	cg.GET("", s.queryContributors)
	cg.POST("", s.createContributor)
	cg.DELETE("", s.deleteContributors)
	cg.GET("/:id", s.retrieveContributor)
	cg.PUT("/:id", s.updateContributor)
	cg.DELETE("/:id", s.deleteContributor)
	cg.POST("/:id/photo", s.uploadContributorPhoto)

	mg := g.Group("/halloffamemember")
	s.registerModelTools(mg, website.HallOfFameMemberModel)
	mg.POST("/reorder", s.reorderMembers)
	mg.GET("", s.queryMembers)
	mg.POST("", s.createMember)
	mg.DELETE("", s.deleteMembers)
	mg.GET("/:id", s.retrieveMember)
	mg.PUT("/:id", s.updateMember)
	mg.DELETE("/:id", s.deleteMember)
	mg.POST("/:id/photo", s.uploadMemberPhoto)
}

// Contributors

func (s *Server) queryContributors(ctx echo.Context) error {
	contribs, err := s.c.Website.QueryContributors(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying contributors")
	}
	return ctx.JSON(http.StatusOK, nonNil(contribs))
}

func (s *Server) createContributor(ctx echo.Context) error {
	var data website.ContributorInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContributorInput")
	}
	c, err := s.c.Website.CreateContributor(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (s *Server) retrieveContributor(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	c, err := s.c.Website.GetContributor(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) updateContributor(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data website.ContributorInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContributorInput")
	}
	c, err := s.c.Website.UpdateContributor(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) uploadContributorPhoto(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	name, f, err := uploadedFile(ctx, "photo")
	if err != nil {
		return err
	}
	defer f.Close()
	c, err := s.c.Website.UploadContributorPhoto(ctx.Request().Context(), id, name, f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (s *Server) deleteContributor(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Website.GetContributor(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Website.DeleteContributors(ctx.Request().Context(), id))
}

func (s *Server) deleteContributors(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Website.DeleteContributors(ctx.Request().Context(), ids...))
}

// Hall of fame

func (s *Server) queryMembers(ctx echo.Context) error {
	members, err := s.c.Website.QueryMembers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying hall of fame")
	}
	return ctx.JSON(http.StatusOK, nonNil(members))
}

func (s *Server) createMember(ctx echo.Context) error {
	var data website.HallOfFameMemberInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HallOfFameMemberInput")
	}
	m, err := s.c.Website.CreateMember(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (s *Server) retrieveMember(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	m, err := s.c.Website.GetMember(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (s *Server) updateMember(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data website.HallOfFameMemberInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to HallOfFameMemberInput")
	}
	m, err := s.c.Website.UpdateMember(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (s *Server) uploadMemberPhoto(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	name, f, err := uploadedFile(ctx, "photo")
	if err != nil {
		return err
	}
	defer f.Close()
	m, err := s.c.Website.UploadMemberPhoto(ctx.Request().Context(), id, name, f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (s *Server) deleteMember(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Website.GetMember(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Website.DeleteMembers(ctx.Request().Context(), id))
}

func (s *Server) deleteMembers(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Website.DeleteMembers(ctx.Request().Context(), ids...))
}

// reorderMembers sets the hall of fame positions to the order of `ids`.
func (s *Server) reorderMembers(ctx echo.Context) error {
	var data IDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IDsRequest")
	}
	members, err := s.c.Website.ReorderMembers(ctx.Request().Context(), data.IDs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(members))
}
