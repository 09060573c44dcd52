package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/contenttype"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
)

func (s *Server) registerUsers(g *echo.Group) {
	ug := g.Group("/user")
	s.registerModelTools(ug, user.UserModel)
	ug.GET("", s.queryUsers)
	ug.POST("", s.createUser)
	ug.DELETE("", s.deleteUsers)
	ug.GET("/:id", s.retrieveUser)
	ug.PUT("/:id", s.updateUser)
	ug.DELETE("/:id", s.deleteUser)
	ug.POST("/:id/photo", s.uploadUserPhoto)
	ug.GET("/:id/inlines", s.retrieveUserInlines)
	ug.PUT("/:id/parents", s.setUserParents)
	ug.PUT("/:id/profile", s.saveUserProfile)
	ug.DELETE("/:id/profile", s.deleteUserProfile)
	ug.PUT("/:id/student", s.saveUserStudent)
	ug.DELETE("/:id/student", s.deleteUserStudent)
	ug.POST("/:id/ssolink", s.createSSOLink)

	pg := g.Group("/parent")
	s.registerModelTools(pg, user.ParentModel)
	pg.GET("", s.queryParents)
	pg.POST("", s.createParent)
	pg.DELETE("", s.deleteParents)
	pg.GET("/:id", s.retrieveParent)
	pg.PUT("/:id", s.updateParent)
	pg.DELETE("/:id", s.deleteParent)
	pg.GET("/:id/users", s.queryParentUsers)

	sg := g.Group("/session")
	s.registerModelTools(sg, session.SessionModel)
	sg.GET("", s.querySessions)
	sg.DELETE("", s.deleteSessions)
	sg.GET("/:key", s.retrieveSession)
	sg.DELETE("/:key", s.deleteSession)

	for _, m := range []struct {
		path  string
		model contenttype.Model
	}{
		{"/profile", user.ProfileModel},
		{"/student", user.StudentModel},
		{"/ssolink", user.SSOLinkModel},
	} {
		s.registerModelTools(g.Group(m.path), m.model)
	}
}

// Users

func bindUserFilter(ctx echo.Context) (user.QueryFilter, error) {
	var (
		f   user.QueryFilter
		err error
	)
	f.Search = ctx.QueryParam("search")
	f.Group = ctx.QueryParam("group")
	if f.IsStaff, err = queryBool(ctx, "is_staff"); err != nil {
		return f, err
	}
	if f.IsSuperuser, err = queryBool(ctx, "is_superuser"); err != nil {
		return f, err
	}
	if f.IsActive, err = queryBool(ctx, "is_active"); err != nil {
		return f, err
	}
	if f.IsRoot, err = queryBool(ctx, "is_root"); err != nil {
		return f, err
	}
	if f.Klass, err = queryInt(ctx, "klass"); err != nil {
		return f, err
	}
	if f.SchoolID, err = queryInt(ctx, "school_id"); err != nil {
		return f, err
	}
	if f.InvitedByID, err = queryInt(ctx, "invited_by_id"); err != nil {
		return f, err
	}
	return f, nil
}

// queryUsers lists users; `?date_joined=YYYY-MM-DD` keeps those who joined that day.
func (s *Server) queryUsers(ctx echo.Context) error {
	filter, err := bindUserFilter(ctx)
	if err != nil {
		return err
	}
	day, err := queryDate(ctx, "date_joined")
	if err != nil {
		return err
	}
	if day != nil {
		filter.DateJoinedFrom = day.Start(s.conf.Location)
		filter.DateJoinedTo = day.AddDays(1).Start(s.conf.Location)
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := s.c.Users.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, nonNil(users))
}

func (s *Server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	usr, err := s.c.Users.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *Server) retrieveUser(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	usr, err := s.c.Users.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) updateUser(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	// superuser status can only be granted by superusers
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if data.IsSuperuser && !ctxUsr.IsSuperuser {
		return errHTTPForbidden
	}
	usr, err := s.c.Users.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// deleteIDs refuses to delete the logged in user.
func (s *Server) deleteUserIDs(ctx echo.Context, ids []int) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == ctxUsr.ID {
			return errHTTPForbidden
		}
	}
	n, err := s.c.Users.Delete(ctx.Request().Context(), ids...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

func (s *Server) deleteUser(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Users.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleteUserIDs(ctx, []int{id})
}

func (s *Server) deleteUsers(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleteUserIDs(ctx, ids)
}

func (s *Server) uploadUserPhoto(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	name, f, err := uploadedFile(ctx, "photo")
	if err != nil {
		return err
	}
	defer f.Close()
	usr, err := s.c.Users.UploadPhoto(ctx.Request().Context(), id, name, f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) retrieveUserInlines(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Users.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	inl, err := s.c.Users.GetInlines(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inl)
}

func (s *Server) setUserParents(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data IDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IDsRequest")
	}
	parents, err := s.c.Users.SetParents(ctx.Request().Context(), id, data.IDs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(parents))
}

func (s *Server) saveUserProfile(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data user.ProfileInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProfileInput")
	}
	prof, err := s.c.Users.SaveProfile(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (s *Server) deleteUserProfile(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err := s.c.Users.DeleteProfile(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) saveUserStudent(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data user.StudentInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentInput")
	}
	std, err := s.c.Users.SaveStudent(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (s *Server) deleteUserStudent(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err := s.c.Users.DeleteStudent(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

type SSOLinkResponse struct {
	user.SSOLink
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) createSSOLink(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	link, err := s.c.Users.CreateSSOLink(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SSOLinkResponse{
		SSOLink:   link,
		URL:       s.conf.FrontendBaseURL + "/admin/sso/" + link.Token,
		ExpiresAt: link.DateJoined.Add(s.conf.SSOLinks.TTL),
	})
}

// Parents

func (s *Server) queryParents(ctx echo.Context) error {
	parents, err := s.c.Users.QueryParents(ctx.Request().Context(), user.ParentFilter{Search: ctx.QueryParam("search")})
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	return ctx.JSON(http.StatusOK, nonNil(parents))
}

func (s *Server) createParent(ctx echo.Context) error {
	var data user.ParentInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ParentInput")
	}
	p, err := s.c.Users.CreateParent(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (s *Server) retrieveParent(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	p, err := s.c.Users.GetParent(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (s *Server) updateParent(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data user.ParentInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ParentInput")
	}
	p, err := s.c.Users.UpdateParent(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (s *Server) deleteParent(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Users.GetParent(ctx.Request().Context(), id); err != nil {
		return err
	}
	n, err := s.c.Users.DeleteParents(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

func (s *Server) deleteParents(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	n, err := s.c.Users.DeleteParents(ctx.Request().Context(), ids...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

func (s *Server) queryParentUsers(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Users.GetParent(ctx.Request().Context(), id); err != nil {
		return err
	}
	users, err := s.c.Users.ParentUsers(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(users))
}

// Sessions

func (s *Server) querySessions(ctx echo.Context) error {
	var (
		filter session.Filter
		err    error
	)
	filter.Search = ctx.QueryParam("search")
	if filter.Valid, err = queryBool(ctx, "valid"); err != nil {
		return err
	}
	if filter.UserID, err = queryInt(ctx, "user_id"); err != nil {
		return err
	}
	sessions, err := s.c.Sessions.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	details := make([]session.Detail, 0, len(sessions))
	for _, sess := range sessions {
		details = append(details, s.c.Sessions.Decoded(sess))
	}
	return ctx.JSON(http.StatusOK, details)
}

func (s *Server) retrieveSession(ctx echo.Context) error {
	sess, err := s.c.Sessions.Get(ctx.Request().Context(), ctx.Param("key"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, s.c.Sessions.Decoded(sess))
}

func (s *Server) deleteSession(ctx echo.Context) error {
	key := ctx.Param("key")
	if _, err := s.c.Sessions.Get(ctx.Request().Context(), key); err != nil {
		return err
	}
	n, err := s.c.Sessions.Delete(ctx.Request().Context(), key)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}

func (s *Server) deleteSessions(ctx echo.Context) error {
	keys := ctx.QueryParams()["key"]
	n, err := s.c.Sessions.Delete(ctx.Request().Context(), keys...)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, DeletedResponse{Deleted: n})
}
