package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/training"
)

func (s *Server) registerTrainings(g *echo.Group) {
	tg := g.Group("/topic")
	s.registerModelTools(tg, training.TopicModel)
	tg.POST("/reorder", s.reorderTopics)
	tg.GET("", s.queryTopics)
	tg.POST("", s.createTopic)
	tg.DELETE("", s.deleteTopics)
	tg.GET("/:id", s.retrieveTopic)
	tg.PUT("/:id", s.updateTopic)
	tg.DELETE("/:id", s.deleteTopic)

	kg := g.Group("/task")
	s.registerModelTools(kg, training.TaskModel)
	kg.POST("/reorder", s.reorderTasks)
	kg.GET("", s.queryTasks)
	kg.POST("", s.createTask)
	kg.DELETE("", s.deleteTasks)
	kg.GET("/:id", s.retrieveTask)
	kg.PUT("/:id", s.updateTask)
	kg.DELETE("/:id", s.deleteTask)
	kg.GET("/:id/standardtest", s.retrieveStandardTest)
	kg.PUT("/:id/standardtest", s.saveStandardTest)
	kg.DELETE("/:id/standardtest", s.deleteStandardTest)

	s.registerModelTools(g.Group("/standardtest"), training.StandardTestModel)
}

// Topics

func (s *Server) queryTopics(ctx echo.Context) error {
	topics, err := s.c.Trainings.QueryTopics(ctx.Request().Context(), ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	return ctx.JSON(http.StatusOK, nonNil(topics))
}

func (s *Server) createTopic(ctx echo.Context) error {
	var data training.TopicInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TopicInput")
	}
	t, err := s.c.Trainings.CreateTopic(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (s *Server) retrieveTopic(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	t, err := s.c.Trainings.GetTopic(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (s *Server) updateTopic(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data training.TopicInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TopicInput")
	}
	t, err := s.c.Trainings.UpdateTopic(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (s *Server) deleteTopic(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Trainings.GetTopic(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Trainings.DeleteTopics(ctx.Request().Context(), id))
}

func (s *Server) deleteTopics(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Trainings.DeleteTopics(ctx.Request().Context(), ids...))
}

// reorderTopics sets the positions of the topics to their order in `ids`.
func (s *Server) reorderTopics(ctx echo.Context) error {
	var data IDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IDsRequest")
	}
	topics, err := s.c.Trainings.ReorderTopics(ctx.Request().Context(), data.IDs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(topics))
}

// Tasks

func (s *Server) queryTasks(ctx echo.Context) error {
	var (
		filter training.TaskFilter
		err    error
	)
	filter.Search = ctx.QueryParam("search")
	if filter.TopicID, err = queryInt(ctx, "topic_id"); err != nil {
		return err
	}
	tasks, err := s.c.Trainings.QueryTasks(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	return ctx.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) createTask(ctx echo.Context) error {
	var data training.TaskInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaskInput")
	}
	t, err := s.c.Trainings.CreateTask(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (s *Server) retrieveTask(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	t, err := s.c.Trainings.GetTask(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (s *Server) updateTask(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data training.TaskInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaskInput")
	}
	t, err := s.c.Trainings.UpdateTask(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, t)
}

func (s *Server) deleteTask(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if _, err := s.c.Trainings.GetTask(ctx.Request().Context(), id); err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Trainings.DeleteTasks(ctx.Request().Context(), id))
}

func (s *Server) deleteTasks(ctx echo.Context) error {
	ids, err := queryIDs(ctx)
	if err != nil {
		return err
	}
	return s.deleted(ctx)(s.c.Trainings.DeleteTasks(ctx.Request().Context(), ids...))
}

func (s *Server) reorderTasks(ctx echo.Context) error {
	var data IDsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to IDsRequest")
	}
	tasks, err := s.c.Trainings.ReorderTasks(ctx.Request().Context(), data.IDs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) retrieveStandardTest(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	st, err := s.c.Trainings.GetStandardTest(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *Server) saveStandardTest(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data training.StandardTestInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StandardTestInput")
	}
	st, err := s.c.Trainings.SaveStandardTest(ctx.Request().Context(), id, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, st)
}

func (s *Server) deleteStandardTest(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err := s.c.Trainings.DeleteStandardTest(ctx.Request().Context(), id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
