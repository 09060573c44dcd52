package training

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/history"
)

var (
	ErrTopicNotFound        = core.NewNotFoundError("topic")
	ErrTaskNotFound         = core.NewNotFoundError("task")
	ErrStandardTestNotFound = core.NewNotFoundError("standard test")
)

type (
	// Repositories list rows by "order", then id.
	Repository interface {
		CreateTopic(ctx context.Context, t Topic) (Topic, error)
		GetTopic(ctx context.Context, id int) (Topic, error)
		QueryTopics(ctx context.Context, search string) ([]Topic, error)
		UpdateTopic(ctx context.Context, t Topic) (Topic, error)
		DeleteTopics(ctx context.Context, ids ...int) (int, error)
		// ReorderTopics sets the order of the given topics to their 1-based position in ids.
		ReorderTopics(ctx context.Context, ids []int) error

		// Task writes also persist AuthorIDs.
		CreateTask(ctx context.Context, t Task) (Task, error)
		GetTask(ctx context.Context, id int) (Task, error)
		QueryTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
		UpdateTask(ctx context.Context, t Task) (Task, error)
		DeleteTasks(ctx context.Context, ids ...int) (int, error)
		ReorderTasks(ctx context.Context, ids []int) error

		SaveStandardTest(ctx context.Context, st StandardTest) (StandardTest, error)
		GetStandardTest(ctx context.Context, taskID int) (StandardTest, error)
		DeleteStandardTest(ctx context.Context, taskID int) error
	}

	Service struct {
		repo     Repository
		history  history.Recorder
		validate *validator.Validate
	}
)

func NewService(repo Repository, hist history.Recorder, validate *validator.Validate) *Service {
	return &Service{repo: repo, history: hist, validate: validate}
}

// Topics

func (svc *Service) CreateTopic(ctx context.Context, in TopicInput) (Topic, error) {
	in.Title = core.CleanString(in.Title)
	if err := svc.validate.Struct(in); err != nil {
		return Topic{}, err
	}
	t, err := svc.repo.CreateTopic(ctx, Topic{Title: in.Title})
	if err != nil {
		return Topic{}, errors.Wrap(err, "creating topic")
	}
	return t, svc.history.Track(ctx, TopicModel, t.ID, history.Created, t)
}

func (svc *Service) GetTopic(ctx context.Context, id int) (Topic, error) {
	return svc.repo.GetTopic(ctx, id)
}

func (svc *Service) QueryTopics(ctx context.Context, search string) ([]Topic, error) {
	return svc.repo.QueryTopics(ctx, core.CleanString(search))
}

func (svc *Service) UpdateTopic(ctx context.Context, id int, in TopicInput) (Topic, error) {
	t, err := svc.repo.GetTopic(ctx, id)
	if err != nil {
		return Topic{}, err
	}
	in.Title = core.CleanString(in.Title)
	if err := svc.validate.Struct(in); err != nil {
		return Topic{}, err
	}
	t.Title = in.Title
	if t, err = svc.repo.UpdateTopic(ctx, t); err != nil {
		return Topic{}, errors.Wrap(err, "updating topic")
	}
	return t, svc.history.Track(ctx, TopicModel, t.ID, history.Changed, t)
}

func (svc *Service) DeleteTopics(ctx context.Context, ids ...int) (int, error) {
	var topics []Topic
	for _, id := range ids {
		if t, err := svc.repo.GetTopic(ctx, id); err == nil {
			topics = append(topics, t)
		} else if !core.IsNotFound(err) {
			return 0, err
		}
	}
	cnt, err := svc.repo.DeleteTopics(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting topics")
	}
	for _, t := range topics {
		if err := svc.history.Track(ctx, TopicModel, t.ID, history.Deleted, t); err != nil {
			return cnt, err
		}
	}
	return cnt, nil
}

// ReorderTopics numbers the given topics 1..n in the given order.
func (svc *Service) ReorderTopics(ctx context.Context, ids []int) ([]Topic, error) {
	if err := core.CheckReorder(ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := svc.repo.GetTopic(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := svc.repo.ReorderTopics(ctx, ids); err != nil {
		return nil, errors.Wrap(err, "reordering topics")
	}
	return svc.repo.QueryTopics(ctx, "")
}

// Tasks

func (svc *Service) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return Task{}, err
	}
	if err := svc.checkTopic(ctx, in.TopicID); err != nil {
		return Task{}, err
	}
	var t Task
	in.apply(&t)
	t, err := svc.repo.CreateTask(ctx, t)
	if err != nil {
		return Task{}, errors.Wrap(err, "creating task")
	}
	return t, svc.history.Track(ctx, TaskModel, t.ID, history.Created, t)
}

func (svc *Service) checkTopic(ctx context.Context, topicID *int) error {
	if topicID == nil {
		return nil
	}
	if _, err := svc.repo.GetTopic(ctx, *topicID); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "topic_id", Error: "topic does not exist"})
		}
		return err
	}
	return nil
}

func (svc *Service) GetTask(ctx context.Context, id int) (Task, error) {
	return svc.repo.GetTask(ctx, id)
}

func (svc *Service) QueryTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryTasks(ctx, filter)
}

func (svc *Service) UpdateTask(ctx context.Context, id int, in TaskInput) (Task, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return Task{}, err
	}
	if err := svc.checkTopic(ctx, in.TopicID); err != nil {
		return Task{}, err
	}
	in.apply(&t)
	if t, err = svc.repo.UpdateTask(ctx, t); err != nil {
		return Task{}, errors.Wrap(err, "updating task")
	}
	return t, svc.history.Track(ctx, TaskModel, t.ID, history.Changed, t)
}

func (svc *Service) DeleteTasks(ctx context.Context, ids ...int) (int, error) {
	var tasks []Task
	for _, id := range ids {
		if t, err := svc.repo.GetTask(ctx, id); err == nil {
			tasks = append(tasks, t)
		} else if !core.IsNotFound(err) {
			return 0, err
		}
	}
	cnt, err := svc.repo.DeleteTasks(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting tasks")
	}
	for _, t := range tasks {
		if err := svc.history.Track(ctx, TaskModel, t.ID, history.Deleted, t); err != nil {
			return cnt, err
		}
	}
	return cnt, nil
}

func (svc *Service) ReorderTasks(ctx context.Context, ids []int) ([]Task, error) {
	if err := core.CheckReorder(ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := svc.repo.GetTask(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := svc.repo.ReorderTasks(ctx, ids); err != nil {
		return nil, errors.Wrap(err, "reordering tasks")
	}
	return svc.repo.QueryTasks(ctx, TaskFilter{})
}

// Standard tests (task inline)

func (svc *Service) GetStandardTest(ctx context.Context, taskID int) (StandardTest, error) {
	return svc.repo.GetStandardTest(ctx, taskID)
}

func (svc *Service) SaveStandardTest(ctx context.Context, taskID int, in StandardTestInput) (StandardTest, error) {
	if _, err := svc.repo.GetTask(ctx, taskID); err != nil {
		return StandardTest{}, err
	}
	if err := svc.validate.Struct(in); err != nil {
		return StandardTest{}, err
	}
	htype := history.Changed
	st, err := svc.repo.GetStandardTest(ctx, taskID)
	if core.IsNotFound(err) {
		htype = history.Created
	} else if err != nil {
		return StandardTest{}, err
	}
	st.TaskID = taskID
	st.InputData = in.InputData
	st.OutputData = in.OutputData
	if st, err = svc.repo.SaveStandardTest(ctx, st); err != nil {
		return StandardTest{}, errors.Wrap(err, "saving standard test")
	}
	return st, svc.history.Track(ctx, StandardTestModel, st.ID, htype, st)
}

func (svc *Service) DeleteStandardTest(ctx context.Context, taskID int) error {
	st, err := svc.repo.GetStandardTest(ctx, taskID)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteStandardTest(ctx, taskID); err != nil {
		return errors.Wrap(err, "deleting standard test")
	}
	return svc.history.Track(ctx, StandardTestModel, st.ID, history.Deleted, st)
}
