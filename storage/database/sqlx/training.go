package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/training"
)

const (
	topicColumns = `id, title, "order"`
	taskColumns  = `id, topic_id, title, source, input_file, output_file, url, description, archive, "order"`
)

type trainingRepository struct {
	db *sqlx.DB
}

var _ training.Repository = (*trainingRepository)(nil)

func NewTrainingRepository(db *sqlx.DB) *trainingRepository {
	return &trainingRepository{db: db}
}

func (repo *trainingRepository) CreateTopic(ctx context.Context, t training.Topic) (training.Topic, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO trainings_topic (title, "order") VALUES (:title, :order) RETURNING id`, t)
	if err != nil {
		return training.Topic{}, errors.Wrap(err, "inserting topic")
	}
	t.ID = id
	return t, nil
}

func (repo *trainingRepository) GetTopic(ctx context.Context, id int) (training.Topic, error) {
	var t training.Topic
	if err := repo.db.GetContext(ctx, &t, "SELECT "+topicColumns+" FROM trainings_topic WHERE id = $1", id); err != nil {
		return training.Topic{}, trapNoRowsErr(err, training.ErrTopicNotFound, "getting topic")
	}
	return t, nil
}

func (repo *trainingRepository) QueryTopics(ctx context.Context, search string) ([]training.Topic, error) {
	topics := make([]training.Topic, 0)
	err := repo.db.SelectContext(ctx, &topics,
		"SELECT "+topicColumns+` FROM trainings_topic WHERE title ILIKE $1 ORDER BY "order", id`, likeArg(search))
	return topics, errors.Wrap(err, "querying topics")
}

func (repo *trainingRepository) UpdateTopic(ctx context.Context, t training.Topic) (training.Topic, error) {
	n, err := namedExec(ctx, repo.db, `UPDATE trainings_topic SET title = :title, "order" = :order WHERE id = :id`, t)
	if err != nil {
		return training.Topic{}, errors.Wrap(err, "updating topic")
	}
	if n == 0 {
		return training.Topic{}, training.ErrTopicNotFound
	}
	return t, nil
}

func (repo *trainingRepository) DeleteTopics(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM trainings_topic WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting topics")
}

func (repo *trainingRepository) ReorderTopics(ctx context.Context, ids []int) error {
	return reorder(ctx, repo.db, "trainings_topic", ids)
}

// reorder sets "order" to the 1-based position of each id, in one transaction.
func reorder(ctx context.Context, db *sqlx.DB, table string, ids []int) error {
	return inTx(ctx, db, func(tx *sqlx.Tx) error {
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET "order" = $1 WHERE id = $2`, i+1, id); err != nil {
				return errors.Wrapf(err, "reordering %s", table)
			}
		}
		return nil
	})
}

// Tasks

func (repo *trainingRepository) setAuthors(ctx context.Context, tx *sqlx.Tx, taskID int, authorIDs []int) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM trainings_task_authors WHERE task_id = $1", taskID); err != nil {
		return errors.Wrap(err, "clearing authors")
	}
	for _, uid := range authorIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO trainings_task_authors (task_id, user_id) VALUES ($1, $2)", taskID, uid); err != nil {
			return errors.Wrap(err, "adding author")
		}
	}
	return nil
}

// withAuthors loads the author ids of tasks.
func (repo *trainingRepository) withAuthors(ctx context.Context, tasks []training.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]int, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	var links []struct {
		TaskID int `db:"task_id"`
		UserID int `db:"user_id"`
	}
	if err := selectIn(ctx, repo.db, &links,
		"SELECT task_id, user_id FROM trainings_task_authors WHERE task_id IN (?) ORDER BY user_id", ids); err != nil {
		return errors.Wrap(err, "querying authors")
	}
	byTask := make(map[int][]int, len(tasks))
	for _, l := range links {
		byTask[l.TaskID] = append(byTask[l.TaskID], l.UserID)
	}
	for i := range tasks {
		tasks[i].AuthorIDs = byTask[tasks[i].ID]
		if tasks[i].AuthorIDs == nil {
			tasks[i].AuthorIDs = []int{}
		}
	}
	return nil
}

func (repo *trainingRepository) CreateTask(ctx context.Context, t training.Task) (training.Task, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id, err := insertReturningID(ctx, tx, `INSERT INTO trainings_task
			(topic_id, title, source, input_file, output_file, url, description, archive, "order")
			VALUES (:topic_id, :title, :source, :input_file, :output_file, :url, :description, :archive, :order)
			RETURNING id`, t)
		if err != nil {
			return errors.Wrap(err, "inserting task")
		}
		t.ID = id
		return repo.setAuthors(ctx, tx, id, t.AuthorIDs)
	})
	if err != nil {
		return training.Task{}, err
	}
	return t, nil
}

func (repo *trainingRepository) GetTask(ctx context.Context, id int) (training.Task, error) {
	tasks := make([]training.Task, 0, 1)
	if err := repo.db.SelectContext(ctx, &tasks, "SELECT "+taskColumns+" FROM trainings_task WHERE id = $1", id); err != nil {
		return training.Task{}, errors.Wrap(err, "getting task")
	}
	if len(tasks) == 0 {
		return training.Task{}, training.ErrTaskNotFound
	}
	if err := repo.withAuthors(ctx, tasks); err != nil {
		return training.Task{}, err
	}
	return tasks[0], nil
}

func (repo *trainingRepository) QueryTasks(ctx context.Context, filter training.TaskFilter) ([]training.Task, error) {
	var conds conditions
	if filter.TopicID != nil {
		conds.add("topic_id = ?", *filter.TopicID)
	}
	if filter.Search != "" {
		val := likeArg(filter.Search)
		conds.add("title ILIKE ? OR description ILIKE ?", val, val)
	}
	tasks := make([]training.Task, 0)
	query := repo.db.Rebind("SELECT " + taskColumns + " FROM trainings_task" + conds.where() + ` ORDER BY "order", id`)
	if err := repo.db.SelectContext(ctx, &tasks, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	return tasks, repo.withAuthors(ctx, tasks)
}

func (repo *trainingRepository) UpdateTask(ctx context.Context, t training.Task) (training.Task, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		n, err := namedExec(ctx, tx, `UPDATE trainings_task SET topic_id = :topic_id, title = :title, source = :source,
			input_file = :input_file, output_file = :output_file, url = :url, description = :description,
			archive = :archive, "order" = :order
			WHERE id = :id`, t)
		if err != nil {
			return errors.Wrap(err, "updating task")
		}
		if n == 0 {
			return training.ErrTaskNotFound
		}
		return repo.setAuthors(ctx, tx, t.ID, t.AuthorIDs)
	})
	if err != nil {
		return training.Task{}, err
	}
	return t, nil
}

func (repo *trainingRepository) DeleteTasks(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM trainings_task WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting tasks")
}

func (repo *trainingRepository) ReorderTasks(ctx context.Context, ids []int) error {
	return reorder(ctx, repo.db, "trainings_task", ids)
}

// Standard tests

func (repo *trainingRepository) SaveStandardTest(ctx context.Context, st training.StandardTest) (training.StandardTest, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO trainings_standardtest (task_id, input_data, output_data)
		VALUES (:task_id, :input_data, :output_data)
		ON CONFLICT (task_id) DO UPDATE SET input_data = EXCLUDED.input_data, output_data = EXCLUDED.output_data
		RETURNING id`, st)
	if err != nil {
		return training.StandardTest{}, errors.Wrap(err, "saving standard test")
	}
	st.ID = id
	return st, nil
}

func (repo *trainingRepository) GetStandardTest(ctx context.Context, taskID int) (training.StandardTest, error) {
	var st training.StandardTest
	err := repo.db.GetContext(ctx, &st,
		"SELECT id, task_id, input_data, output_data FROM trainings_standardtest WHERE task_id = $1", taskID)
	if err != nil {
		return training.StandardTest{}, trapNoRowsErr(err, training.ErrStandardTestNotFound, "getting standard test")
	}
	return st, nil
}

func (repo *trainingRepository) DeleteStandardTest(ctx context.Context, taskID int) error {
	n, err := execIn(ctx, repo.db, "DELETE FROM trainings_standardtest WHERE task_id = ?", taskID)
	if err != nil {
		return errors.Wrap(err, "deleting standard test")
	}
	if n == 0 {
		return training.ErrStandardTestNotFound
	}
	return nil
}
