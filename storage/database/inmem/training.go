package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core/training"
)

type trainingRepository struct {
	db *DB
}

var _ training.Repository = (*trainingRepository)(nil)

func NewTrainingRepository(db *DB) *trainingRepository {
	return &trainingRepository{db: db}
}

func (repo *trainingRepository) CreateTopic(_ context.Context, t training.Topic) (training.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	t.ID = 0
	return repo.db.topics.insert(t), nil
}

func (repo *trainingRepository) GetTopic(_ context.Context, id int) (training.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if t, ok := repo.db.topics.get(id); ok {
		return t, nil
	}
	return training.Topic{}, training.ErrTopicNotFound
}

func (repo *trainingRepository) QueryTopics(_ context.Context, search string) ([]training.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	topics := repo.db.topics.filter(func(t training.Topic) bool { return containsFold(t.Title, search) })
	sort.SliceStable(topics, func(i, j int) bool { return topics[i].Order < topics[j].Order })
	return topics, nil
}

func (repo *trainingRepository) UpdateTopic(_ context.Context, t training.Topic) (training.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.topics.get(t.ID); !ok {
		return training.Topic{}, training.ErrTopicNotFound
	}
	return repo.db.topics.insert(t), nil
}

func (repo *trainingRepository) DeleteTopics(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, task := range repo.db.tasks.rows {
		if task.TopicID.Valid && containsInt(ids, task.TopicID.Int) {
			task.TopicID.Valid = false
			task.TopicID.Int = 0
		}
	}
	return repo.db.topics.delete(ids...), nil
}

func (repo *trainingRepository) ReorderTopics(_ context.Context, ids []int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for i, id := range ids {
		if t, ok := repo.db.topics.rows[id]; ok {
			t.Order = i + 1
		}
	}
	return nil
}

func (repo *trainingRepository) CreateTask(_ context.Context, t training.Task) (training.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	t.ID = 0
	t.AuthorIDs = append([]int{}, t.AuthorIDs...)
	return repo.db.tasks.insert(t), nil
}

func (repo *trainingRepository) GetTask(_ context.Context, id int) (training.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if t, ok := repo.db.tasks.get(id); ok {
		return t, nil
	}
	return training.Task{}, training.ErrTaskNotFound
}

func (repo *trainingRepository) QueryTasks(_ context.Context, filter training.TaskFilter) ([]training.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	tasks := repo.db.tasks.filter(func(t training.Task) bool {
		if filter.TopicID != nil && (!t.TopicID.Valid || t.TopicID.Int != *filter.TopicID) {
			return false
		}
		return filter.Search == "" || containsFold(t.Title, filter.Search) || containsFold(t.Description, filter.Search)
	})
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return tasks, nil
}

func (repo *trainingRepository) UpdateTask(_ context.Context, t training.Task) (training.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.tasks.get(t.ID); !ok {
		return training.Task{}, training.ErrTaskNotFound
	}
	t.AuthorIDs = append([]int{}, t.AuthorIDs...)
	return repo.db.tasks.insert(t), nil
}

func (repo *trainingRepository) DeleteTasks(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.standardTests.deleteWhere(func(st training.StandardTest) bool { return containsInt(ids, st.TaskID) })
	return repo.db.tasks.delete(ids...), nil
}

func (repo *trainingRepository) ReorderTasks(_ context.Context, ids []int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for i, id := range ids {
		if t, ok := repo.db.tasks.rows[id]; ok {
			t.Order = i + 1
		}
	}
	return nil
}

func (repo *trainingRepository) SaveStandardTest(_ context.Context, st training.StandardTest) (training.StandardTest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.standardTests.insert(st), nil
}

func (repo *trainingRepository) GetStandardTest(_ context.Context, taskID int) (training.StandardTest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, st := range repo.db.standardTests.all() {
		if st.TaskID == taskID {
			return st, nil
		}
	}
	return training.StandardTest{}, training.ErrStandardTestNotFound
}

func (repo *trainingRepository) DeleteStandardTest(_ context.Context, taskID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if len(repo.db.standardTests.deleteWhere(func(st training.StandardTest) bool { return st.TaskID == taskID })) == 0 {
		return training.ErrStandardTestNotFound
	}
	return nil
}
