package training

import (
	"strconv"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

const AppLabel = "trainings"

var (
	TopicModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "topic",
		Table:       "trainings_topic",
		VerboseName: "Topic",
		Columns:     []string{"id", "title", "order"},
		Tracked:     true,
	}
	TaskModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "task",
		Table:       "trainings_task",
		VerboseName: "Task",
		Columns: []string{
			"id", "topic_id", "title", "source", "input_file", "output_file",
			"url", "description", "archive", "order",
		},
		Tracked: true,
	}
	StandardTestModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "standardtest",
		Table:       "trainings_standardtest",
		VerboseName: "Standard Test",
		Columns:     []string{"id", "task_id", "input_data", "output_data"},
		Tracked:     true,
	}
)

func RegisterContentTypes(r *contenttype.Registry) {
	r.Register(TopicModel, TaskModel, StandardTestModel)
}

type Topic struct {
	ID    int    `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	Order int    `json:"order" db:"order"`
}

func (t Topic) String() string { return strconv.Itoa(t.Order) + ". " + t.Title }

type Task struct {
	ID          int      `json:"id" db:"id"`
	TopicID     null.Int `json:"topic_id" db:"topic_id"`
	Title       string   `json:"title" db:"title"`
	AuthorIDs   []int    `json:"author_ids" db:"-"`
	Source      string   `json:"source" db:"source"`
	InputFile   string   `json:"input_file" db:"input_file"`
	OutputFile  string   `json:"output_file" db:"output_file"`
	URL         string   `json:"url" db:"url"`
	Description string   `json:"description" db:"description"`
	Archive     bool     `json:"archive" db:"archive"`
	Order       int      `json:"order" db:"order"`
}

func (t Task) String() string { return t.Title }

type StandardTest struct {
	ID         int    `json:"id" db:"id"`
	TaskID     int    `json:"task_id" db:"task_id"`
	InputData  string `json:"input_data" db:"input_data"`
	OutputData string `json:"output_data" db:"output_data"`
}

type TopicInput struct {
	Title string `json:"title" validate:"required,notblank,max=256"`
}

type TaskInput struct {
	TopicID     *int   `json:"topic_id"`
	Title       string `json:"title" validate:"required,notblank,max=128"`
	AuthorIDs   []int  `json:"author_ids" validate:"dive,min=1"`
	Source      string `json:"source" validate:"max=128"`
	InputFile   string `json:"input_file" validate:"max=128"`
	OutputFile  string `json:"output_file" validate:"max=128"`
	URL         string `json:"url" validate:"omitempty,url,max=512"`
	Description string `json:"description" validate:"required,max=8192"`
	Archive     bool   `json:"archive"`
}

func (in *TaskInput) clean() {
	in.Title = core.CleanString(in.Title)
	in.Source = core.CleanString(in.Source)
	in.InputFile = core.CleanString(in.InputFile)
	if in.InputFile == "" {
		in.InputFile = "stdin"
	}
	in.OutputFile = core.CleanString(in.OutputFile)
	if in.OutputFile == "" {
		in.OutputFile = "stdout"
	}
	in.URL = core.CleanString(in.URL)
}

func (in TaskInput) apply(t *Task) {
	t.TopicID = null.IntFromPtr(in.TopicID)
	t.Title = in.Title
	t.AuthorIDs = in.AuthorIDs
	if t.AuthorIDs == nil {
		t.AuthorIDs = []int{}
	}
	t.Source = in.Source
	t.InputFile = in.InputFile
	t.OutputFile = in.OutputFile
	t.URL = in.URL
	t.Description = in.Description
	t.Archive = in.Archive
}

type StandardTestInput struct {
	InputData  string `json:"input_data" validate:"required,max=1024"`
	OutputData string `json:"output_data" validate:"required,max=1024"`
}

// TaskFilter.Search matches title or description, case-insensitively.
type TaskFilter struct {
	TopicID *int
	Search  string
}
