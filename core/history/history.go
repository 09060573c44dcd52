package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

// history types
const (
	Created = "+"
	Changed = "~"
	Deleted = "-"
)

type ctxKey struct{}

// WithUser returns a context carrying the id of the user performing changes.
func WithUser(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserFromContext returns the acting user id stored by WithUser.
func UserFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(ctxKey{}).(int)
	return id, ok && id > 0
}

// Record is one snapshot of a tracked object.
type Record struct {
	HistoryID   int            `json:"history_id" db:"history_id"`
	ObjectID    int            `json:"object_id" db:"object_id"`
	HistoryDate time.Time      `json:"history_date" db:"history_date"`
	HistoryType string         `json:"history_type" db:"history_type"`
	UserID      null.Int       `json:"history_user_id" db:"history_user_id"`
	Data        types.JSONText `json:"data" db:"data"`
}

type (
	Repository interface {
		InsertRecord(ctx context.Context, table string, rec Record) (Record, error)
		// QueryRecords returns the records of objectID, newest first.
		QueryRecords(ctx context.Context, table string, objectID int) ([]Record, error)
	}

	// Recorder snapshots tracked objects on every write.
	Recorder interface {
		Track(ctx context.Context, model contenttype.Model, objectID int, historyType string, obj interface{}) error
	}

	Service struct {
		repo Repository
	}
)

var _ Recorder = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Track(ctx context.Context, model contenttype.Model, objectID int, historyType string, obj interface{}) error {
	if !model.Tracked {
		return nil
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrap(err, "marshalling snapshot")
	}
	rec := Record{
		ObjectID:    objectID,
		HistoryDate: core.NowFunc().UTC(),
		HistoryType: historyType,
		Data:        types.JSONText(data),
	}
	if uid, ok := UserFromContext(ctx); ok {
		rec.UserID = null.IntFrom(uid)
	}
	if _, err := svc.repo.InsertRecord(ctx, model.Historical().Table, rec); err != nil {
		return errors.Wrapf(err, "tracking %s %d", model.Key(), objectID)
	}
	return nil
}

// List returns the change history of one object, newest first.
func (svc *Service) List(ctx context.Context, model contenttype.Model, objectID int) ([]Record, error) {
	if !model.Tracked {
		return nil, core.NewValidationError(errors.Errorf("%s has no history", model.Key()))
	}
	return svc.repo.QueryRecords(ctx, model.Historical().Table, objectID)
}
