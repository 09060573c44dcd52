package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/academia/core/contenttype"
	"github.com/trezcool/academia/core/history"
)

type contentTypeRepository struct {
	db *sqlx.DB
}

var _ contenttype.Repository = (*contentTypeRepository)(nil)

func NewContentTypeRepository(db *sqlx.DB) *contentTypeRepository {
	return &contentTypeRepository{db: db}
}

func (repo *contentTypeRepository) EnsureContentType(ctx context.Context, appLabel, model string) (contenttype.ContentType, error) {
	var ct contenttype.ContentType
	// the no-op update makes RETURNING yield existing rows too
	err := repo.db.GetContext(ctx, &ct, `INSERT INTO content_type (app_label, model) VALUES ($1, $2)
		ON CONFLICT (app_label, model) DO UPDATE SET model = EXCLUDED.model
		RETURNING id, app_label, model`, appLabel, model)
	return ct, errors.Wrap(err, "ensuring content type")
}

func (repo *contentTypeRepository) QueryContentTypes(ctx context.Context) ([]contenttype.ContentType, error) {
	cts := make([]contenttype.ContentType, 0)
	err := repo.db.SelectContext(ctx, &cts, "SELECT id, app_label, model FROM content_type ORDER BY id")
	return cts, errors.Wrap(err, "querying content types")
}

func (repo *contentTypeRepository) GetContentType(ctx context.Context, id int) (contenttype.ContentType, error) {
	var ct contenttype.ContentType
	if err := repo.db.GetContext(ctx, &ct, "SELECT id, app_label, model FROM content_type WHERE id = $1", id); err != nil {
		return contenttype.ContentType{}, trapNoRowsErr(err, contenttype.ErrNotFound, "getting content type")
	}
	return ct, nil
}

type historyRepository struct {
	db *sqlx.DB
}

var _ history.Repository = (*historyRepository)(nil)

func NewHistoryRepository(db *sqlx.DB) *historyRepository {
	return &historyRepository{db: db}
}

func quoteTable(table string) string { return strmangle.IdentQuote('"', '"', table) }

func (repo *historyRepository) InsertRecord(ctx context.Context, table string, rec history.Record) (history.Record, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO `+quoteTable(table)+`
		(object_id, history_date, history_type, history_user_id, data)
		VALUES (:object_id, :history_date, :history_type, :history_user_id, :data) RETURNING history_id`, rec)
	if err != nil {
		return history.Record{}, errors.Wrapf(err, "inserting into %s", table)
	}
	rec.HistoryID = id
	return rec, nil
}

func (repo *historyRepository) QueryRecords(ctx context.Context, table string, objectID int) ([]history.Record, error) {
	recs := make([]history.Record, 0)
	err := repo.db.SelectContext(ctx, &recs, `SELECT history_id, object_id, history_date, history_type, history_user_id, data
		FROM `+quoteTable(table)+` WHERE object_id = $1 ORDER BY history_date DESC, history_id DESC`, objectID)
	return recs, errors.Wrapf(err, "querying %s", table)
}
