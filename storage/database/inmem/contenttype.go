package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core/contenttype"
	"github.com/trezcool/academia/core/history"
)

type contentTypeRepository struct {
	db *DB
}

var _ contenttype.Repository = (*contentTypeRepository)(nil)

func NewContentTypeRepository(db *DB) *contentTypeRepository {
	return &contentTypeRepository{db: db}
}

func (repo *contentTypeRepository) EnsureContentType(_ context.Context, appLabel, model string) (contenttype.ContentType, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, ct := range repo.db.contentTypes.all() {
		if ct.AppLabel == appLabel && ct.Model == model {
			return ct, nil
		}
	}
	return repo.db.contentTypes.insert(contenttype.ContentType{AppLabel: appLabel, Model: model}), nil
}

func (repo *contentTypeRepository) QueryContentTypes(context.Context) ([]contenttype.ContentType, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.contentTypes.all(), nil
}

func (repo *contentTypeRepository) GetContentType(_ context.Context, id int) (contenttype.ContentType, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if ct, ok := repo.db.contentTypes.get(id); ok {
		return ct, nil
	}
	return contenttype.ContentType{}, contenttype.ErrNotFound
}

type historyRepository struct {
	db *DB
}

var _ history.Repository = (*historyRepository)(nil)

func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db}
}

func (repo *historyRepository) InsertRecord(_ context.Context, table string, rec history.Record) (history.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	rec.HistoryID = 0
	return repo.db.historyTable(table).insert(rec), nil
}

func (repo *historyRepository) QueryRecords(_ context.Context, table string, objectID int) ([]history.Record, error) {
	repo.db.mutex.Lock() // historyTable may create the table
	defer repo.db.mutex.Unlock()
	recs := repo.db.historyTable(table).filter(func(r history.Record) bool { return r.ObjectID == objectID })
	// newest first
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}
