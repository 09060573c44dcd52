package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core/backup"
)

type backupRepository struct {
	db *DB
}

var _ backup.Repository = (*backupRepository)(nil)

func NewBackupRepository(db *DB) *backupRepository {
	return &backupRepository{db: db}
}

// withModel fills the content type key of b. Callers hold the lock.
func (repo *backupRepository) withModel(b backup.Backup) backup.Backup {
	if ct, ok := repo.db.contentTypes.get(b.ContentTypeID); ok {
		b.Model = ct.Key()
	}
	return b
}

func (repo *backupRepository) CreateBackup(_ context.Context, b backup.Backup) (backup.Backup, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	b.ID = 0
	return repo.withModel(repo.db.backups.insert(b)), nil
}

func (repo *backupRepository) GetBackup(_ context.Context, id int) (backup.Backup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if b, ok := repo.db.backups.get(id); ok {
		return repo.withModel(b), nil
	}
	return backup.Backup{}, backup.ErrNotFound
}

func (repo *backupRepository) QueryBackups(_ context.Context, filter backup.Filter) ([]backup.Backup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	backups := repo.db.backups.filter(func(b backup.Backup) bool {
		if filter.ContentTypeID != nil && b.ContentTypeID != *filter.ContentTypeID {
			return false
		}
		if filter.Date != nil && !b.Date.Equal(filter.Date.Time) {
			return false
		}
		return true
	})
	res := make([]backup.Backup, 0, len(backups))
	for i := len(backups) - 1; i >= 0; i-- {
		res = append(res, repo.withModel(backups[i]))
	}
	return res, nil
}

func (repo *backupRepository) DeleteBackups(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.backups.delete(ids...), nil
}
