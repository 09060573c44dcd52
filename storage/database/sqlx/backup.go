package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/backup"
)

type backupRepository struct {
	db *sqlx.DB
}

var _ backup.Repository = (*backupRepository)(nil)

func NewBackupRepository(db *sqlx.DB) *backupRepository {
	return &backupRepository{db: db}
}

type backupRow struct {
	backup.Backup
	AppLabel  string `db:"app_label"`
	ModelName string `db:"model"`
}

func (row backupRow) unwrap() backup.Backup {
	b := row.Backup
	b.Model = row.AppLabel + "." + row.ModelName
	return b
}

const backupSelect = `SELECT b.id, b.model_id, b.file, b.date, ct.app_label, ct.model
	FROM internals_backup b JOIN content_type ct ON ct.id = b.model_id`

func (repo *backupRepository) CreateBackup(ctx context.Context, b backup.Backup) (backup.Backup, error) {
	id, err := insertReturningID(ctx, repo.db,
		"INSERT INTO internals_backup (model_id, file, date) VALUES (:model_id, :file, :date) RETURNING id", b)
	if err != nil {
		return backup.Backup{}, errors.Wrap(err, "inserting backup")
	}
	return repo.GetBackup(ctx, id)
}

func (repo *backupRepository) GetBackup(ctx context.Context, id int) (backup.Backup, error) {
	var row backupRow
	if err := repo.db.GetContext(ctx, &row, backupSelect+" WHERE b.id = $1", id); err != nil {
		return backup.Backup{}, trapNoRowsErr(err, backup.ErrNotFound, "getting backup")
	}
	return row.unwrap(), nil
}

func (repo *backupRepository) QueryBackups(ctx context.Context, filter backup.Filter) ([]backup.Backup, error) {
	var conds conditions
	if filter.ContentTypeID != nil {
		conds.add("b.model_id = ?", *filter.ContentTypeID)
	}
	if filter.Date != nil {
		conds.add("b.date = ?", filter.Date.String())
	}
	var rows []backupRow
	query := repo.db.Rebind(backupSelect + conds.where() + " ORDER BY b.date DESC, b.id DESC")
	if err := repo.db.SelectContext(ctx, &rows, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying backups")
	}
	backups := make([]backup.Backup, 0, len(rows))
	for _, row := range rows {
		backups = append(backups, row.unwrap())
	}
	return backups, nil
}

func (repo *backupRepository) DeleteBackups(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM internals_backup WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting backups")
}
