package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/script"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	id, err := insertReturningID(ctx, repo.db,
		"INSERT INTO internals_school (full_name, headmaster) VALUES (:full_name, :headmaster) RETURNING id", s)
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	s.ID = id
	return s, nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id int) (school.School, error) {
	var s school.School
	if err := repo.db.GetContext(ctx, &s, "SELECT id, full_name, headmaster FROM internals_school WHERE id = $1", id); err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrSchoolNotFound, "getting school")
	}
	return s, nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, filter school.Filter) ([]school.School, error) {
	schools := make([]school.School, 0)
	err := repo.db.SelectContext(ctx, &schools,
		"SELECT id, full_name, headmaster FROM internals_school WHERE full_name ILIKE $1 ORDER BY id", likeArg(filter.Search))
	return schools, errors.Wrap(err, "querying schools")
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, s school.School) (school.School, error) {
	n, err := namedExec(ctx, repo.db,
		"UPDATE internals_school SET full_name = :full_name, headmaster = :headmaster WHERE id = :id", s)
	if err != nil {
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if n == 0 {
		return school.School{}, school.ErrSchoolNotFound
	}
	return s, nil
}

func (repo *schoolRepository) DeleteSchools(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM internals_school WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting schools")
}

func (repo *schoolRepository) CreateUniversity(ctx context.Context, u school.University) (school.University, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO internals_university (full_name, location, logo)
		VALUES (:full_name, :location, :logo) RETURNING id`, u)
	if err != nil {
		return school.University{}, errors.Wrap(err, "inserting university")
	}
	u.ID = id
	return u, nil
}

func (repo *schoolRepository) GetUniversity(ctx context.Context, id int) (school.University, error) {
	var u school.University
	err := repo.db.GetContext(ctx, &u, "SELECT id, full_name, location, logo FROM internals_university WHERE id = $1", id)
	if err != nil {
		return school.University{}, trapNoRowsErr(err, school.ErrUniversityNotFound, "getting university")
	}
	return u, nil
}

func (repo *schoolRepository) QueryUniversities(ctx context.Context, filter school.Filter) ([]school.University, error) {
	universities := make([]school.University, 0)
	err := repo.db.SelectContext(ctx, &universities,
		"SELECT id, full_name, location, logo FROM internals_university WHERE full_name ILIKE $1 ORDER BY id", likeArg(filter.Search))
	return universities, errors.Wrap(err, "querying universities")
}

func (repo *schoolRepository) UpdateUniversity(ctx context.Context, u school.University) (school.University, error) {
	n, err := namedExec(ctx, repo.db,
		"UPDATE internals_university SET full_name = :full_name, location = :location, logo = :logo WHERE id = :id", u)
	if err != nil {
		return school.University{}, errors.Wrap(err, "updating university")
	}
	if n == 0 {
		return school.University{}, school.ErrUniversityNotFound
	}
	return u, nil
}

func (repo *schoolRepository) DeleteUniversities(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM internals_university WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting universities")
}

type scriptRepository struct {
	db *sqlx.DB
}

var _ script.Repository = (*scriptRepository)(nil)

func NewScriptRepository(db *sqlx.DB) *scriptRepository {
	return &scriptRepository{db: db}
}

func (repo *scriptRepository) CreateScript(ctx context.Context, s script.Script) (script.Script, error) {
	id, err := insertReturningID(ctx, repo.db, "INSERT INTO internals_script (name, source) VALUES (:name, :source) RETURNING id", s)
	if err != nil {
		return script.Script{}, errors.Wrap(err, "inserting script")
	}
	s.ID = id
	return s, nil
}

func (repo *scriptRepository) GetScript(ctx context.Context, id int) (script.Script, error) {
	var s script.Script
	if err := repo.db.GetContext(ctx, &s, "SELECT id, name, source FROM internals_script WHERE id = $1", id); err != nil {
		return script.Script{}, trapNoRowsErr(err, script.ErrNotFound, "getting script")
	}
	return s, nil
}

func (repo *scriptRepository) QueryScripts(ctx context.Context, search string) ([]script.Script, error) {
	scripts := make([]script.Script, 0)
	err := repo.db.SelectContext(ctx, &scripts,
		"SELECT id, name, source FROM internals_script WHERE name ILIKE $1 ORDER BY id", likeArg(search))
	return scripts, errors.Wrap(err, "querying scripts")
}

func (repo *scriptRepository) UpdateScript(ctx context.Context, s script.Script) (script.Script, error) {
	n, err := namedExec(ctx, repo.db, "UPDATE internals_script SET name = :name, source = :source WHERE id = :id", s)
	if err != nil {
		return script.Script{}, errors.Wrap(err, "updating script")
	}
	if n == 0 {
		return script.Script{}, script.ErrNotFound
	}
	return s, nil
}

func (repo *scriptRepository) DeleteScripts(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM internals_script WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting scripts")
}
