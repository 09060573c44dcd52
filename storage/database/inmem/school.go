package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/script"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, s school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	s.ID = 0
	return repo.db.schools.insert(s), nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, id int) (school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if s, ok := repo.db.schools.get(id); ok {
		return s, nil
	}
	return school.School{}, school.ErrSchoolNotFound
}

func (repo *schoolRepository) QuerySchools(_ context.Context, filter school.Filter) ([]school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.schools.filter(func(s school.School) bool { return containsFold(s.FullName, filter.Search) }), nil
}

func (repo *schoolRepository) UpdateSchool(_ context.Context, s school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.schools.get(s.ID); !ok {
		return school.School{}, school.ErrSchoolNotFound
	}
	return repo.db.schools.insert(s), nil
}

func (repo *schoolRepository) DeleteSchools(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, usr := range repo.db.users.rows {
		if usr.SchoolID.Valid && containsInt(ids, usr.SchoolID.Int) {
			usr.SchoolID.Valid = false
			usr.SchoolID.Int = 0
		}
	}
	return repo.db.schools.delete(ids...), nil
}

func (repo *schoolRepository) CreateUniversity(_ context.Context, u school.University) (school.University, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	u.ID = 0
	return repo.db.universities.insert(u), nil
}

func (repo *schoolRepository) GetUniversity(_ context.Context, id int) (school.University, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if u, ok := repo.db.universities.get(id); ok {
		return u, nil
	}
	return school.University{}, school.ErrUniversityNotFound
}

func (repo *schoolRepository) QueryUniversities(_ context.Context, filter school.Filter) ([]school.University, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.universities.filter(func(u school.University) bool { return containsFold(u.FullName, filter.Search) }), nil
}

func (repo *schoolRepository) UpdateUniversity(_ context.Context, u school.University) (school.University, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.universities.get(u.ID); !ok {
		return school.University{}, school.ErrUniversityNotFound
	}
	return repo.db.universities.insert(u), nil
}

func (repo *schoolRepository) DeleteUniversities(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, std := range repo.db.students.rows {
		if std.UniversityID.Valid && containsInt(ids, std.UniversityID.Int) {
			std.UniversityID.Valid = false
			std.UniversityID.Int = 0
		}
	}
	return repo.db.universities.delete(ids...), nil
}

type scriptRepository struct {
	db *DB
}

var _ script.Repository = (*scriptRepository)(nil)

func NewScriptRepository(db *DB) *scriptRepository {
	return &scriptRepository{db: db}
}

func (repo *scriptRepository) CreateScript(_ context.Context, s script.Script) (script.Script, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	s.ID = 0
	return repo.db.scripts.insert(s), nil
}

func (repo *scriptRepository) GetScript(_ context.Context, id int) (script.Script, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if s, ok := repo.db.scripts.get(id); ok {
		return s, nil
	}
	return script.Script{}, script.ErrNotFound
}

func (repo *scriptRepository) QueryScripts(_ context.Context, search string) ([]script.Script, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.scripts.filter(func(s script.Script) bool { return containsFold(s.Name, search) }), nil
}

func (repo *scriptRepository) UpdateScript(_ context.Context, s script.Script) (script.Script, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.scripts.get(s.ID); !ok {
		return script.Script{}, script.ErrNotFound
	}
	return repo.db.scripts.insert(s), nil
}

func (repo *scriptRepository) DeleteScripts(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.scripts.delete(ids...), nil
}

// userFullName returns the full name of a user. Callers hold the lock.
func (db *DB) userFullName(id int) string {
	if usr, ok := db.users.get(id); ok {
		return usr.FullName()
	}
	return ""
}
