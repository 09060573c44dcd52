package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/core/website"
)

type userRepository struct {
	db *DB
}

var (
	_ user.Repository        = (*userRepository)(nil)
	_ user.ParentRepository  = (*userRepository)(nil)
	_ user.SSOLinkRepository = (*userRepository)(nil)
)

// NewUserRepository returns a repository implementing the user, parent and SSO link repositories.
func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username string, excludedIDs ...int) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users.all() {
		if usr.Username == username && !containsInt(excludedIDs, usr.ID) {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	usr.ID = 0
	return repo.db.users.insert(usr), nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != 0 {
		if usr, ok := repo.db.users.get(filter.ID); ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users.all() {
		switch {
		case filter.Username != "" && usr.Username == filter.Username:
			return usr, nil
		case filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func matchUser(usr user.User, f user.QueryFilter) bool {
	if f.Search != "" && !containsFold(usr.FirstName, f.Search) && !containsFold(usr.LastName, f.Search) &&
		!containsFold(usr.PhoneNumber, f.Search) && !containsFold(usr.Email, f.Search) {
		return false
	}
	if f.IsStaff != nil && usr.IsStaff != *f.IsStaff {
		return false
	}
	if f.IsSuperuser != nil && usr.IsSuperuser != *f.IsSuperuser {
		return false
	}
	if f.IsActive != nil && usr.IsActive != *f.IsActive {
		return false
	}
	if f.Group != "" && usr.Group != f.Group {
		return false
	}
	if f.Klass != nil && (!usr.Klass.Valid || usr.Klass.Int != *f.Klass) {
		return false
	}
	if f.SchoolID != nil && (!usr.SchoolID.Valid || usr.SchoolID.Int != *f.SchoolID) {
		return false
	}
	if f.InvitedByID != nil && (!usr.InvitedByID.Valid || usr.InvitedByID.Int != *f.InvitedByID) {
		return false
	}
	if f.IsRoot != nil && usr.IsRoot() != *f.IsRoot {
		return false
	}
	if !f.DateJoinedFrom.IsZero() && usr.DateJoined.Before(f.DateJoinedFrom) {
		return false
	}
	if !f.DateJoinedTo.IsZero() && !usr.DateJoined.Before(f.DateJoinedTo) {
		return false
	}
	return true
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := repo.db.users.filter(func(usr user.User) bool { return matchUser(usr, filter) })
	if len(ordering) > 0 {
		sort.SliceStable(users, func(i, j int) bool { return lessUser(users[i], users[j], ordering) })
	}
	return users, nil
}

func lessUser(a, b user.User, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "id":
			cmp = a.ID - b.ID
		case "username":
			cmp = strings.Compare(a.Username, b.Username)
		case "first_name":
			cmp = strings.Compare(a.FirstName, b.FirstName)
		case "last_name":
			cmp = strings.Compare(a.LastName, b.LastName)
		case "email":
			cmp = strings.Compare(a.Email, b.Email)
		case "date_joined":
			cmp = compareTime(a.DateJoined, b.DateJoined)
		case "last_login":
			cmp = compareTime(a.LastLogin.Time, b.LastLogin.Time)
		case "klass":
			cmp = a.Klass.Int - b.Klass.Int
		}
		if cmp != 0 {
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
	}
	return false
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.users.get(usr.ID); !ok {
		return user.User{}, user.ErrNotFound
	}
	return repo.db.users.insert(usr), nil
}

func (repo *userRepository) DeleteUsers(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.deleteUsers(ids...), nil
}

// deleteUsers removes users along with the rows cascading from them. Callers hold the lock.
func (db *DB) deleteUsers(ids ...int) int {
	cnt := db.users.delete(ids...)
	isDeleted := func(userID int) bool { return containsInt(ids, userID) }
	for _, id := range ids {
		delete(db.userParents, id)
	}
	db.profiles.deleteWhere(func(p user.Profile) bool { return isDeleted(p.UserID) })
	db.students.deleteWhere(func(s user.Student) bool { return isDeleted(s.UserID) })
	db.ssoLinks.deleteWhere(func(l user.SSOLink) bool { return isDeleted(l.UserID) })
	db.sessions.deleteWhere(func(s session.Session) bool { return s.UserID.Valid && isDeleted(s.UserID.Int) })
	db.contributors.deleteWhere(func(c website.Contributor) bool { return isDeleted(c.UserID) })
	db.members.deleteWhere(func(m website.HallOfFameMember) bool { return isDeleted(m.UserID) })
	for _, usr := range db.users.rows {
		if usr.InvitedByID.Valid && isDeleted(usr.InvitedByID.Int) {
			usr.InvitedByID.Valid = false
			usr.InvitedByID.Int = 0
		}
	}
	for _, task := range db.tasks.rows {
		authors := task.AuthorIDs[:0]
		for _, a := range task.AuthorIDs {
			if !isDeleted(a) {
				authors = append(authors, a)
			}
		}
		task.AuthorIDs = authors
	}
	return cnt
}

func (repo *userRepository) SetUserParents(_ context.Context, userID int, parentIDs []int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.userParents[userID] = append([]int(nil), parentIDs...)
	return nil
}

func (repo *userRepository) QueryUserParents(_ context.Context, userID int) ([]user.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	parentIDs := repo.db.userParents[userID]
	return repo.db.parents.filter(func(p user.Parent) bool { return containsInt(parentIDs, p.ID) }), nil
}

func (repo *userRepository) QueryParentUsers(_ context.Context, parentID int) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.users.filter(func(u user.User) bool { return containsInt(repo.db.userParents[u.ID], parentID) }), nil
}

func (repo *userRepository) SaveProfile(_ context.Context, prof user.Profile) (user.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.profiles.insert(prof), nil
}

func (repo *userRepository) GetProfile(_ context.Context, userID int) (user.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, p := range repo.db.profiles.all() {
		if p.UserID == userID {
			return p, nil
		}
	}
	return user.Profile{}, user.ErrProfileNotFound
}

func (repo *userRepository) DeleteProfile(_ context.Context, userID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if len(repo.db.profiles.deleteWhere(func(p user.Profile) bool { return p.UserID == userID })) == 0 {
		return user.ErrProfileNotFound
	}
	return nil
}

func (repo *userRepository) SaveStudent(_ context.Context, std user.Student) (user.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.students.insert(std), nil
}

func (repo *userRepository) GetStudent(_ context.Context, userID int) (user.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, s := range repo.db.students.all() {
		if s.UserID == userID {
			return s, nil
		}
	}
	return user.Student{}, user.ErrStudentNotFound
}

func (repo *userRepository) DeleteStudent(_ context.Context, userID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if len(repo.db.students.deleteWhere(func(s user.Student) bool { return s.UserID == userID })) == 0 {
		return user.ErrStudentNotFound
	}
	return nil
}

// Parents

func (repo *userRepository) CreateParent(_ context.Context, p user.Parent) (user.Parent, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	p.ID = 0
	return repo.db.parents.insert(p), nil
}

func (repo *userRepository) GetParent(_ context.Context, id int) (user.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if p, ok := repo.db.parents.get(id); ok {
		return p, nil
	}
	return user.Parent{}, user.ErrParentNotFound
}

func (repo *userRepository) QueryParents(_ context.Context, filter user.ParentFilter) ([]user.Parent, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.parents.filter(func(p user.Parent) bool {
		return filter.Search == "" || containsFold(p.FirstName, filter.Search) ||
			containsFold(p.LastName, filter.Search) || containsFold(p.PhoneNumber, filter.Search)
	}), nil
}

func (repo *userRepository) UpdateParent(_ context.Context, p user.Parent) (user.Parent, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.parents.get(p.ID); !ok {
		return user.Parent{}, user.ErrParentNotFound
	}
	return repo.db.parents.insert(p), nil
}

func (repo *userRepository) DeleteParents(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	cnt := repo.db.parents.delete(ids...)
	for uid, pids := range repo.db.userParents {
		kept := make([]int, 0, len(pids))
		for _, pid := range pids {
			if !containsInt(ids, pid) {
				kept = append(kept, pid)
			}
		}
		repo.db.userParents[uid] = kept
	}
	return cnt, nil
}

// SSO links

func (repo *userRepository) CreateSSOLink(_ context.Context, link user.SSOLink) (user.SSOLink, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	link.ID = 0
	return repo.db.ssoLinks.insert(link), nil
}

func (repo *userRepository) GetSSOLink(_ context.Context, token string) (user.SSOLink, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, l := range repo.db.ssoLinks.all() {
		if l.Token == token {
			return l, nil
		}
	}
	return user.SSOLink{}, user.ErrSSOLinkNotFound
}

func (repo *userRepository) QuerySSOLinks(_ context.Context, joinedBefore time.Time) ([]user.SSOLink, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.ssoLinks.filter(func(l user.SSOLink) bool { return !l.DateJoined.After(joinedBefore) }), nil
}

func (repo *userRepository) DeleteSSOLinks(_ context.Context, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.db.ssoLinks.delete(ids...), nil
}
