package inmemdb

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/academia/core/backup"
	"github.com/trezcool/academia/core/contenttype"
	"github.com/trezcool/academia/core/history"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/script"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/training"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/core/website"
)

// DB is an in-memory database holding every table. It backs the unit tests.
type DB struct {
	mutex sync.RWMutex

	contentTypes *table[int, contenttype.ContentType]
	schools      *table[int, school.School]
	universities *table[int, school.University]
	scripts      *table[int, script.Script]
	backups      *table[int, backup.Backup]

	users       *table[int, user.User]
	userParents map[int][]int // {user_id: [parent_id]}
	parents     *table[int, user.Parent]
	profiles    *table[int, user.Profile]
	students    *table[int, user.Student]
	ssoLinks    *table[int, user.SSOLink]
	sessions    *table[string, session.Session]

	topics        *table[int, training.Topic]
	tasks         *table[int, training.Task]
	standardTests *table[int, training.StandardTest]

	contributors *table[int, website.Contributor]
	members      *table[int, website.HallOfFameMember]

	history map[string]*table[int, history.Record] // {table name: records}
}

func Open() *DB {
	return &DB{
		contentTypes:  newTable(func(o *contenttype.ContentType) *int { return &o.ID }),
		schools:       newTable(func(o *school.School) *int { return &o.ID }),
		universities:  newTable(func(o *school.University) *int { return &o.ID }),
		scripts:       newTable(func(o *script.Script) *int { return &o.ID }),
		backups:       newTable(func(o *backup.Backup) *int { return &o.ID }),
		users:         newTable(func(o *user.User) *int { return &o.ID }),
		userParents:   make(map[int][]int),
		parents:       newTable(func(o *user.Parent) *int { return &o.ID }),
		profiles:      newTable(func(o *user.Profile) *int { return &o.ID }),
		students:      newTable(func(o *user.Student) *int { return &o.ID }),
		ssoLinks:      newTable(func(o *user.SSOLink) *int { return &o.ID }),
		sessions:      newTable(func(o *session.Session) *string { return &o.Key }),
		topics:        newTable(func(o *training.Topic) *int { return &o.ID }),
		tasks:         newTable(func(o *training.Task) *int { return &o.ID }),
		standardTests: newTable(func(o *training.StandardTest) *int { return &o.ID }),
		contributors:  newTable(func(o *website.Contributor) *int { return &o.ID }),
		members:       newTable(func(o *website.HallOfFameMember) *int { return &o.ID }),
		history:       make(map[string]*table[int, history.Record]),
	}
}

// historyTable returns the records table named name, creating it if needed. Callers hold the lock.
func (db *DB) historyTable(name string) *table[int, history.Record] {
	t, ok := db.history[name]
	if !ok {
		t = newTable(func(o *history.Record) *int { return &o.HistoryID })
		db.history[name] = t
	}
	return t
}

// dataTable returns the table stored under a SQL table name.
func (db *DB) dataTable(name string) (dataTable, bool) {
	switch name {
	case "content_type":
		return db.contentTypes, true
	case "internals_school":
		return db.schools, true
	case "internals_university":
		return db.universities, true
	case "internals_script":
		return db.scripts, true
	case "internals_backup":
		return db.backups, true
	case "users_user":
		return db.users, true
	case "users_parent":
		return db.parents, true
	case "users_profile":
		return db.profiles, true
	case "users_student":
		return db.students, true
	case "users_ssolink":
		return db.ssoLinks, true
	case "users_session":
		return db.sessions, true
	case "trainings_topic":
		return db.topics, true
	case "trainings_task":
		return db.tasks, true
	case "trainings_standardtest":
		return db.standardTests, true
	case "website_contributor":
		return db.contributors, true
	case "website_halloffamemember":
		return db.members, true
	}
	if strings.Contains(name, "_historical") {
		return db.historyTable(name), true
	}
	return nil, false
}

// table is a primary-key indexed set of rows.
type table[K comparable, T any] struct {
	seq  int
	rows map[K]*T
	pk   func(*T) *K
}

func newTable[K comparable, T any](pk func(*T) *K) *table[K, T] {
	return &table[K, T]{rows: make(map[K]*T), pk: pk}
}

// insert stores obj; zero int keys get the next sequence value.
func (t *table[K, T]) insert(obj T) T {
	if id, ok := any(t.pk(&obj)).(*int); ok {
		if *id == 0 {
			t.seq++
			*id = t.seq
		} else if *id > t.seq {
			t.seq = *id
		}
	}
	t.rows[*t.pk(&obj)] = &obj
	return obj
}

func (t *table[K, T]) get(key K) (T, bool) {
	if obj, ok := t.rows[key]; ok {
		return *obj, true
	}
	var zero T
	return zero, false
}

// all returns the rows sorted by primary key.
func (t *table[K, T]) all() []T {
	keys := make([]K, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
	objs := make([]T, 0, len(keys))
	for _, k := range keys {
		objs = append(objs, *t.rows[k])
	}
	return objs
}

func (t *table[K, T]) filter(keep func(T) bool) []T {
	objs := make([]T, 0)
	for _, obj := range t.all() {
		if keep(obj) {
			objs = append(objs, obj)
		}
	}
	return objs
}

func (t *table[K, T]) delete(keys ...K) int {
	cnt := 0
	for _, k := range keys {
		if _, ok := t.rows[k]; ok {
			delete(t.rows, k)
			cnt++
		}
	}
	return cnt
}

func (t *table[K, T]) deleteWhere(match func(T) bool) []T {
	var deleted []T
	for k, obj := range t.rows {
		if match(*obj) {
			deleted = append(deleted, *obj)
			delete(t.rows, k)
		}
	}
	return deleted
}

// dataTable methods let DataIO read and write rows without knowing their type.

type dataTable interface {
	objects() []interface{}
	newObject() interface{} // pointer to a zero row
	put(obj interface{})
	find(key string) (interface{}, bool) // copy of the row with that primary key
}

func (t *table[K, T]) objects() []interface{} {
	rows := t.all()
	objs := make([]interface{}, 0, len(rows))
	for i := range rows {
		objs = append(objs, &rows[i])
	}
	return objs
}

func (t *table[K, T]) newObject() interface{} { return new(T) }

func (t *table[K, T]) put(obj interface{}) { t.insert(*obj.(*T)) }

func (t *table[K, T]) find(key string) (interface{}, bool) {
	for k, obj := range t.rows {
		if fmt.Sprint(k) == key {
			cp := *obj
			return &cp, true
		}
	}
	return nil, false
}

func lessKey(a, b interface{}) bool {
	switch x := a.(type) {
	case int:
		return x < b.(int)
	case string:
		return x < b.(string)
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsInt(ids []int, id int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
