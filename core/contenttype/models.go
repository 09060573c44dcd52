package contenttype

import (
	"sort"
	"strings"
	"sync"
)

// History snapshot columns, shared by every historical model.
var HistoryColumns = []string{"history_id", "object_id", "history_date", "history_type", "history_user_id", "data"}

// Model describes a registered data model: where it lives and how it is exported.
type Model struct {
	AppLabel      string
	Name          string // lower case model name
	Table         string
	VerboseName   string
	DateHierarchy string   // date/time column used to bucket rows by day
	Columns       []string // exported columns, "id" first
	Tracked       bool     // has a historical twin
}

func (m Model) Key() string { return m.AppLabel + "." + m.Name }

func (m Model) IsHistorical() bool { return strings.HasPrefix(m.Name, "historical") }

// Historical returns the model holding the change history of m.
func (m Model) Historical() Model {
	return Model{
		AppLabel:    m.AppLabel,
		Name:        "historical" + m.Name,
		Table:       m.AppLabel + "_historical" + m.Name,
		VerboseName: "historical " + m.VerboseName,
		Columns:     HistoryColumns,
	}
}

func (m Model) HasColumn(col string) bool {
	for _, c := range m.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// ContentType is the persisted reference to a Model.
type ContentType struct {
	ID       int    `json:"id" db:"id"`
	AppLabel string `json:"app_label" db:"app_label"`
	Model    string `json:"model" db:"model"`
}

func (ct ContentType) Key() string    { return ct.AppLabel + "." + ct.Model }
func (ct ContentType) String() string { return ct.Key() }

// Registry holds every model known to the running program.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Model)}
}

// Register adds m, and its historical twin when m is tracked.
func (r *Registry) Register(models ...Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range models {
		r.models[m.Key()] = m
		if m.Tracked {
			h := m.Historical()
			r.models[h.Key()] = h
		}
	}
}

func (r *Registry) Lookup(appLabel, name string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[appLabel+"."+strings.ToLower(name)]
	return m, ok
}

// Models returns all registered models sorted by key.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	models := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Key() < models[j].Key() })
	return models
}
