package school

import (
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

const AppLabel = "internals"

var (
	SchoolModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "school",
		Table:       "internals_school",
		VerboseName: "School",
		Columns:     []string{"id", "full_name", "headmaster"},
	}
	UniversityModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "university",
		Table:       "internals_university",
		VerboseName: "University",
		Columns:     []string{"id", "full_name", "location", "logo"},
	}
)

func RegisterContentTypes(r *contenttype.Registry) {
	r.Register(SchoolModel, UniversityModel)
}

type School struct {
	ID         int    `json:"id" db:"id"`
	FullName   string `json:"full_name" db:"full_name"`
	Headmaster string `json:"headmaster" db:"headmaster"`
}

func (s School) String() string { return s.FullName }

type University struct {
	ID       int    `json:"id" db:"id"`
	FullName string `json:"full_name" db:"full_name"`
	Location string `json:"location" db:"location"`
	Logo     string `json:"logo" db:"logo"`
}

func (u University) String() string { return u.FullName }

type SchoolInput struct {
	FullName   string `json:"full_name" validate:"required,notblank,max=128"`
	Headmaster string `json:"headmaster" validate:"max=128"`
}

func (in *SchoolInput) clean() {
	in.FullName = core.CleanString(in.FullName)
	in.Headmaster = core.CleanString(in.Headmaster)
}

type UniversityInput struct {
	FullName string `json:"full_name" validate:"required,notblank,max=128"`
	Location string `json:"location" validate:"required,max=128"`
}

func (in *UniversityInput) clean() {
	in.FullName = core.CleanString(in.FullName)
	in.Location = core.CleanString(in.Location)
}

// Filter.Search matches full_name, case-insensitively.
type Filter struct {
	Search string
}
