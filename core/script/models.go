package script

import (
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

var ScriptModel = contenttype.Model{
	AppLabel:    "internals",
	Name:        "script",
	Table:       "internals_script",
	VerboseName: "Script",
	Columns:     []string{"id", "name", "source"},
}

func RegisterContentTypes(r *contenttype.Registry) {
	r.Register(ScriptModel)
}

type Script struct {
	ID     int    `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Source string `json:"source" db:"source"`
}

func (s Script) String() string { return s.Name }

type Input struct {
	Name   string `json:"name" validate:"required,notblank,max=100"`
	Source string `json:"source" validate:"required"`
}

func (in *Input) clean() {
	in.Name = core.CleanString(in.Name)
}
