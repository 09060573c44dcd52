package backup

import (
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

var BackupModel = contenttype.Model{
	AppLabel:      "internals",
	Name:          "backup",
	Table:         "internals_backup",
	VerboseName:   "Backup",
	DateHierarchy: "date",
	Columns:       []string{"id", "model_id", "file", "date"},
}

func RegisterContentTypes(r *contenttype.Registry) {
	r.Register(BackupModel)
}

// Backup is the CSV export of one model for one day.
type Backup struct {
	ID            int       `json:"id" db:"id"`
	ContentTypeID int       `json:"model_id" db:"model_id"`
	Model         string    `json:"model" db:"-"` // app_label.model, filled on reads
	File          string    `json:"file" db:"file"`
	Date          core.Date `json:"date" db:"date"`
}

func (b Backup) String() string { return b.Model + " backup (" + b.Date.String() + ")" }

// Filter applies AND on the set fields.
type Filter struct {
	ContentTypeID *int
	Date          *core.Date
}

// FilePath returns where the backup of appLabel.model for day is stored.
func FilePath(appLabel, model string, day core.Date) string {
	return appLabel + "/" + model + "/" + day.String() + ".csv"
}
