package website

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/contenttype"
)

const AppLabel = "website"

var (
	ContributorModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "contributor",
		Table:       "website_contributor",
		VerboseName: "Contributor",
		Columns:     []string{"id", "user_id", "contribution", "url", "photo"},
		Tracked:     true,
	}
	HallOfFameMemberModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "halloffamemember",
		Table:       "website_halloffamemember",
		VerboseName: "Hall of Fame Member",
		Columns:     []string{"id", "user_id", "achievement", "photo", "order"},
		Tracked:     true,
	}
)

func RegisterContentTypes(r *contenttype.Registry) {
	r.Register(ContributorModel, HallOfFameMemberModel)
}

// Contributor and HallOfFameMember display as their user's full name (FullName, filled on reads).
type Contributor struct {
	ID           int         `json:"id" db:"id"`
	UserID       int         `json:"user_id" db:"user_id"`
	FullName     string      `json:"full_name" db:"-"`
	Contribution string      `json:"contribution" db:"contribution"`
	URL          null.String `json:"url" db:"url"`
	Photo        string      `json:"photo" db:"photo"`
}

func (c Contributor) String() string { return c.FullName }

type HallOfFameMember struct {
	ID          int    `json:"id" db:"id"`
	UserID      int    `json:"user_id" db:"user_id"`
	FullName    string `json:"full_name" db:"-"`
	Achievement string `json:"achievement" db:"achievement"`
	Photo       string `json:"photo" db:"photo"`
	Order       int    `json:"order" db:"order"`
}

func (m HallOfFameMember) String() string { return m.FullName }

type ContributorInput struct {
	UserID       int    `json:"user_id" validate:"required"`
	Contribution string `json:"contribution" validate:"required,notblank"`
	URL          string `json:"url" validate:"omitempty,url,max=200"`
}

type HallOfFameMemberInput struct {
	UserID      int    `json:"user_id" validate:"required"`
	Achievement string `json:"achievement" validate:"required,notblank"`
}
