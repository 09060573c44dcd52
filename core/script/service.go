package script

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var ErrNotFound = core.NewNotFoundError("script")

type (
	Repository interface {
		CreateScript(ctx context.Context, s Script) (Script, error)
		GetScript(ctx context.Context, id int) (Script, error)
		// QueryScripts matches search on the script name.
		QueryScripts(ctx context.Context, search string) ([]Script, error)
		UpdateScript(ctx context.Context, s Script) (Script, error)
		DeleteScripts(ctx context.Context, ids ...int) (int, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, in Input) (Script, error) {
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return Script{}, err
	}
	return svc.repo.CreateScript(ctx, Script{Name: in.Name, Source: in.Source})
}

func (svc *Service) Get(ctx context.Context, id int) (Script, error) {
	return svc.repo.GetScript(ctx, id)
}

func (svc *Service) Query(ctx context.Context, search string) ([]Script, error) {
	return svc.repo.QueryScripts(ctx, core.CleanString(search))
}

func (svc *Service) Update(ctx context.Context, id int, in Input) (Script, error) {
	s, err := svc.repo.GetScript(ctx, id)
	if err != nil {
		return Script{}, err
	}
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return Script{}, err
	}
	s.Name = in.Name
	s.Source = in.Source
	return svc.repo.UpdateScript(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) (int, error) {
	return svc.repo.DeleteScripts(ctx, ids...)
}

// Execute runs source, see Run.
func (svc *Service) Execute(source string) string {
	return Run(source)
}
