package school

import (
	"context"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	ErrSchoolNotFound     = core.NewNotFoundError("school")
	ErrUniversityNotFound = core.NewNotFoundError("university")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, s School) (School, error)
		GetSchool(ctx context.Context, id int) (School, error)
		QuerySchools(ctx context.Context, filter Filter) ([]School, error)
		UpdateSchool(ctx context.Context, s School) (School, error)
		DeleteSchools(ctx context.Context, ids ...int) (int, error)

		CreateUniversity(ctx context.Context, u University) (University, error)
		GetUniversity(ctx context.Context, id int) (University, error)
		QueryUniversities(ctx context.Context, filter Filter) ([]University, error)
		UpdateUniversity(ctx context.Context, u University) (University, error)
		DeleteUniversities(ctx context.Context, ids ...int) (int, error)
	}

	Service struct {
		repo     Repository
		storage  core.FileStorage
		validate *validator.Validate
	}
)

func NewService(repo Repository, storage core.FileStorage, validate *validator.Validate) *Service {
	return &Service{repo: repo, storage: storage, validate: validate}
}

func (svc *Service) CreateSchool(ctx context.Context, in SchoolInput) (School, error) {
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return School{}, err
	}
	return svc.repo.CreateSchool(ctx, School{FullName: in.FullName, Headmaster: in.Headmaster})
}

func (svc *Service) GetSchool(ctx context.Context, id int) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

func (svc *Service) QuerySchools(ctx context.Context, filter Filter) ([]School, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QuerySchools(ctx, filter)
}

func (svc *Service) UpdateSchool(ctx context.Context, id int, in SchoolInput) (School, error) {
	s, err := svc.repo.GetSchool(ctx, id)
	if err != nil {
		return School{}, err
	}
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return School{}, err
	}
	s.FullName = in.FullName
	s.Headmaster = in.Headmaster
	return svc.repo.UpdateSchool(ctx, s)
}

func (svc *Service) DeleteSchools(ctx context.Context, ids ...int) (int, error) {
	return svc.repo.DeleteSchools(ctx, ids...)
}

func (svc *Service) CreateUniversity(ctx context.Context, in UniversityInput) (University, error) {
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return University{}, err
	}
	return svc.repo.CreateUniversity(ctx, University{FullName: in.FullName, Location: in.Location})
}

func (svc *Service) GetUniversity(ctx context.Context, id int) (University, error) {
	return svc.repo.GetUniversity(ctx, id)
}

func (svc *Service) QueryUniversities(ctx context.Context, filter Filter) ([]University, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.QueryUniversities(ctx, filter)
}

func (svc *Service) UpdateUniversity(ctx context.Context, id int, in UniversityInput) (University, error) {
	u, err := svc.repo.GetUniversity(ctx, id)
	if err != nil {
		return University{}, err
	}
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return University{}, err
	}
	u.FullName = in.FullName
	u.Location = in.Location
	return svc.repo.UpdateUniversity(ctx, u)
}

// UploadLogo stores the logo under university_logos/<id>/ and saves its path.
func (svc *Service) UploadLogo(ctx context.Context, id int, filename string, content io.Reader) (University, error) {
	u, err := svc.repo.GetUniversity(ctx, id)
	if err != nil {
		return University{}, err
	}
	name := core.TimestampedName("university_logos/"+strconv.Itoa(u.ID), filename, core.NowFunc())
	if u.Logo, err = svc.storage.Save(ctx, name, content); err != nil {
		return University{}, errors.Wrap(err, "saving logo")
	}
	return svc.repo.UpdateUniversity(ctx, u)
}

func (svc *Service) DeleteUniversities(ctx context.Context, ids ...int) (int, error) {
	return svc.repo.DeleteUniversities(ctx, ids...)
}
