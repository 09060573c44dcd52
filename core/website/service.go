package website

import (
	"context"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/history"
	"github.com/trezcool/academia/core/user"
)

var (
	ErrContributorNotFound = core.NewNotFoundError("contributor")
	ErrMemberNotFound      = core.NewNotFoundError("hall of fame member")
	ErrUserTaken           = errors.New("this user already has an entry")
)

type (
	Repository interface {
		CreateContributor(ctx context.Context, c Contributor) (Contributor, error)
		GetContributor(ctx context.Context, id int) (Contributor, error)
		QueryContributors(ctx context.Context) ([]Contributor, error)
		UpdateContributor(ctx context.Context, c Contributor) (Contributor, error)
		DeleteContributors(ctx context.Context, ids ...int) (int, error)

		// members are listed by "order"
		CreateMember(ctx context.Context, m HallOfFameMember) (HallOfFameMember, error)
		GetMember(ctx context.Context, id int) (HallOfFameMember, error)
		QueryMembers(ctx context.Context) ([]HallOfFameMember, error)
		UpdateMember(ctx context.Context, m HallOfFameMember) (HallOfFameMember, error)
		DeleteMembers(ctx context.Context, ids ...int) (int, error)
		ReorderMembers(ctx context.Context, ids []int) error
	}

	// UserGetter is the part of the user service needed to link entries to users.
	UserGetter interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service struct {
		repo     Repository
		users    UserGetter
		history  history.Recorder
		storage  core.FileStorage
		validate *validator.Validate
	}
)

func NewService(repo Repository, users UserGetter, hist history.Recorder, storage core.FileStorage, validate *validator.Validate) *Service {
	return &Service{repo: repo, users: users, history: hist, storage: storage, validate: validate}
}

func (svc *Service) userName(ctx context.Context, userID int) (string, error) {
	usr, err := svc.users.GetByID(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return "", core.NewValidationError(err, core.FieldError{Field: "user_id", Error: "user does not exist"})
		}
		return "", err
	}
	return usr.FullName(), nil
}

func userTaken() error {
	return core.NewValidationError(ErrUserTaken, core.FieldError{Field: "user_id", Error: ErrUserTaken.Error()})
}

// Contributors

func (svc *Service) CreateContributor(ctx context.Context, in ContributorInput) (Contributor, error) {
	in.Contribution = core.CleanString(in.Contribution)
	in.URL = core.CleanString(in.URL)
	if err := svc.validate.Struct(in); err != nil {
		return Contributor{}, err
	}
	name, err := svc.userName(ctx, in.UserID)
	if err != nil {
		return Contributor{}, err
	}
	existing, err := svc.repo.QueryContributors(ctx)
	if err != nil {
		return Contributor{}, err
	}
	for _, c := range existing {
		if c.UserID == in.UserID {
			return Contributor{}, userTaken()
		}
	}
	c, err := svc.repo.CreateContributor(ctx, Contributor{
		UserID:       in.UserID,
		Contribution: in.Contribution,
		URL:          null.NewString(in.URL, in.URL != ""),
	})
	if err != nil {
		return Contributor{}, errors.Wrap(err, "creating contributor")
	}
	c.FullName = name
	return c, svc.history.Track(ctx, ContributorModel, c.ID, history.Created, c)
}

func (svc *Service) GetContributor(ctx context.Context, id int) (Contributor, error) {
	return svc.repo.GetContributor(ctx, id)
}

func (svc *Service) QueryContributors(ctx context.Context) ([]Contributor, error) {
	return svc.repo.QueryContributors(ctx)
}

func (svc *Service) UpdateContributor(ctx context.Context, id int, in ContributorInput) (Contributor, error) {
	c, err := svc.repo.GetContributor(ctx, id)
	if err != nil {
		return Contributor{}, err
	}
	in.Contribution = core.CleanString(in.Contribution)
	in.URL = core.CleanString(in.URL)
	if err := svc.validate.Struct(in); err != nil {
		return Contributor{}, err
	}
	if in.UserID != c.UserID {
		if c.FullName, err = svc.userName(ctx, in.UserID); err != nil {
			return Contributor{}, err
		}
	}
	c.UserID = in.UserID
	c.Contribution = in.Contribution
	c.URL = null.NewString(in.URL, in.URL != "")
	return svc.saveContributor(ctx, c)
}

func (svc *Service) saveContributor(ctx context.Context, c Contributor) (Contributor, error) {
	name := c.FullName
	c, err := svc.repo.UpdateContributor(ctx, c)
	if err != nil {
		return Contributor{}, errors.Wrap(err, "updating contributor")
	}
	if c.FullName == "" {
		c.FullName = name
	}
	return c, svc.history.Track(ctx, ContributorModel, c.ID, history.Changed, c)
}

// UploadContributorPhoto stores the photo under contributor/.
func (svc *Service) UploadContributorPhoto(ctx context.Context, id int, filename string, content io.Reader) (Contributor, error) {
	c, err := svc.repo.GetContributor(ctx, id)
	if err != nil {
		return Contributor{}, err
	}
	name, err := svc.storage.Save(ctx, core.TimestampedName("contributor", filename, core.NowFunc()), content)
	if err != nil {
		return Contributor{}, errors.Wrap(err, "saving photo")
	}
	c.Photo = name
	return svc.saveContributor(ctx, c)
}

func (svc *Service) DeleteContributors(ctx context.Context, ids ...int) (int, error) {
	var deleted []Contributor
	for _, id := range ids {
		if c, err := svc.repo.GetContributor(ctx, id); err == nil {
			deleted = append(deleted, c)
		} else if !core.IsNotFound(err) {
			return 0, err
		}
	}
	cnt, err := svc.repo.DeleteContributors(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting contributors")
	}
	for _, c := range deleted {
		if err := svc.history.Track(ctx, ContributorModel, c.ID, history.Deleted, c); err != nil {
			return cnt, err
		}
	}
	return cnt, nil
}

// Hall of fame

func (svc *Service) CreateMember(ctx context.Context, in HallOfFameMemberInput) (HallOfFameMember, error) {
	in.Achievement = core.CleanString(in.Achievement)
	if err := svc.validate.Struct(in); err != nil {
		return HallOfFameMember{}, err
	}
	name, err := svc.userName(ctx, in.UserID)
	if err != nil {
		return HallOfFameMember{}, err
	}
	existing, err := svc.repo.QueryMembers(ctx)
	if err != nil {
		return HallOfFameMember{}, err
	}
	for _, m := range existing {
		if m.UserID == in.UserID {
			return HallOfFameMember{}, userTaken()
		}
	}
	m, err := svc.repo.CreateMember(ctx, HallOfFameMember{UserID: in.UserID, Achievement: in.Achievement})
	if err != nil {
		return HallOfFameMember{}, errors.Wrap(err, "creating hall of fame member")
	}
	m.FullName = name
	return m, svc.history.Track(ctx, HallOfFameMemberModel, m.ID, history.Created, m)
}

func (svc *Service) GetMember(ctx context.Context, id int) (HallOfFameMember, error) {
	return svc.repo.GetMember(ctx, id)
}

func (svc *Service) QueryMembers(ctx context.Context) ([]HallOfFameMember, error) {
	return svc.repo.QueryMembers(ctx)
}

func (svc *Service) UpdateMember(ctx context.Context, id int, in HallOfFameMemberInput) (HallOfFameMember, error) {
	m, err := svc.repo.GetMember(ctx, id)
	if err != nil {
		return HallOfFameMember{}, err
	}
	in.Achievement = core.CleanString(in.Achievement)
	if err := svc.validate.Struct(in); err != nil {
		return HallOfFameMember{}, err
	}
	if in.UserID != m.UserID {
		if m.FullName, err = svc.userName(ctx, in.UserID); err != nil {
			return HallOfFameMember{}, err
		}
	}
	m.UserID = in.UserID
	m.Achievement = in.Achievement
	return svc.saveMember(ctx, m)
}

func (svc *Service) saveMember(ctx context.Context, m HallOfFameMember) (HallOfFameMember, error) {
	name := m.FullName
	m, err := svc.repo.UpdateMember(ctx, m)
	if err != nil {
		return HallOfFameMember{}, errors.Wrap(err, "updating hall of fame member")
	}
	if m.FullName == "" {
		m.FullName = name
	}
	return m, svc.history.Track(ctx, HallOfFameMemberModel, m.ID, history.Changed, m)
}

// UploadMemberPhoto stores the photo under hall_of_fame/.
func (svc *Service) UploadMemberPhoto(ctx context.Context, id int, filename string, content io.Reader) (HallOfFameMember, error) {
	m, err := svc.repo.GetMember(ctx, id)
	if err != nil {
		return HallOfFameMember{}, err
	}
	name, err := svc.storage.Save(ctx, core.TimestampedName("hall_of_fame", filename, core.NowFunc()), content)
	if err != nil {
		return HallOfFameMember{}, errors.Wrap(err, "saving photo")
	}
	m.Photo = name
	return svc.saveMember(ctx, m)
}

func (svc *Service) DeleteMembers(ctx context.Context, ids ...int) (int, error) {
	var deleted []HallOfFameMember
	for _, id := range ids {
		if m, err := svc.repo.GetMember(ctx, id); err == nil {
			deleted = append(deleted, m)
		} else if !core.IsNotFound(err) {
			return 0, err
		}
	}
	cnt, err := svc.repo.DeleteMembers(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting hall of fame members")
	}
	for _, m := range deleted {
		if err := svc.history.Track(ctx, HallOfFameMemberModel, m.ID, history.Deleted, m); err != nil {
			return cnt, err
		}
	}
	return cnt, nil
}

// ReorderMembers numbers the given members 1..n in the given order.
func (svc *Service) ReorderMembers(ctx context.Context, ids []int) ([]HallOfFameMember, error) {
	if err := core.CheckReorder(ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := svc.repo.GetMember(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := svc.repo.ReorderMembers(ctx, ids); err != nil {
		return nil, errors.Wrap(err, "reordering hall of fame members")
	}
	return svc.repo.QueryMembers(ctx)
}
