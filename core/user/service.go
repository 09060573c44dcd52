package user

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/history"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user")
	ErrParentNotFound     = core.NewNotFoundError("parent")
	ErrProfileNotFound    = core.NewNotFoundError("profile")
	ErrStudentNotFound    = core.NewNotFoundError("student")
	ErrSSOLinkNotFound    = core.NewNotFoundError("SSO link")
	ErrUsernameExists     = errors.New("a user with that username already exists")
	ErrTooManyParents     = errors.Errorf("a user cannot have more than %d parents", MaxParents)
	ErrDuplicatedParent   = errors.New("duplicated parent")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excludedIDs ...int) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUsers also deletes their profiles, students, sso links and parent links.
		DeleteUsers(ctx context.Context, ids ...int) (int, error)

		SetUserParents(ctx context.Context, userID int, parentIDs []int) error
		QueryUserParents(ctx context.Context, userID int) ([]Parent, error)
		QueryParentUsers(ctx context.Context, parentID int) ([]User, error)

		SaveProfile(ctx context.Context, prof Profile) (Profile, error)
		GetProfile(ctx context.Context, userID int) (Profile, error)
		DeleteProfile(ctx context.Context, userID int) error
		SaveStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, userID int) (Student, error)
		DeleteStudent(ctx context.Context, userID int) error
	}

	ParentRepository interface {
		CreateParent(ctx context.Context, p Parent) (Parent, error)
		GetParent(ctx context.Context, id int) (Parent, error)
		QueryParents(ctx context.Context, filter ParentFilter) ([]Parent, error)
		UpdateParent(ctx context.Context, p Parent) (Parent, error)
		DeleteParents(ctx context.Context, ids ...int) (int, error)
	}

	SSOLinkRepository interface {
		CreateSSOLink(ctx context.Context, link SSOLink) (SSOLink, error)
		GetSSOLink(ctx context.Context, token string) (SSOLink, error)
		// QuerySSOLinks returns links with date_joined <= joinedBefore.
		QuerySSOLinks(ctx context.Context, joinedBefore time.Time) ([]SSOLink, error)
		DeleteSSOLinks(ctx context.Context, ids ...int) (int, error)
	}

	Service struct {
		repo       Repository
		parentRepo ParentRepository
		ssoRepo    SSOLinkRepository
		history    history.Recorder
		storage    core.FileStorage
		validate   *validator.Validate
		ssoLinkTTL time.Duration
	}
)

func NewService(
	repo Repository,
	parentRepo ParentRepository,
	ssoRepo SSOLinkRepository,
	hist history.Recorder,
	storage core.FileStorage,
	validate *validator.Validate,
	ssoLinkTTL time.Duration,
) *Service {
	return &Service{
		repo:       repo,
		parentRepo: parentRepo,
		ssoRepo:    ssoRepo,
		history:    hist,
		storage:    storage,
		validate:   validate,
		ssoLinkTTL: ssoLinkTTL,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname string, exclIDs ...int) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, exclIDs...); err != nil {
		if err == ErrUsernameExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username); err != nil {
		return User{}, err
	}
	if err := svc.ValidateInvitedBy(ctx, User{}, null.IntFromPtr(nu.InvitedByID)); err != nil {
		return User{}, err
	}

	usr := User{
		IsActive:   true,
		DateJoined: core.NowFunc().UTC(),
	}
	nu.apply(&usr)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	if err := svc.history.Track(ctx, UserModel, usr.ID, history.Created, usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// CreateSuperuser creates an active staff superuser. Used by the management CLI, it skips the admin form checks.
func (svc *Service) CreateSuperuser(ctx context.Context, uname, email, pwd string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if err := svc.checkUniqueness(ctx, uname); err != nil {
		return User{}, err
	}
	if tag := checkPassword(pwd, uname, email); tag != "" {
		return User{}, core.NewValidationError(errors.New(passwordErrorText(tag)))
	}
	usr := User{
		Username:    uname,
		Email:       email,
		Sex:         SexMale,
		Group:       GroupJunior,
		Birthday:    core.NewDate(core.NowFunc().UTC()),
		IsActive:    true,
		IsStaff:     true,
		IsSuperuser: true,
		DateJoined:  core.NowFunc().UTC(),
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating superuser")
	}
	if err := svc.history.Track(ctx, UserModel, usr.ID, history.Created, usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) Get(ctx context.Context, filter GetFilter) (User, error) {
	filter.Username = core.CleanString(filter.Username, true /* lower */)
	filter.UsernameOrEmail = core.CleanString(filter.UsernameOrEmail, true /* lower */)
	return svc.repo.GetUser(ctx, filter)
}

// Authenticate returns the active user matching the username (or email) and password.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.Get(ctx, GetFilter{UsernameOrEmail: uname})
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if !usr.IsActive || usr.CheckPassword(pwd) != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, core.FilterOrdering(ordering, OrderingFields...))
}

func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	uu.clean()
	if err := svc.validate.Struct(uu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, uu.Username, usr.ID); err != nil {
		return User{}, err
	}
	if err := svc.ValidateInvitedBy(ctx, usr, null.IntFromPtr(uu.InvitedByID)); err != nil {
		return User{}, err
	}

	uu.apply(&usr)
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.save(ctx, usr)
}

func (svc *Service) save(ctx context.Context, usr User) (User, error) {
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "updating user")
	}
	if err := svc.history.Track(ctx, UserModel, usr.ID, history.Changed, usr); err != nil {
		return User{}, err
	}
	return usr, nil
}

// SetPassword applies the password policy then stores the new password of usr.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if tag := checkPassword(pwd, usr.Username, usr.FirstName, usr.LastName, usr.Email); tag != "" {
		return User{}, core.NewValidationError(errors.New(passwordErrorText(tag)))
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.save(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(core.NowFunc().UTC())
	usr, err := svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

// UploadPhoto stores the photo under profiles/<id>/ and saves its path on the user.
func (svc *Service) UploadPhoto(ctx context.Context, id int, filename string, content io.Reader) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		return User{}, err
	}
	name := core.TimestampedName("profiles/"+strconv.Itoa(usr.ID), filename, core.NowFunc())
	name, err = svc.storage.Save(ctx, name, content)
	if err != nil {
		return User{}, errors.Wrap(err, "saving photo")
	}
	usr.Photo = null.StringFrom(name)
	return svc.save(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	users := make([]User, 0, len(ids))
	for _, id := range ids {
		usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			return 0, err
		}
		users = append(users, usr)
	}
	cnt, err := svc.repo.DeleteUsers(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	for _, usr := range users {
		if err := svc.history.Track(ctx, UserModel, usr.ID, history.Deleted, usr); err != nil {
			return cnt, err
		}
	}
	return cnt, nil
}

// Inlines

func (svc *Service) GetInlines(ctx context.Context, userID int) (Inlines, error) {
	var inl Inlines
	parents, err := svc.repo.QueryUserParents(ctx, userID)
	if err != nil {
		return inl, errors.Wrap(err, "querying parents")
	}
	inl.Parents = parents
	if inl.Parents == nil {
		inl.Parents = []Parent{}
	}
	if prof, err := svc.repo.GetProfile(ctx, userID); err == nil {
		inl.Profile = &prof
	} else if !core.IsNotFound(err) {
		return inl, errors.Wrap(err, "getting profile")
	}
	if std, err := svc.repo.GetStudent(ctx, userID); err == nil {
		inl.Student = &std
	} else if !core.IsNotFound(err) {
		return inl, errors.Wrap(err, "getting student")
	}
	return inl, nil
}

// SetParents replaces the parents of a user; at most MaxParents.
func (svc *Service) SetParents(ctx context.Context, userID int, parentIDs []int) ([]Parent, error) {
	if _, err := svc.repo.GetUser(ctx, GetFilter{ID: userID}); err != nil {
		return nil, err
	}
	if len(parentIDs) > MaxParents {
		return nil, core.NewValidationError(ErrTooManyParents, core.FieldError{Field: "parents", Error: ErrTooManyParents.Error()})
	}
	seen := make(map[int]bool, len(parentIDs))
	for _, pid := range parentIDs {
		if seen[pid] {
			return nil, core.NewValidationError(ErrDuplicatedParent, core.FieldError{Field: "parents", Error: ErrDuplicatedParent.Error()})
		}
		seen[pid] = true
		if _, err := svc.parentRepo.GetParent(ctx, pid); err != nil {
			if core.IsNotFound(err) {
				msg := "parent " + strconv.Itoa(pid) + " does not exist"
				return nil, core.NewValidationError(errors.New(msg), core.FieldError{Field: "parents", Error: msg})
			}
			return nil, err
		}
	}
	if err := svc.repo.SetUserParents(ctx, userID, parentIDs); err != nil {
		return nil, errors.Wrap(err, "setting parents")
	}
	return svc.repo.QueryUserParents(ctx, userID)
}

func (svc *Service) SaveProfile(ctx context.Context, userID int, in ProfileInput) (Profile, error) {
	if _, err := svc.repo.GetUser(ctx, GetFilter{ID: userID}); err != nil {
		return Profile{}, err
	}
	if err := svc.validate.Struct(in); err != nil {
		return Profile{}, err
	}
	prof, err := svc.repo.GetProfile(ctx, userID)
	if err != nil && !core.IsNotFound(err) {
		return Profile{}, err
	}
	prof.UserID = userID
	prof.TelegramID = in.TelegramID
	return svc.repo.SaveProfile(ctx, prof)
}

func (svc *Service) DeleteProfile(ctx context.Context, userID int) error {
	return svc.repo.DeleteProfile(ctx, userID)
}

func (svc *Service) SaveStudent(ctx context.Context, userID int, in StudentInput) (Student, error) {
	if _, err := svc.repo.GetUser(ctx, GetFilter{ID: userID}); err != nil {
		return Student{}, err
	}
	if err := svc.validate.Struct(in); err != nil {
		return Student{}, err
	}
	std, err := svc.repo.GetStudent(ctx, userID)
	if err != nil && !core.IsNotFound(err) {
		return Student{}, err
	}
	std.UserID = userID
	std.UniversityID = null.IntFromPtr(in.UniversityID)
	std.AdmissionYear = in.AdmissionYear
	return svc.repo.SaveStudent(ctx, std)
}

func (svc *Service) DeleteStudent(ctx context.Context, userID int) error {
	return svc.repo.DeleteStudent(ctx, userID)
}

// Parents

func (svc *Service) CreateParent(ctx context.Context, in ParentInput) (Parent, error) {
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return Parent{}, err
	}
	var p Parent
	in.apply(&p)
	return svc.parentRepo.CreateParent(ctx, p)
}

func (svc *Service) GetParent(ctx context.Context, id int) (Parent, error) {
	return svc.parentRepo.GetParent(ctx, id)
}

func (svc *Service) QueryParents(ctx context.Context, filter ParentFilter) ([]Parent, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.parentRepo.QueryParents(ctx, filter)
}

func (svc *Service) UpdateParent(ctx context.Context, id int, in ParentInput) (Parent, error) {
	p, err := svc.parentRepo.GetParent(ctx, id)
	if err != nil {
		return Parent{}, err
	}
	in.clean()
	if err := svc.validate.Struct(in); err != nil {
		return Parent{}, err
	}
	in.apply(&p)
	return svc.parentRepo.UpdateParent(ctx, p)
}

func (svc *Service) DeleteParents(ctx context.Context, ids ...int) (int, error) {
	return svc.parentRepo.DeleteParents(ctx, ids...)
}

// ParentUsers returns the users (children) of a parent.
func (svc *Service) ParentUsers(ctx context.Context, parentID int) ([]User, error) {
	return svc.repo.QueryParentUsers(ctx, parentID)
}

// SSO links

func (svc *Service) CreateSSOLink(ctx context.Context, userID int) (SSOLink, error) {
	if _, err := svc.repo.GetUser(ctx, GetFilter{ID: userID}); err != nil {
		return SSOLink{}, err
	}
	return svc.ssoRepo.CreateSSOLink(ctx, SSOLink{
		UserID:     userID,
		Token:      uuid.New().String(),
		DateJoined: core.NowFunc().UTC(),
	})
}

// UseSSOLink consumes a link that is still valid and returns its user.
func (svc *Service) UseSSOLink(ctx context.Context, token string) (User, error) {
	link, err := svc.ssoRepo.GetSSOLink(ctx, token)
	if err != nil {
		return User{}, err
	}
	if _, err := svc.ssoRepo.DeleteSSOLinks(ctx, link.ID); err != nil {
		return User{}, errors.Wrap(err, "deleting SSO link")
	}
	if !link.DateJoined.After(core.NowFunc().Add(-svc.ssoLinkTTL)) {
		return User{}, ErrSSOLinkNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: link.UserID})
}

// ExpiredSSOLinks returns the links created at or before now minus the link TTL.
func (svc *Service) ExpiredSSOLinks(ctx context.Context, now time.Time) ([]SSOLink, error) {
	return svc.ssoRepo.QuerySSOLinks(ctx, now.Add(-svc.ssoLinkTTL).UTC())
}

func (svc *Service) DeleteSSOLinks(ctx context.Context, links ...SSOLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	ids := make([]int, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}
	return svc.ssoRepo.DeleteSSOLinks(ctx, ids...)
}

// ClearSSOLinks deletes the expired links and returns how many were removed.
func (svc *Service) ClearSSOLinks(ctx context.Context, now time.Time) (int, error) {
	links, err := svc.ExpiredSSOLinks(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "querying SSO links")
	}
	return svc.DeleteSSOLinks(ctx, links...)
}

func passwordErrorText(tag string) string {
	switch tag {
	case pwdMinLenTag:
		return pwdMinLenText
	case pwdNoSpaceTag:
		return pwdNoSpaceText
	case pwdNotAllNumTag:
		return pwdNotAllNumText
	case pwdComplexityTag:
		return pwdComplexityText
	case pwdAttrSimTag:
		return pwdAttrSimText
	case pwdNoCommonTag:
		return pwdNoCommonText
	}
	return "invalid password"
}
