package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
)

const AppLabel = "users"

// Sexes
const (
	SexMale   = "male"
	SexFemale = "female"
)

// Groups
const (
	GroupJunior = "junior"
	GroupMiddle = "middle"
	GroupSenior = "senior"
)

const MaxParents = 2

var (
	Sexes  = []string{SexMale, SexFemale}
	Groups = []string{GroupJunior, GroupMiddle, GroupSenior}

	UserModel = contenttype.Model{
		AppLabel:      AppLabel,
		Name:          "user",
		Table:         "users_user",
		VerboseName:   "User",
		DateHierarchy: "date_joined",
		Columns: []string{
			"id", "username", "password", "first_name", "last_name", "middle_name", "email", "sex", "phone_number",
			"group", "birthday", "school_id", "photo", "klass", "symbol", "invited_by_id", "is_active", "is_staff",
			"is_superuser", "date_joined", "last_login",
		},
		Tracked: true,
	}
	ParentModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "parent",
		Table:       "users_parent",
		VerboseName: "Parent",
		Columns:     []string{"id", "sex", "last_name", "first_name", "middle_name", "job", "phone_number"},
	}
	ProfileModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "profile",
		Table:       "users_profile",
		VerboseName: "Profile",
		Columns:     []string{"id", "user_id", "telegram_id"},
	}
	StudentModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "student",
		Table:       "users_student",
		VerboseName: "Student",
		Columns:     []string{"id", "user_id", "university_id", "admission_year"},
	}
	SSOLinkModel = contenttype.Model{
		AppLabel:    AppLabel,
		Name:        "ssolink",
		Table:       "users_ssolink",
		VerboseName: "SSO Link",
		Columns:     []string{"id", "user_id", "token", "date_joined"},
	}
)

func RegisterContentTypes(r *contenttype.Registry) {
	r.Register(UserModel, ParentModel, ProfileModel, StudentModel, SSOLinkModel)
}

type User struct {
	ID           int         `json:"id" db:"id"`
	Username     string      `json:"username" db:"username"`
	PasswordHash string      `json:"-" db:"password"`
	FirstName    string      `json:"first_name" db:"first_name"`
	LastName     string      `json:"last_name" db:"last_name"`
	MiddleName   null.String `json:"middle_name" db:"middle_name"`
	Email        string      `json:"email" db:"email"`
	Sex          string      `json:"sex" db:"sex"`
	PhoneNumber  string      `json:"phone_number" db:"phone_number"`
	Group        string      `json:"group" db:"group"`
	Birthday     core.Date   `json:"birthday" db:"birthday"`
	SchoolID     null.Int    `json:"school_id" db:"school_id"`
	Photo        null.String `json:"photo" db:"photo"`
	Klass        null.Int    `json:"klass" db:"klass"`
	Symbol       null.String `json:"symbol" db:"symbol"`
	InvitedByID  null.Int    `json:"invited_by_id" db:"invited_by_id"`
	IsActive     bool        `json:"is_active" db:"is_active"`
	IsStaff      bool        `json:"is_staff" db:"is_staff"`
	IsSuperuser  bool        `json:"is_superuser" db:"is_superuser"`
	DateJoined   time.Time   `json:"date_joined" db:"date_joined"` // UTC
	LastLogin    null.Time   `json:"last_login" db:"last_login"`   // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pwd))
}

func (u User) FullName() string {
	return fullName(u.LastName, u.FirstName, u.MiddleName)
}

func (u User) String() string {
	return fmt.Sprintf("%s (ID: %d, %s)", u.FullName(), u.ID, u.PhoneNumber)
}

func (u User) IsRoot() bool { return !u.InvitedByID.Valid }

func fullName(last, first string, middle null.String) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{last, first, middle.String} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

type Parent struct {
	ID          int         `json:"id" db:"id"`
	Sex         string      `json:"sex" db:"sex"`
	LastName    string      `json:"last_name" db:"last_name"`
	FirstName   string      `json:"first_name" db:"first_name"`
	MiddleName  null.String `json:"middle_name" db:"middle_name"`
	Job         string      `json:"job" db:"job"`
	PhoneNumber string      `json:"phone_number" db:"phone_number"`
}

func (p Parent) FullName() string {
	return fullName(p.LastName, p.FirstName, p.MiddleName)
}

func (p Parent) String() string {
	return fmt.Sprintf("%s, %s, %s", p.FullName(), p.Job, p.PhoneNumber)
}

type Profile struct {
	ID         int `json:"id" db:"id"`
	UserID     int `json:"user_id" db:"user_id"`
	TelegramID int `json:"telegram_id" db:"telegram_id"`
}

type Student struct {
	ID            int      `json:"id" db:"id"`
	UserID        int      `json:"user_id" db:"user_id"`
	UniversityID  null.Int `json:"university_id" db:"university_id"`
	AdmissionYear int      `json:"admission_year" db:"admission_year"`
}

// SSOLink is a single use login link, valid for a short time.
type SSOLink struct {
	ID         int       `json:"id" db:"id"`
	UserID     int       `json:"user_id" db:"user_id"`
	Token      string    `json:"token" db:"token"`
	DateJoined time.Time `json:"date_joined" db:"date_joined"` // UTC
}

// Inlines groups the objects edited along with a User.
type Inlines struct {
	Parents []Parent `json:"parents"`
	Profile *Profile `json:"profile"`
	Student *Student `json:"student"`
}

// UserInput holds the editable fields of a User.
type UserInput struct {
	Username    string    `json:"username" validate:"required,max=150,uname"`
	FirstName   string    `json:"first_name" validate:"required,max=128"`
	LastName    string    `json:"last_name" validate:"required,max=128"`
	MiddleName  string    `json:"middle_name" validate:"max=128"`
	Email       string    `json:"email" validate:"omitempty,email"`
	Sex         string    `json:"sex" validate:"required,sex"`
	PhoneNumber string    `json:"phone_number" validate:"required,e164"`
	Group       string    `json:"group" validate:"omitempty,usergroup"`
	Birthday    core.Date `json:"birthday"`
	SchoolID    *int      `json:"school_id"`
	Klass       *int      `json:"klass" validate:"omitempty,min=1,max=11"`
	Symbol      string    `json:"symbol" validate:"max=1"`
	InvitedByID *int      `json:"invited_by_id"`
	IsActive    *bool     `json:"is_active"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
}

func (in *UserInput) clean() {
	in.Username = core.CleanString(in.Username, true /* lower */)
	in.FirstName = core.CleanString(in.FirstName)
	in.LastName = core.CleanString(in.LastName)
	in.MiddleName = core.CleanString(in.MiddleName)
	in.Email = core.CleanString(in.Email, true /* lower */)
	in.PhoneNumber = core.CleanString(in.PhoneNumber)
	in.Symbol = core.CleanString(in.Symbol)
	if in.Group == "" {
		in.Group = GroupJunior
	}
}

func (in UserInput) apply(usr *User) {
	usr.Username = in.Username
	usr.FirstName = in.FirstName
	usr.LastName = in.LastName
	usr.MiddleName = null.NewString(in.MiddleName, in.MiddleName != "")
	usr.Email = in.Email
	usr.Sex = in.Sex
	usr.PhoneNumber = in.PhoneNumber
	usr.Group = in.Group
	if !in.Birthday.IsZero() {
		usr.Birthday = in.Birthday
	} else if usr.Birthday.IsZero() {
		usr.Birthday = core.NewDate(core.NowFunc().UTC())
	}
	usr.SchoolID = null.IntFromPtr(in.SchoolID)
	usr.Klass = null.IntFromPtr(in.Klass)
	usr.Symbol = null.NewString(in.Symbol, in.Symbol != "")
	usr.InvitedByID = null.IntFromPtr(in.InvitedByID)
	if in.IsActive != nil {
		usr.IsActive = *in.IsActive
	}
	usr.IsStaff = in.IsStaff
	usr.IsSuperuser = in.IsSuperuser
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	UserInput
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// UpdateUser defines what information may be provided to modify an existing User.
// It replaces every editable field; the password is only changed when provided.
type UpdateUser struct {
	UserInput
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

type ParentInput struct {
	Sex         string `json:"sex" validate:"required,sex"`
	LastName    string `json:"last_name" validate:"required,max=128"`
	FirstName   string `json:"first_name" validate:"required,max=128"`
	MiddleName  string `json:"middle_name" validate:"max=128"`
	Job         string `json:"job" validate:"required,max=128"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

func (in *ParentInput) clean() {
	in.LastName = core.CleanString(in.LastName)
	in.FirstName = core.CleanString(in.FirstName)
	in.MiddleName = core.CleanString(in.MiddleName)
	in.Job = core.CleanString(in.Job)
	in.PhoneNumber = core.CleanString(in.PhoneNumber)
}

func (in ParentInput) apply(p *Parent) {
	p.Sex = in.Sex
	p.LastName = in.LastName
	p.FirstName = in.FirstName
	p.MiddleName = null.NewString(in.MiddleName, in.MiddleName != "")
	p.Job = in.Job
	p.PhoneNumber = in.PhoneNumber
}

type ProfileInput struct {
	TelegramID int `json:"telegram_id" validate:"required"`
}

type StudentInput struct {
	UniversityID  *int `json:"university_id"`
	AdmissionYear int  `json:"admission_year" validate:"required,min=1900,max=2100"`
}

type GetFilter struct {
	ID              int
	Username        string
	UsernameOrEmail string
}

// QueryFilter applies AND on the set fields.
// Search does a case-insensitive match on one of first_name, last_name, phone_number or email.
type QueryFilter struct {
	Search      string
	IsStaff     *bool
	IsSuperuser *bool
	IsActive    *bool
	Group       string
	Klass       *int
	SchoolID    *int
	InvitedByID *int
	IsRoot      *bool
	// DateJoined bounds: From <= date_joined < To
	DateJoinedFrom time.Time
	DateJoinedTo   time.Time
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Group = core.CleanString(qf.Group, true /* lower */)
}

// OrderingFields are the fields users can be sorted on.
var OrderingFields = []string{"id", "username", "first_name", "last_name", "email", "date_joined", "last_login", "klass"}

type ParentFilter struct {
	Search string // first_name, last_name or phone_number
}
