package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const userColumns = `id, username, password, first_name, last_name, middle_name, email, sex, phone_number,
	"group", birthday, school_id, photo, klass, symbol, invited_by_id, is_active, is_staff, is_superuser,
	date_joined, last_login`

type userRepository struct {
	db *sqlx.DB
}

var (
	_ user.Repository        = (*userRepository)(nil)
	_ user.ParentRepository  = (*userRepository)(nil)
	_ user.SSOLinkRepository = (*userRepository)(nil)
)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedIDs ...int) error {
	var conds conditions
	conds.add("username = ?", username)
	if len(excludedIDs) > 0 {
		conds.add("id NOT IN (?)", excludedIDs)
	}
	var exists []bool
	if err := selectIn(ctx, repo.db, &exists, "SELECT true FROM users_user"+conds.where()+" LIMIT 1", conds.args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if len(exists) > 0 {
		return user.ErrUsernameExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO users_user (
		username, password, first_name, last_name, middle_name, email, sex, phone_number, "group", birthday,
		school_id, photo, klass, symbol, invited_by_id, is_active, is_staff, is_superuser, date_joined, last_login
	) VALUES (
		:username, :password, :first_name, :last_name, :middle_name, :email, :sex, :phone_number, :group, :birthday,
		:school_id, :photo, :klass, :symbol, :invited_by_id, :is_active, :is_staff, :is_superuser, :date_joined, :last_login
	) RETURNING id`, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var conds conditions
	switch {
	case filter.ID != 0:
		conds.add("id = ?", filter.ID)
	case filter.Username != "":
		conds.add("username = ?", filter.Username)
	case filter.UsernameOrEmail != "":
		conds.add("username = ? OR email = ?", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}
	var usr user.User
	query := repo.db.Rebind("SELECT " + userColumns + " FROM users_user" + conds.where() + " ORDER BY id LIMIT 1")
	if err := repo.db.GetContext(ctx, &usr, query, conds.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var conds conditions
	if filter.Search != "" {
		val := likeArg(filter.Search)
		conds.add("first_name ILIKE ? OR last_name ILIKE ? OR phone_number ILIKE ? OR email ILIKE ?", val, val, val, val)
	}
	if filter.IsStaff != nil {
		conds.add("is_staff = ?", *filter.IsStaff)
	}
	if filter.IsSuperuser != nil {
		conds.add("is_superuser = ?", *filter.IsSuperuser)
	}
	if filter.IsActive != nil {
		conds.add("is_active = ?", *filter.IsActive)
	}
	if filter.Group != "" {
		conds.add(`"group" = ?`, filter.Group)
	}
	if filter.Klass != nil {
		conds.add("klass = ?", *filter.Klass)
	}
	if filter.SchoolID != nil {
		conds.add("school_id = ?", *filter.SchoolID)
	}
	if filter.InvitedByID != nil {
		conds.add("invited_by_id = ?", *filter.InvitedByID)
	}
	if filter.IsRoot != nil {
		if *filter.IsRoot {
			conds.add("invited_by_id IS NULL")
		} else {
			conds.add("invited_by_id IS NOT NULL")
		}
	}
	if !filter.DateJoinedFrom.IsZero() {
		conds.add("date_joined >= ?", filter.DateJoinedFrom.UTC())
	}
	if !filter.DateJoinedTo.IsZero() {
		conds.add("date_joined < ?", filter.DateJoinedTo.UTC())
	}

	orderBy := "id"
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		orderBy = strings.Join(orderList, ", ")
	}

	users := make([]user.User, 0)
	query := repo.db.Rebind("SELECT " + userColumns + " FROM users_user" + conds.where() + " ORDER BY " + orderBy)
	if err := repo.db.SelectContext(ctx, &users, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	n, err := namedExec(ctx, repo.db, `UPDATE users_user SET
		username = :username, password = :password, first_name = :first_name, last_name = :last_name,
		middle_name = :middle_name, email = :email, sex = :sex, phone_number = :phone_number, "group" = :group,
		birthday = :birthday, school_id = :school_id, photo = :photo, klass = :klass, symbol = :symbol,
		invited_by_id = :invited_by_id, is_active = :is_active, is_staff = :is_staff,
		is_superuser = :is_superuser, date_joined = :date_joined, last_login = :last_login
	WHERE id = :id`, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

// DeleteUsers relies on the foreign keys to cascade.
func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM users_user WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting users")
}

func (repo *userRepository) SetUserParents(ctx context.Context, userID int, parentIDs []int) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM users_user_parents WHERE user_id = $1", userID); err != nil {
			return errors.Wrap(err, "clearing parents")
		}
		for _, pid := range parentIDs {
			if _, err := tx.ExecContext(ctx, "INSERT INTO users_user_parents (user_id, parent_id) VALUES ($1, $2)", userID, pid); err != nil {
				return errors.Wrap(err, "adding parent")
			}
		}
		return nil
	})
}

func (repo *userRepository) QueryUserParents(ctx context.Context, userID int) ([]user.Parent, error) {
	parents := make([]user.Parent, 0)
	err := repo.db.SelectContext(ctx, &parents, `SELECT p.id, p.sex, p.last_name, p.first_name, p.middle_name, p.job, p.phone_number
		FROM users_parent p JOIN users_user_parents up ON up.parent_id = p.id
		WHERE up.user_id = $1 ORDER BY p.id`, userID)
	return parents, errors.Wrap(err, "querying user parents")
}

func (repo *userRepository) QueryParentUsers(ctx context.Context, parentID int) ([]user.User, error) {
	users := make([]user.User, 0)
	err := repo.db.SelectContext(ctx, &users, "SELECT "+userColumns+` FROM users_user
		WHERE id IN (SELECT user_id FROM users_user_parents WHERE parent_id = $1) ORDER BY id`, parentID)
	return users, errors.Wrap(err, "querying parent users")
}

// SaveProfile upserts on user_id.
func (repo *userRepository) SaveProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO users_profile (user_id, telegram_id) VALUES (:user_id, :telegram_id)
		ON CONFLICT (user_id) DO UPDATE SET telegram_id = EXCLUDED.telegram_id RETURNING id`, prof)
	if err != nil {
		return user.Profile{}, errors.Wrap(err, "saving profile")
	}
	prof.ID = id
	return prof, nil
}

func (repo *userRepository) GetProfile(ctx context.Context, userID int) (user.Profile, error) {
	var prof user.Profile
	err := repo.db.GetContext(ctx, &prof, "SELECT id, user_id, telegram_id FROM users_profile WHERE user_id = $1", userID)
	if err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrProfileNotFound, "getting profile")
	}
	return prof, nil
}

func (repo *userRepository) DeleteProfile(ctx context.Context, userID int) error {
	n, err := execIn(ctx, repo.db, "DELETE FROM users_profile WHERE user_id = ?", userID)
	if err != nil {
		return errors.Wrap(err, "deleting profile")
	}
	if n == 0 {
		return user.ErrProfileNotFound
	}
	return nil
}

// SaveStudent upserts on user_id.
func (repo *userRepository) SaveStudent(ctx context.Context, std user.Student) (user.Student, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO users_student (user_id, university_id, admission_year)
		VALUES (:user_id, :university_id, :admission_year)
		ON CONFLICT (user_id) DO UPDATE SET university_id = EXCLUDED.university_id, admission_year = EXCLUDED.admission_year
		RETURNING id`, std)
	if err != nil {
		return user.Student{}, errors.Wrap(err, "saving student")
	}
	std.ID = id
	return std, nil
}

func (repo *userRepository) GetStudent(ctx context.Context, userID int) (user.Student, error) {
	var std user.Student
	err := repo.db.GetContext(ctx, &std, "SELECT id, user_id, university_id, admission_year FROM users_student WHERE user_id = $1", userID)
	if err != nil {
		return user.Student{}, trapNoRowsErr(err, user.ErrStudentNotFound, "getting student")
	}
	return std, nil
}

func (repo *userRepository) DeleteStudent(ctx context.Context, userID int) error {
	n, err := execIn(ctx, repo.db, "DELETE FROM users_student WHERE user_id = ?", userID)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n == 0 {
		return user.ErrStudentNotFound
	}
	return nil
}

// Parents

const parentColumns = "id, sex, last_name, first_name, middle_name, job, phone_number"

func (repo *userRepository) CreateParent(ctx context.Context, p user.Parent) (user.Parent, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO users_parent (sex, last_name, first_name, middle_name, job, phone_number)
		VALUES (:sex, :last_name, :first_name, :middle_name, :job, :phone_number) RETURNING id`, p)
	if err != nil {
		return user.Parent{}, errors.Wrap(err, "inserting parent")
	}
	p.ID = id
	return p, nil
}

func (repo *userRepository) GetParent(ctx context.Context, id int) (user.Parent, error) {
	var p user.Parent
	if err := repo.db.GetContext(ctx, &p, "SELECT "+parentColumns+" FROM users_parent WHERE id = $1", id); err != nil {
		return user.Parent{}, trapNoRowsErr(err, user.ErrParentNotFound, "getting parent")
	}
	return p, nil
}

func (repo *userRepository) QueryParents(ctx context.Context, filter user.ParentFilter) ([]user.Parent, error) {
	var conds conditions
	if filter.Search != "" {
		val := likeArg(filter.Search)
		conds.add("first_name ILIKE ? OR last_name ILIKE ? OR phone_number ILIKE ?", val, val, val)
	}
	parents := make([]user.Parent, 0)
	query := repo.db.Rebind("SELECT " + parentColumns + " FROM users_parent" + conds.where() + " ORDER BY id")
	err := repo.db.SelectContext(ctx, &parents, query, conds.args...)
	return parents, errors.Wrap(err, "querying parents")
}

func (repo *userRepository) UpdateParent(ctx context.Context, p user.Parent) (user.Parent, error) {
	n, err := namedExec(ctx, repo.db, `UPDATE users_parent SET sex = :sex, last_name = :last_name, first_name = :first_name,
		middle_name = :middle_name, job = :job, phone_number = :phone_number WHERE id = :id`, p)
	if err != nil {
		return user.Parent{}, errors.Wrap(err, "updating parent")
	}
	if n == 0 {
		return user.Parent{}, user.ErrParentNotFound
	}
	return p, nil
}

func (repo *userRepository) DeleteParents(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM users_parent WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting parents")
}

// SSO links

func (repo *userRepository) CreateSSOLink(ctx context.Context, link user.SSOLink) (user.SSOLink, error) {
	id, err := insertReturningID(ctx, repo.db, `INSERT INTO users_ssolink (user_id, token, date_joined)
		VALUES (:user_id, :token, :date_joined) RETURNING id`, link)
	if err != nil {
		return user.SSOLink{}, errors.Wrap(err, "inserting SSO link")
	}
	link.ID = id
	return link, nil
}

func (repo *userRepository) GetSSOLink(ctx context.Context, token string) (user.SSOLink, error) {
	var link user.SSOLink
	err := repo.db.GetContext(ctx, &link, "SELECT id, user_id, token, date_joined FROM users_ssolink WHERE token = $1", token)
	if err != nil {
		return user.SSOLink{}, trapNoRowsErr(err, user.ErrSSOLinkNotFound, "getting SSO link")
	}
	return link, nil
}

func (repo *userRepository) QuerySSOLinks(ctx context.Context, joinedBefore time.Time) ([]user.SSOLink, error) {
	links := make([]user.SSOLink, 0)
	err := repo.db.SelectContext(ctx, &links,
		"SELECT id, user_id, token, date_joined FROM users_ssolink WHERE date_joined <= $1 ORDER BY id", joinedBefore.UTC())
	return links, errors.Wrap(err, "querying SSO links")
}

func (repo *userRepository) DeleteSSOLinks(ctx context.Context, ids ...int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execIn(ctx, repo.db, "DELETE FROM users_ssolink WHERE id IN (?)", ids)
	return n, errors.Wrap(err, "deleting SSO links")
}
