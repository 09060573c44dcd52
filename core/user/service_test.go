package user_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

const pwd = "Xy7$kLm9q"

func newUser(uname string, invitedBy *int) user.NewUser {
	return user.NewUser{
		UserInput: user.UserInput{
			Username:    uname,
			FirstName:   "Jean",
			LastName:    "Mukendi",
			Sex:         user.SexMale,
			PhoneNumber: "+243810000001",
			InvitedByID: invitedBy,
		},
		Password:        pwd,
		PasswordConfirm: pwd,
	}
}

func updateOf(usr user.User, invitedBy *int) user.UpdateUser {
	return user.UpdateUser{UserInput: user.UserInput{
		Username:    usr.Username,
		FirstName:   usr.FirstName,
		LastName:    usr.LastName,
		Sex:         usr.Sex,
		PhoneNumber: usr.PhoneNumber,
		InvitedByID: invitedBy,
	}}
}

func TestService_Create(t *testing.T) {
	c := testutil.NewContainer(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC)
	testutil.SetNow(t, now)

	root, err := c.Users.Create(ctx, newUser("  Root ", nil))
	require.NoError(t, err)
	assert.Equal(t, "root", root.Username)
	assert.True(t, root.IsActive)
	assert.True(t, root.IsRoot())
	assert.Equal(t, user.GroupJunior, root.Group)
	assert.Equal(t, now, root.DateJoined)
	assert.NoError(t, root.CheckPassword(pwd))

	t.Run("username taken", func(t *testing.T) {
		_, err := c.Users.Create(ctx, newUser("ROOT", &root.ID))
		assert.EqualError(t, err, user.ErrUsernameExists.Error())
	})

	t.Run("invalid fields", func(t *testing.T) {
		nu := newUser("bad name", &root.ID)
		nu.Sex = "other"
		nu.PasswordConfirm = "nope"
		_, err := c.Users.Create(ctx, nu)
		var vErrs validator.ValidationErrors
		require.True(t, errors.As(err, &vErrs), "%v", err)
		fields := make([]string, 0, len(vErrs))
		for _, e := range vErrs {
			fields = append(fields, e.Field())
		}
		assert.ElementsMatch(t, []string{"username", "sex", "password_confirm"}, fields)
	})

	t.Run("weak password", func(t *testing.T) {
		nu := newUser("weak", &root.ID)
		nu.Password, nu.PasswordConfirm = "jeanjean", "jeanjean"
		_, err := c.Users.Create(ctx, nu)
		var vErrs validator.ValidationErrors
		require.True(t, errors.As(err, &vErrs), "%v", err)
		assert.Equal(t, "password", vErrs[0].Field())
	})

	records, err := c.History.List(ctx, user.UserModel, root.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotContains(t, string(records[0].Data), "password")
}

func TestService_ValidateInvitedBy(t *testing.T) {
	c := testutil.NewContainer(t)
	ctx := context.Background()

	a, err := c.Users.Create(ctx, newUser("a", nil))
	require.NoError(t, err)
	b, err := c.Users.Create(ctx, newUser("b", &a.ID))
	require.NoError(t, err)
	cc, err := c.Users.Create(ctx, newUser("c", &b.ID))
	require.NoError(t, err)
	missing := 404

	tests := []struct {
		name      string
		usr       user.User
		invitedBy *int
		wantErr   string
	}{
		{name: "second root", usr: user.User{}, wantErr: "Tree must have only one root user"},
		{name: "root stays root", usr: a},
		{name: "self invite", usr: b, invitedBy: &b.ID, wantErr: "User can't be invited by himself"},
		{name: "cycle", usr: a, invitedBy: &cc.ID, wantErr: "This connection violates tree structure"},
		{name: "cycle (direct child)", usr: b, invitedBy: &cc.ID, wantErr: "This connection violates tree structure"},
		{name: "unknown inviter", usr: b, invitedBy: &missing, wantErr: "invited_by user does not exist"},
		{name: "move leaf", usr: cc, invitedBy: &a.ID},
		{name: "new user", usr: user.User{}, invitedBy: &cc.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Users.ValidateInvitedBy(ctx, tt.usr, null.IntFromPtr(tt.invitedBy))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, "invited_by_id", vErr.Fields[0].Field)
		})
	}

	t.Run("update", func(t *testing.T) {
		_, err := c.Users.Update(ctx, a.ID, updateOf(a, &cc.ID))
		assert.EqualError(t, err, "This connection violates tree structure")

		moved, err := c.Users.Update(ctx, cc.ID, updateOf(cc, &a.ID))
		require.NoError(t, err)
		assert.Equal(t, null.IntFrom(a.ID), moved.InvitedByID)
	})

	t.Run("delete", func(t *testing.T) {
		n, err := c.Users.Delete(ctx, b.ID, missing)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		roots, err := c.Users.Query(ctx, user.QueryFilter{IsRoot: &[]bool{true}[0]}, nil)
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, a.ID, roots[0].ID)
	})
}

func TestService_Query(t *testing.T) {
	c := testutil.NewContainer(t)
	ctx := context.Background()
	day := time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC)

	root := testutil.CreateUser(t, c.UserRepo, "root", "", testutil.UserOpts{IsSuperuser: true, DateJoined: day})
	staff := testutil.CreateUser(t, c.UserRepo, "staff", "", testutil.UserOpts{InvitedByID: &root.ID, IsStaff: true, DateJoined: day.Add(time.Hour)})
	off := testutil.CreateUser(t, c.UserRepo, "off", "", testutil.UserOpts{InvitedByID: &root.ID, Inactive: true, DateJoined: day.AddDate(0, 0, 1)})

	ids := func(users []user.User) []int {
		out := make([]int, 0, len(users))
		for _, u := range users {
			out = append(out, u.ID)
		}
		return out
	}
	query := func(f user.QueryFilter, ord ...core.DBOrdering) []int {
		t.Helper()
		users, err := c.Users.Query(ctx, f, ord)
		require.NoError(t, err)
		return ids(users)
	}
	yes, no := true, false

	assert.Equal(t, []int{root.ID, staff.ID, off.ID}, query(user.QueryFilter{}))
	assert.Equal(t, []int{root.ID, staff.ID}, query(user.QueryFilter{IsStaff: &yes}))
	assert.Equal(t, []int{root.ID}, query(user.QueryFilter{IsSuperuser: &yes}))
	assert.Equal(t, []int{off.ID}, query(user.QueryFilter{IsActive: &no}))
	assert.Equal(t, []int{staff.ID, off.ID}, query(user.QueryFilter{InvitedByID: &root.ID}))
	assert.Equal(t, []int{staff.ID}, query(user.QueryFilter{Search: " STAFF "}))
	assert.Equal(t, []int{root.ID, staff.ID}, query(user.QueryFilter{DateJoinedFrom: day, DateJoinedTo: day.AddDate(0, 0, 1)}))
	assert.Equal(t, []int{off.ID, staff.ID, root.ID}, query(user.QueryFilter{}, core.DBOrdering{Field: "date_joined"}))
	// unknown ordering fields are ignored
	assert.Equal(t, []int{root.ID, staff.ID, off.ID}, query(user.QueryFilter{}, core.DBOrdering{Field: "password", Ascending: false}))
}

func TestService_inlines(t *testing.T) {
	c := testutil.NewContainer(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, c.UserRepo, "kid", "")

	inl, err := c.Users.GetInlines(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Inlines{Parents: []user.Parent{}}, inl)

	newParent := func(last string) user.Parent {
		p, err := c.Users.CreateParent(ctx, user.ParentInput{
			Sex: user.SexFemale, LastName: last, FirstName: "Marie", Job: "Nurse", PhoneNumber: "+243820000000",
		})
		require.NoError(t, err)
		return p
	}
	p1, p2, p3 := newParent("Kabila"), newParent("Lumumba"), newParent("Mobutu")

	_, err = c.Users.SetParents(ctx, usr.ID, []int{p1.ID, p2.ID, p3.ID})
	assert.EqualError(t, err, "a user cannot have more than 2 parents")
	_, err = c.Users.SetParents(ctx, usr.ID, []int{p1.ID, p1.ID})
	assert.EqualError(t, err, "duplicated parent")
	_, err = c.Users.SetParents(ctx, usr.ID, []int{p1.ID, 404})
	assert.EqualError(t, err, "parent 404 does not exist")

	parents, err := c.Users.SetParents(ctx, usr.ID, []int{p2.ID, p1.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []user.Parent{p1, p2}, parents)

	children, err := c.Users.ParentUsers(ctx, p2.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, usr.ID, children[0].ID)

	prof, err := c.Users.SaveProfile(ctx, usr.ID, user.ProfileInput{TelegramID: 12345})
	require.NoError(t, err)
	prof2, err := c.Users.SaveProfile(ctx, usr.ID, user.ProfileInput{TelegramID: 678})
	require.NoError(t, err)
	assert.Equal(t, prof.ID, prof2.ID)

	_, err = c.Users.SaveStudent(ctx, usr.ID, user.StudentInput{AdmissionYear: 1800})
	require.Error(t, err)
	std, err := c.Users.SaveStudent(ctx, usr.ID, user.StudentInput{AdmissionYear: 2020})
	require.NoError(t, err)

	inl, err = c.Users.GetInlines(ctx, usr.ID)
	require.NoError(t, err)
	assert.Len(t, inl.Parents, 2)
	require.NotNil(t, inl.Profile)
	assert.Equal(t, 678, inl.Profile.TelegramID)
	require.NotNil(t, inl.Student)
	assert.Equal(t, std, *inl.Student)

	require.NoError(t, c.Users.DeleteProfile(ctx, usr.ID))
	n, err := c.Users.DeleteParents(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inl, err = c.Users.GetInlines(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, []user.Parent{p2}, inl.Parents)
	assert.Nil(t, inl.Profile)
}

func TestService_SSOLinks(t *testing.T) {
	c := testutil.NewContainer(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC)
	testutil.SetNow(t, now)
	usr := testutil.CreateUser(t, c.UserRepo, "sso", "")

	link, err := c.Users.CreateSSOLink(ctx, usr.ID)
	require.NoError(t, err)
	assert.Len(t, strings.Split(link.Token, "-"), 5)

	got, err := c.Users.UseSSOLink(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	// single use
	_, err = c.Users.UseSSOLink(ctx, link.Token)
	assert.True(t, core.IsNotFound(err))

	link, err = c.Users.CreateSSOLink(ctx, usr.ID)
	require.NoError(t, err)
	testutil.SetNow(t, now.Add(c.Conf.SSOLinks.TTL))
	_, err = c.Users.UseSSOLink(ctx, link.Token)
	assert.True(t, core.IsNotFound(err))

	_, err = c.Users.CreateSSOLink(ctx, 404)
	assert.True(t, core.IsNotFound(err))
}
