package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/history"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func userPath(id int, suffix ...string) string {
	return "/admin/users/user/" + strconv.Itoa(id) + strings.Join(suffix, "")
}

func Test_userApi_query(t *testing.T) {
	app := newTestApp(t)
	day := time.Date(2021, 3, 8, 10, 0, 0, 0, time.UTC)
	off := testutil.CreateUser(t, app.c.UserRepo, "off", "", testutil.UserOpts{InvitedByID: &app.staff.ID, Inactive: true, DateJoined: day})
	token := getToken(t, app, app.staff)
	path := "/admin/users/user"

	app.run(t, []httpTest{
		{name: "all", path: path, token: token, wantData: marshalList(t, app.root, app.staff, off)},
		{name: "search (unknown)", path: path + "?search=lol", token: token, wantData: marshalList(t)},
		{name: "search", path: path + "?search=OFF", token: token, wantData: marshalList(t, off)},
		{name: "is_active", path: path + "?is_active=false", token: token, wantData: marshalList(t, off)},
		{name: "is_superuser", path: path + "?is_superuser=true", token: token, wantData: marshalList(t, app.root)},
		{name: "is_root", path: path + "?is_root=true", token: token, wantData: marshalList(t, app.root)},
		{name: "invited_by_id", path: path + "?invited_by_id=" + strconv.Itoa(app.staff.ID), token: token, wantData: marshalList(t, off)},
		{name: "date_joined", path: path + "?date_joined=2021-03-08", token: token, wantData: marshalList(t, off)},
		{name: "ordering", path: path + "?ordering=-username", token: token, wantData: marshalList(t, app.staff, app.root, off)},
		{name: "bad bool", path: path + "?is_staff=maybe", token: token, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"is_staff": "must be a boolean"})},
		{name: "bad date", path: path + "?date_joined=08/03/2021", token: token, wantCode: http.StatusBadRequest},
		{name: "retrieve", path: userPath(off.ID), token: token, wantData: marshalObj(t, off)},
		{name: "retrieve (not found)", path: userPath(404), token: token, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "user not found"})},
		{name: "retrieve (bad id)", path: "/admin/users/user/abc", token: token, wantCode: http.StatusNotFound},
	})
}

func Test_userApi_write(t *testing.T) {
	app := newTestApp(t)
	rootToken := getToken(t, app, app.root)
	staffToken := getToken(t, app, app.staff)

	nu := user.NewUser{
		UserInput: user.UserInput{
			Username:    "kid",
			FirstName:   "Patrice",
			LastName:    "Lumumba",
			Sex:         user.SexMale,
			PhoneNumber: "+243810000001",
			InvitedByID: &app.root.ID,
		},
		Password:        testPassword,
		PasswordConfirm: testPassword,
	}

	rec := app.do(newAuthRequest(http.MethodPost, "/admin/users/user", rootToken, marshalObj(t, nu)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var kid user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kid))
	assert.Equal(t, "kid", kid.Username)
	assert.NotContains(t, rec.Body.String(), "password")

	t.Run("create errors", func(t *testing.T) {
		app.run(t, []httpTest{
			{name: "username taken", method: http.MethodPost, path: "/admin/users/user", token: rootToken, body: marshalObj(t, nu),
				wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"username": user.ErrUsernameExists.Error()})},
			{name: "second root", method: http.MethodPost, path: "/admin/users/user", token: rootToken,
				body: marshalObj(t, func() user.NewUser {
					n := nu
					n.Username, n.InvitedByID = "other", nil
					return n
				}()),
				wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"invited_by_id": "Tree must have only one root user"})},
		})
	})

	t.Run("history", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, userPath(kid.ID, "/history"), staffToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var records []history.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		require.Len(t, records, 1)
		assert.Equal(t, history.Created, records[0].HistoryType)
		assert.Equal(t, app.root.ID, records[0].UserID.Int)
	})

	t.Run("update", func(t *testing.T) {
		uu := user.UpdateUser{UserInput: nu.UserInput}
		uu.FirstName = "Emery"
		uu.IsSuperuser = true

		rec := app.do(newAuthRequest(http.MethodPut, userPath(kid.ID), staffToken, marshalObj(t, uu)))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(newAuthRequest(http.MethodPut, userPath(kid.ID), rootToken, marshalObj(t, uu)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Emery", got.FirstName)
		assert.True(t, got.IsSuperuser)

		self := uu
		self.Username = "kid"
		self.InvitedByID = &kid.ID
		rec = app.do(newAuthRequest(http.MethodPut, userPath(kid.ID), rootToken, marshalObj(t, self)))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"invited_by_id": "User can't be invited by himself"})}, rec)
	})

	t.Run("inlines", func(t *testing.T) {
		p, err := app.c.Users.CreateParent(context.Background(), user.ParentInput{
			Sex: user.SexFemale, LastName: "Lumumba", FirstName: "Pauline", Job: "Farmer", PhoneNumber: "+243820000000",
		})
		require.NoError(t, err)

		app.run(t, []httpTest{
			{name: "set parents", method: http.MethodPut, path: userPath(kid.ID, "/parents"), token: staffToken,
				body: marshalObj(t, IDsRequest{IDs: []int{p.ID}}), wantData: marshalList(t, p)},
			{name: "too many parents", method: http.MethodPut, path: userPath(kid.ID, "/parents"), token: staffToken,
				body: marshalObj(t, IDsRequest{IDs: []int{p.ID, 2, 3}}), wantCode: http.StatusBadRequest,
				wantData: marshalObj(t, map[string]string{"parents": user.ErrTooManyParents.Error()})},
			{name: "profile", method: http.MethodPut, path: userPath(kid.ID, "/profile"), token: staffToken,
				body: []byte(`{"telegram_id": 42}`)},
			{name: "student (invalid)", method: http.MethodPut, path: userPath(kid.ID, "/student"), token: staffToken,
				body: []byte(`{"admission_year": 1}`), wantCode: http.StatusBadRequest},
			{name: "parent users", path: "/admin/users/parent/" + strconv.Itoa(p.ID) + "/users", token: staffToken},
			{name: "student", method: http.MethodPut, path: userPath(kid.ID, "/student"), token: staffToken,
				body: []byte(`{"admission_year": 2020}`)},
			{name: "delete student", method: http.MethodDelete, path: userPath(kid.ID, "/student"), token: staffToken,
				wantCode: http.StatusNoContent},
			{name: "delete student (none)", method: http.MethodDelete, path: userPath(kid.ID, "/student"), token: staffToken,
				wantCode: http.StatusNotFound},
		})

		rec := app.do(newAuthRequest(http.MethodGet, userPath(kid.ID, "/inlines"), staffToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var inl user.Inlines
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inl))
		assert.Equal(t, []user.Parent{p}, inl.Parents)
		require.NotNil(t, inl.Profile)
		assert.Equal(t, 42, inl.Profile.TelegramID)
		assert.Nil(t, inl.Student)
	})

	t.Run("delete", func(t *testing.T) {
		other := testutil.CreateUser(t, app.c.UserRepo, "other", "", testutil.UserOpts{InvitedByID: &app.root.ID})
		app.run(t, []httpTest{
			{name: "self", method: http.MethodDelete, path: userPath(app.staff.ID), token: staffToken, wantCode: http.StatusForbidden},
			{name: "self (bulk)", method: http.MethodDelete, path: "/admin/users/user?id=" + strconv.Itoa(app.staff.ID), token: staffToken,
				wantCode: http.StatusForbidden},
			{name: "not found", method: http.MethodDelete, path: userPath(404), token: staffToken, wantCode: http.StatusNotFound},
			{name: "one", method: http.MethodDelete, path: userPath(kid.ID), token: staffToken, wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
			{name: "bulk", method: http.MethodDelete, path: "/admin/users/user?id=" + strconv.Itoa(other.ID) + ",404", token: staffToken,
				wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
			{name: "bulk (bad id)", method: http.MethodDelete, path: "/admin/users/user?id=x", token: staffToken,
				wantCode: http.StatusBadRequest},
		})
	})
}

func Test_userApi_photo(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app, app.staff)

	body, contentType := multipartBody(t, "photo", "me.png", []byte("png"))
	req := newAuthRequest(http.MethodPost, userPath(app.staff.ID, "/photo"), token, body)
	req.Header.Set("Content-Type", contentType)
	rec := app.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var usr user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
	require.True(t, usr.Photo.Valid)
	assert.True(t, strings.HasPrefix(usr.Photo.String, "profiles/"+strconv.Itoa(app.staff.ID)+"/"), usr.Photo.String)

	rec = app.do(newAuthRequest(http.MethodGet, app.conf.Media.URL+usr.Photo.String, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())

	rec = app.do(newAuthRequest(http.MethodPost, userPath(app.staff.ID, "/photo"), token))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest,
		wantData: marshalObj(t, map[string]string{"photo": "this field is required"})}, rec)
}

func Test_userApi_exportImport(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app, app.staff)

	rec := app.do(newAuthRequest(http.MethodGet, "/admin/users/parent/export", token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="users-parent.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,sex,last_name,first_name,middle_name,job,phone_number\n", rec.Body.String())

	csv := "id,sex,last_name,first_name,job,phone_number\n" +
		",female,Kimpa,Vita,Prophet,+243820000001\n" +
		",male,Simon,Kimbangu,Prophet,+243820000002\n"
	req := newAuthRequest(http.MethodPost, "/admin/users/parent/import", token, []byte(csv))
	req.Header.Set("Content-Type", "text/csv")
	rec = app.do(req)
	checkCodeAndData(t, httpTest{wantData: marshalObj(t, ImportResponse{Imported: 2})}, rec)

	parents, err := app.c.Users.QueryParents(context.Background(), user.ParentFilter{Search: "kimpa"})
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, "Vita", parents[0].FirstName)

	body, contentType := multipartBody(t, "file", "parents.csv", []byte("id,last_name\n"+strconv.Itoa(parents[0].ID)+",Beatrice\n"))
	req = newAuthRequest(http.MethodPost, "/admin/users/parent/import", token, body)
	req.Header.Set("Content-Type", contentType)
	rec = app.do(req)
	checkCodeAndData(t, httpTest{wantData: marshalObj(t, ImportResponse{Imported: 1})}, rec)

	p, err := app.c.Users.GetParent(context.Background(), parents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Beatrice", p.LastName)
	assert.Equal(t, "Vita", p.FirstName)

	app.run(t, []httpTest{
		{name: "unknown column", method: http.MethodPost, path: "/admin/users/parent/import", token: token,
			body: []byte("password\nx\n"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: `unknown column "password" for users.parent`})},
		{name: "empty csv", method: http.MethodPost, path: "/admin/users/parent/import", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "CSV file is empty"})},
		{name: "export day without date field", path: "/admin/users/parent/export?date=2021-03-08", token: token,
			wantCode: http.StatusBadRequest},
		{name: "export day", path: "/admin/users/user/export?date=2021-03-08", token: token},
	})
}

func Test_sessionApi(t *testing.T) {
	app := newTestApp(t)
	rec := login(t, app, "staff", testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	token := getToken(t, app, app.staff)

	rec = app.do(newAuthRequest(http.MethodGet, "/admin/users/session?valid=true&user_id="+strconv.Itoa(app.staff.ID), token))
	require.Equal(t, http.StatusOK, rec.Code)
	var details []session.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	require.Len(t, details, 1)
	assert.True(t, details[0].IsValid)
	assert.Equal(t, strconv.Itoa(app.staff.ID), details[0].Decoded[session.UserIDKey])
	key := details[0].Key

	app.run(t, []httpTest{
		{name: "retrieve", path: "/admin/users/session/" + key, token: token},
		{name: "retrieve (unknown)", path: "/admin/users/session/nope", token: token, wantCode: http.StatusNotFound},
		{name: "invalid only", path: "/admin/users/session?valid=false", token: token, wantData: marshalList(t)},
		{name: "delete", method: http.MethodDelete, path: "/admin/users/session/" + key, token: token,
			wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
		{name: "bulk delete (none left)", method: http.MethodDelete, path: "/admin/users/session?key=" + key, token: token,
			wantData: marshalObj(t, DeletedResponse{Deleted: 0})},
	})
}

func Test_parentApi(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app, app.staff)
	in := user.ParentInput{Sex: user.SexMale, LastName: "Tshisekedi", FirstName: "Etienne", Job: "Lawyer", PhoneNumber: "+243820000003"}

	rec := app.do(newAuthRequest(http.MethodPost, "/admin/users/parent", token, marshalObj(t, in)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p user.Parent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	in.Job = "Politician"
	upd := p
	upd.Job = "Politician"
	path := "/admin/users/parent/" + strconv.Itoa(p.ID)

	app.run(t, []httpTest{
		{name: "invalid", method: http.MethodPost, path: "/admin/users/parent", token: token, body: []byte(`{"sex": "x"}`),
			wantCode: http.StatusBadRequest},
		{name: "list", path: "/admin/users/parent?search=etienne", token: token, wantData: marshalList(t, p)},
		{name: "update", method: http.MethodPut, path: path, token: token, body: marshalObj(t, in), wantData: marshalObj(t, upd)},
		{name: "retrieve", path: path, token: token, wantData: marshalObj(t, upd)},
		{name: "delete", method: http.MethodDelete, path: path, token: token, wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
		{name: "delete (gone)", method: http.MethodDelete, path: path, token: token, wantCode: http.StatusNotFound},
	})
}
