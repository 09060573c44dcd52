package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/backup"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/script"
	"github.com/trezcool/academia/tests"
)

func Test_schoolApi(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app, app.staff)

	rec := app.do(newAuthRequest(http.MethodPost, "/admin/internals/school", token,
		marshalObj(t, school.SchoolInput{FullName: "  Complexe Scolaire Bosangani ", Headmaster: "Mr Kabasele"})))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sch school.School
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sch))
	assert.Equal(t, "Complexe Scolaire Bosangani", sch.FullName)
	path := "/admin/internals/school/" + strconv.Itoa(sch.ID)
	renamed := sch
	renamed.FullName = "CS Bosangani"

	app.run(t, []httpTest{
		{name: "blank name", method: http.MethodPost, path: "/admin/internals/school", token: token,
			body: []byte(`{"full_name": "   "}`), wantCode: http.StatusBadRequest},
		{name: "search", path: "/admin/internals/school?search=bosa", token: token, wantData: marshalList(t, sch)},
		{name: "update", method: http.MethodPut, path: path, token: token,
			body: marshalObj(t, school.SchoolInput{FullName: "CS Bosangani", Headmaster: "Mr Kabasele"}), wantData: marshalObj(t, renamed)},
		{name: "retrieve", path: path, token: token, wantData: marshalObj(t, renamed)},
		{name: "delete", method: http.MethodDelete, path: path, token: token, wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
		{name: "retrieve (gone)", path: path, token: token, wantCode: http.StatusNotFound},
	})
}

func Test_universityApi(t *testing.T) {
	app := newTestApp(t)
	token := getToken(t, app, app.staff)

	rec := app.do(newAuthRequest(http.MethodPost, "/admin/internals/university", token,
		marshalObj(t, school.UniversityInput{FullName: "UNIKIN", Location: "Kinshasa"})))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var univ school.University
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &univ))
	path := "/admin/internals/university/" + strconv.Itoa(univ.ID)

	body, contentType := multipartBody(t, "logo", "logo.PNG", []byte("logo"))
	req := newAuthRequest(http.MethodPost, path+"/logo", token, body)
	req.Header.Set("Content-Type", contentType)
	rec = app.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &univ))
	assert.True(t, strings.HasSuffix(univ.Logo, ".png"), univ.Logo)

	app.run(t, []httpTest{
		{name: "missing location", method: http.MethodPost, path: "/admin/internals/university", token: token,
			body: []byte(`{"full_name": "UPN"}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"location": "this field is required"})},
		{name: "list", path: "/admin/internals/university", token: token, wantData: marshalList(t, univ)},
		{name: "bulk delete", method: http.MethodDelete, path: "/admin/internals/university?id=" + strconv.Itoa(univ.ID), token: token,
			wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
	})
}

func Test_scriptApi(t *testing.T) {
	app := newTestApp(t)
	rootToken := getToken(t, app, app.root)
	staffToken := getToken(t, app, app.staff)

	app.run(t, []httpTest{
		{name: "staff forbidden", method: http.MethodPost, path: "/admin/internals/script/execute", token: staffToken,
			body: []byte(`print("hi")`), wantCode: http.StatusForbidden},
		{name: "staff cannot list", path: "/admin/internals/script", token: staffToken, wantCode: http.StatusForbidden},
		{name: "list (empty)", path: "/admin/internals/script", token: rootToken, wantData: marshalList(t)},
	})

	t.Run("execute (raw body)", func(t *testing.T) {
		req := newAuthRequest(http.MethodPost, "/admin/internals/script/execute", rootToken, []byte("for i = 1, 2 do print(i) end"))
		req.Header.Set("Content-Type", "text/plain")
		rec := app.do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1\n2\n", rec.Body.String())
	})

	t.Run("execute (form)", func(t *testing.T) {
		form := url.Values{"source": {`print("hello")`}}
		req := newAuthRequest(http.MethodPost, "/admin/internals/script/execute", rootToken, []byte(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := app.do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello\n", rec.Body.String())
	})

	t.Run("execute (error)", func(t *testing.T) {
		req := newAuthRequest(http.MethodPost, "/admin/internals/script/execute", rootToken, []byte("error('boom')"))
		req.Header.Set("Content-Type", "text/plain")
		rec := app.do(req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Traceback (most recent call last):")
		assert.Contains(t, rec.Body.String(), "boom")
	})

	rec := app.do(newAuthRequest(http.MethodPost, "/admin/internals/script", rootToken,
		marshalObj(t, script.Input{Name: " hello ", Source: `print("hello")`})))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var scr script.Script
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scr))
	assert.Equal(t, "hello", scr.Name)
	path := "/admin/internals/script/" + strconv.Itoa(scr.ID)

	app.run(t, []httpTest{
		{name: "retrieve", path: path, token: rootToken, wantData: marshalObj(t, scr)},
		{name: "missing source", method: http.MethodPut, path: path, token: rootToken, body: []byte(`{"name": "x"}`),
			wantCode: http.StatusBadRequest},
		{name: "delete", method: http.MethodDelete, path: path, token: rootToken, wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
	})
}

func Test_backupApi(t *testing.T) {
	app := newTestApp(t)
	testutil.SetNow(t, time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC))
	token := getToken(t, app, app.staff)
	testutil.CreateUser(t, app.c.UserRepo, "early", "", testutil.UserOpts{DateJoined: time.Date(2021, 3, 9, 8, 0, 0, 0, time.UTC)})

	ctx := context.Background()
	_, err := app.c.Backups.Run(ctx, backup.Options{})
	require.NoError(t, err)
	day := core.NewDate(time.Date(2021, 3, 9, 0, 0, 0, 0, time.UTC))
	backups, err := app.c.Backups.Query(ctx, backup.Filter{Date: &day})
	require.NoError(t, err)
	require.NotEmpty(t, backups)

	var usersBkp backup.Backup
	for _, b := range backups {
		if b.Model == "users.user" {
			usersBkp = b
		}
	}
	require.NotZero(t, usersBkp.ID)
	path := "/admin/internals/backup/" + strconv.Itoa(usersBkp.ID)

	rec := app.do(newAuthRequest(http.MethodGet, "/admin/internals/backup?date=2021-03-09&model_id="+strconv.Itoa(usersBkp.ContentTypeID), token))
	checkCodeAndData(t, httpTest{wantData: marshalList(t, usersBkp)}, rec)

	rec = app.do(newAuthRequest(http.MethodGet, path+"/file", token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="2021-03-09.csv"`, rec.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,username,"), lines[0])
	assert.Contains(t, lines[1], ",early,")

	app.run(t, []httpTest{
		{name: "retrieve", path: path, token: token, wantData: marshalObj(t, usersBkp)},
		{name: "bad model_id", path: "/admin/internals/backup?model_id=x", token: token, wantCode: http.StatusBadRequest},
		{name: "delete", method: http.MethodDelete, path: path, token: token, wantData: marshalObj(t, DeletedResponse{Deleted: 1})},
		{name: "file (gone)", path: path + "/file", token: token, wantCode: http.StatusNotFound},
	})
}
