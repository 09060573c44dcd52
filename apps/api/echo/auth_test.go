package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/tests"
)

func login(t *testing.T, app *testApp, uname, pwd string) *httptest.ResponseRecorder {
	t.Helper()
	body := marshalObj(t, LoginRequest{Username: uname, Password: pwd})
	return app.do(newAuthRequest(http.MethodPost, "/admin/login", "", body))
}

func Test_auth_login(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.c.UserRepo, "student", testPassword)
	testutil.CreateUser(t, app.c.UserRepo, "gone", testPassword, testutil.UserOpts{IsStaff: true, Inactive: true})
	failed := marshalObj(t, httpErr{Error: errAuthenticationFailed.Message.(string)})

	tests := []struct {
		name, uname, pwd string
		wantCode         int
		wantData         []byte
	}{
		{name: "missing fields", wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{
			"username": "this field is required",
			"password": "this field is required",
		})},
		{name: "wrong password", uname: "staff", pwd: "nope", wantCode: http.StatusBadRequest, wantData: failed},
		{name: "unknown user", uname: "nobody", pwd: testPassword, wantCode: http.StatusBadRequest, wantData: failed},
		{name: "not staff", uname: "student", pwd: testPassword, wantCode: http.StatusBadRequest, wantData: failed},
		{name: "inactive", uname: "gone", pwd: testPassword, wantCode: http.StatusBadRequest, wantData: failed},
		{name: "ok (case insensitive)", uname: " STAFF ", pwd: testPassword, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := login(t, app, tt.uname, tt.pwd)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}

	t.Run("token and session", func(t *testing.T) {
		rec := login(t, app, "staff", testPassword)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		claims, err := parseToken(app.conf, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "staff", claims.Username)
		assert.True(t, claims.IsStaff)

		usr, err := app.c.Users.GetByID(context.Background(), app.staff.ID)
		require.NoError(t, err)
		assert.True(t, usr.LastLogin.Valid)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, app.conf.Session.CookieName, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)

		valid := true
		sessions, err := app.c.Sessions.Query(context.Background(), session.Filter{Valid: &valid, UserID: &app.staff.ID})
		require.NoError(t, err)
		assert.NotEmpty(t, sessions)
	})
}

func Test_auth_sessionCookie(t *testing.T) {
	app := newTestApp(t)
	rec := login(t, app, "staff", testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Result().Cookies()[0]

	get := func(c *http.Cookie) *httptest.ResponseRecorder {
		req := newAuthRequest(http.MethodGet, "/admin/contenttypes/contenttype", "")
		if c != nil {
			req.AddCookie(c)
		}
		return app.do(req)
	}

	assert.Equal(t, http.StatusUnauthorized, get(nil).Code)
	assert.Equal(t, http.StatusOK, get(cookie).Code)

	tampered := *cookie
	tampered.Value = "garbage" + tampered.Value
	assert.Equal(t, http.StatusUnauthorized, get(&tampered).Code)

	req := newAuthRequest(http.MethodPost, "/admin/logout", "")
	req.AddCookie(cookie)
	rec = app.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, get(cookie).Code)
}

func Test_auth_tokens(t *testing.T) {
	app := newTestApp(t)
	now := time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC)
	testutil.SetNow(t, now)

	student := testutil.CreateUser(t, app.c.UserRepo, "student", "")
	gone := testutil.CreateUser(t, app.c.UserRepo, "gone", "", testutil.UserOpts{IsStaff: true, Inactive: true})
	staffToken := getToken(t, app, app.staff)
	path := "/admin/contenttypes/contenttype"

	app.run(t, []httpTest{
		{name: "no token", path: path, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "user not authenticated"})},
		{name: "malformed token", path: path, token: "lol", wantCode: http.StatusUnauthorized},
		{name: "not staff", path: path, token: getToken(t, app, student), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"})},
		{name: "deactivated", path: path, token: getToken(t, app, gone), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "staff", path: path, token: staffToken},
		{name: "trailing slash", path: path + "/", token: staffToken},
	})

	t.Run("expired token", func(t *testing.T) {
		testutil.SetNow(t, now.Add(app.conf.Server.JWTExpirationDelta+time.Second))
		rec := app.do(newAuthRequest(http.MethodGet, path, staffToken))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh", func(t *testing.T) {
		testutil.SetNow(t, now.Add(time.Minute))
		rec := app.do(newAuthRequest(http.MethodPost, "/admin/token-refresh", staffToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		claims, err := parseToken(app.conf, resp.Token)
		require.NoError(t, err)
		assert.Equal(t, now.Unix(), claims.OrigIssuedAt)
		assert.Equal(t, now.Add(time.Minute).Unix(), claims.IssuedAt)

		// a chain started too long ago cannot be refreshed
		testutil.SetNow(t, now.Add(app.conf.Server.JWTRefreshExpirationDelta+time.Minute))
		old, err := GenerateToken(app.conf, GetUserClaims(app.conf, app.staff, now.Unix()))
		require.NoError(t, err)
		rec = app.do(newAuthRequest(http.MethodPost, "/admin/token-refresh", old))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "refresh has expired"})}, rec)
	})
}

func Test_auth_ssoLogin(t *testing.T) {
	app := newTestApp(t)
	rootToken := getToken(t, app, app.root)

	rec := app.do(newAuthRequest(http.MethodPost, "/admin/users/user/"+strconv.Itoa(app.staff.ID)+"/ssolink", rootToken))
	require.Equal(t, http.StatusCreated, rec.Code)
	var link SSOLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.Equal(t, app.conf.FrontendBaseURL+"/admin/sso/"+link.Token, link.URL)
	assert.Equal(t, link.DateJoined.Add(app.conf.SSOLinks.TTL), link.ExpiresAt)

	rec = app.do(newAuthRequest(http.MethodPost, "/admin/sso/"+link.Token, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	claims, err := parseToken(app.conf, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "staff", claims.Username)

	// single use
	rec = app.do(newAuthRequest(http.MethodPost, "/admin/sso/"+link.Token, ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
