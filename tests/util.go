// Package testutil builds in-memory containers and fixtures for the tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/apps/di"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	mediasvc "github.com/trezcool/academia/services/media"
)

// Logger discards everything but Fatal, which panics.
type Logger struct{}

var _ core.Logger = Logger{}

func (Logger) Debug(string, ...interface{})          {}
func (Logger) Info(string, ...interface{})           {}
func (Logger) Warn(string, ...interface{})           {}
func (Logger) Error(string, ...interface{})          {}
func (Logger) Fatal(msg string, args ...interface{}) { panic(msg) }

// NewContainer wires every service on a fresh in-memory database, with media stored in a temp dir.
func NewContainer(t *testing.T) *di.Container {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Media.Root = t.TempDir()
	storage := mediasvc.NewFSStorage(conf.Media.Root, conf.Media.URL)
	c := di.NewInMemory(conf, Logger{}, storage, emailsvc.NewConsoleServiceMock(conf))
	if _, err := c.ContentTypes.Sync(context.Background()); err != nil {
		t.Fatalf("ContentTypes.Sync() failed: %v", err)
	}
	return c
}

// SetNow freezes core.NowFunc until the test ends.
func SetNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = prev })
}

type UserOpts struct {
	InvitedByID *int
	IsStaff     bool
	IsSuperuser bool
	Inactive    bool
	DateJoined  time.Time
}

// CreateUser stores a user straight through the repository, skipping the service validation.
func CreateUser(t *testing.T, repo user.Repository, uname, pwd string, opts ...UserOpts) user.User {
	t.Helper()
	var o UserOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	joined := o.DateJoined
	if joined.IsZero() {
		joined = core.NowFunc().UTC()
	}
	usr := user.User{
		Username:    uname,
		FirstName:   "First " + uname,
		LastName:    "Last " + uname,
		Email:       uname + "@test.cd",
		Sex:         user.SexMale,
		PhoneNumber: "+243810000000",
		Group:       user.GroupJunior,
		Birthday:    core.NewDate(time.Date(2005, 1, 2, 0, 0, 0, 0, time.UTC)),
		InvitedByID: null.IntFromPtr(o.InvitedByID),
		IsActive:    !o.Inactive,
		IsStaff:     o.IsStaff || o.IsSuperuser,
		IsSuperuser: o.IsSuperuser,
		DateJoined:  joined,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
