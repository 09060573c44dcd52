package backup_test

import (
	"bytes"
	"context"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/backup"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/tests"
)

func date(y int, m time.Month, d int) *core.Date {
	day := core.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	return &day
}

func TestService_Run(t *testing.T) {
	c := testutil.NewContainer(t)
	c.Conf.Admins = []mail.Address{{Name: "Admin", Address: "admin@test.cd"}}
	testutil.SetNow(t, time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	testutil.CreateUser(t, c.UserRepo, "early", "", testutil.UserOpts{DateJoined: time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC)})
	testutil.CreateUser(t, c.UserRepo, "late", "", testutil.UserOpts{DateJoined: time.Date(2021, 3, 8, 23, 59, 59, 0, time.UTC)})
	testutil.CreateUser(t, c.UserRepo, "next", "", testutil.UserOpts{DateJoined: time.Date(2021, 3, 9, 0, 0, 0, 0, time.UTC)})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name       string
			opts       backup.Options
			wantErrStr string
		}{
			{"end before start", backup.Options{Start: date(2021, 3, 5), End: date(2021, 3, 4)}, "enddate can't be equal or before startdate"},
			{"end equals start", backup.Options{Start: date(2021, 3, 5), End: date(2021, 3, 5)}, "enddate can't be equal or before startdate"},
			{"start today", backup.Options{Start: date(2021, 3, 10)}, "enddate can't be equal or before startdate"},
			{"start today, end in future", backup.Options{Start: date(2021, 3, 10), End: date(2021, 3, 12)}, "enddate can't be equal or before startdate"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := c.Backups.Run(ctx, tt.opts)
				require.Error(t, err)
				assert.True(t, backup.IsCommandError(err))
				assert.Equal(t, tt.wantErrStr, err.Error())
			})
		}
	})

	mailer := c.Mailer.(*emailsvc.ConsoleService)
	mailer.ClearOutbox()

	out := new(bytes.Buffer)
	report, err := c.Backups.Run(ctx, backup.Options{Start: date(2021, 3, 8), End: date(2021, 3, 15), Out: out})
	require.NoError(t, err)
	assert.Equal(t, *date(2021, 3, 8), report.Start)
	assert.Equal(t, *date(2021, 3, 10), report.End)
	assert.Equal(t, []string{"enddate can't be in future. Using default value 2021-03-10"}, report.Warnings)
	assert.Contains(t, out.String(), "enddate can't be in future")
	assert.Contains(t, report.Files, backup.FilePath("users", "user", *date(2021, 3, 8)))
	assert.Contains(t, report.Files, backup.FilePath("users", "user", *date(2021, 3, 9)))
	assert.NotContains(t, out.String(), "users.session")

	read := func(day *core.Date) []string {
		t.Helper()
		backups, err := c.Backups.Query(ctx, backup.Filter{Date: day})
		require.NoError(t, err)
		for _, b := range backups {
			if b.Model != "users.user" {
				continue
			}
			_, f, err := c.Backups.Open(ctx, b.ID)
			require.NoError(t, err)
			defer f.Close()
			buf := new(bytes.Buffer)
			_, err = buf.ReadFrom(f)
			require.NoError(t, err)
			return strings.Split(strings.TrimSpace(buf.String()), "\n")
		}
		t.Fatalf("no users.user backup for %s", day)
		return nil
	}
	assert.Len(t, read(date(2021, 3, 8)), 3) // header + early + late
	assert.Len(t, read(date(2021, 3, 9)), 2)

	outbox := mailer.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, "Backup report 2021-03-08 - 2021-03-10", outbox[0].Subject)
	assert.Equal(t, c.Conf.Admins, outbox[0].To)
	assert.Contains(t, outbox[0].TextContent, "Backup from 2021-03-08 to 2021-03-10 finished.")
	assert.Contains(t, outbox[0].TextContent, "- "+backup.FilePath("users", "user", *date(2021, 3, 8)))
}

func TestService_Run_defaults(t *testing.T) {
	c := testutil.NewContainer(t)
	testutil.SetNow(t, time.Date(2021, 3, 10, 12, 0, 0, 0, time.UTC))

	report, err := c.Backups.Run(context.Background(), backup.Options{})
	require.NoError(t, err)
	assert.Equal(t, *date(2021, 3, 9), report.Start)
	assert.Equal(t, *date(2021, 3, 10), report.End)
	assert.Empty(t, report.Warnings)
	assert.NotEmpty(t, report.Files)
	assert.Empty(t, c.Mailer.(*emailsvc.ConsoleService).Outbox()) // no admins
}
