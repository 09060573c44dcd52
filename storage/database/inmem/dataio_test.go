package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/contenttype"
	"github.com/trezcool/academia/core/user"
)

func TestDataIO_Export(t *testing.T) {
	db := Open()
	day := time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC)
	db.users.insert(user.User{Username: "a", FirstName: "A", LastName: "Kasa", DateJoined: day.Add(time.Hour)})
	db.users.insert(user.User{Username: "b", FirstName: "B", LastName: "Vubu", DateJoined: day.AddDate(0, 0, 1),
		InvitedByID: null.IntFrom(1), LastLogin: null.TimeFrom(day)})
	dio := NewDataIO(db)
	ctx := context.Background()

	ds, err := dio.Export(ctx, user.UserModel, contenttype.ExportFilter{})
	require.NoError(t, err)
	assert.Equal(t, user.UserModel.Columns, ds.Headers)
	require.Len(t, ds.Rows, 2)

	col := func(row []string, name string) string {
		for i, h := range ds.Headers {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}
	assert.Equal(t, "1", col(ds.Rows[0], "id"))
	assert.Equal(t, "a", col(ds.Rows[0], "username"))
	assert.Equal(t, "", col(ds.Rows[0], "invited_by_id"))
	assert.Equal(t, "", col(ds.Rows[0], "last_login"))
	assert.Equal(t, "false", col(ds.Rows[0], "is_staff"))
	assert.Equal(t, "2021-03-08T01:00:00Z", col(ds.Rows[0], "date_joined"))
	assert.Equal(t, "1", col(ds.Rows[1], "invited_by_id"))
	assert.Equal(t, "2021-03-08T00:00:00Z", col(ds.Rows[1], "last_login"))

	ds, err = dio.Export(ctx, user.UserModel, contenttype.ExportFilter{DateField: "date_joined", From: day, To: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, ds.Rows, 1)
	assert.Equal(t, "a", col(ds.Rows[0], "username"))

	_, err = dio.Export(ctx, user.UserModel, contenttype.ExportFilter{DateField: "nope", From: day, To: day})
	assert.EqualError(t, err, "users.user has no column nope")

	_, err = dio.Export(ctx, contenttype.Model{AppLabel: "x", Name: "y", Table: "x_y"}, contenttype.ExportFilter{})
	assert.EqualError(t, err, "unknown table x_y")
}

func TestDataIO_Import(t *testing.T) {
	db := Open()
	db.parents.insert(user.Parent{Sex: user.SexFemale, LastName: "Kasa", FirstName: "Marie", Job: "Nurse", PhoneNumber: "+243820000000"})
	dio := NewDataIO(db)
	ctx := context.Background()

	n, err := dio.Import(ctx, user.ParentModel, contenttype.Dataset{
		Headers: []string{"id", "last_name", "job", "middle_name"},
		Rows: [][]string{
			{"1", "Kasavubu", "Doctor", ""},
			{"", "Lumumba", "Teacher", "Emery"},
			{"7", "Tshombe", "Farmer", ""},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	parents := db.parents.all()
	require.Len(t, parents, 3)
	// existing row updated in place, untouched columns kept
	assert.Equal(t, user.Parent{ID: 1, Sex: user.SexFemale, LastName: "Kasavubu", FirstName: "Marie", Job: "Doctor", PhoneNumber: "+243820000000"}, parents[0])
	assert.Equal(t, 2, parents[1].ID)
	assert.Equal(t, null.StringFrom("Emery"), parents[1].MiddleName)
	assert.Equal(t, 7, parents[2].ID)

	// the sequence follows imported ids
	assert.Equal(t, 8, db.parents.insert(user.Parent{}).ID)

	t.Run("invalid rows", func(t *testing.T) {
		_, err := dio.Import(ctx, user.ParentModel, contenttype.Dataset{
			Headers: []string{"id", "last_name"},
			Rows:    [][]string{{"1", "Mobutu"}, {"abc", "Kabila"}},
		})
		require.Error(t, err)
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok)
		// nothing written
		p, _ := db.parents.get(1)
		assert.Equal(t, "Kasavubu", p.LastName)

		_, err = dio.Import(ctx, user.ParentModel, contenttype.Dataset{Headers: []string{"password"}})
		assert.EqualError(t, err, `unknown column "password" for users.parent`)
	})
}
