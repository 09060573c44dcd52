package boiledrepos

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/sqlboiler/v4/queries"

	"github.com/trezcool/academia/core/contenttype"
	"github.com/trezcool/academia/core/user"
)

func TestExportQuery(t *testing.T) {
	sql, args := queries.BuildQuery(exportQuery(user.ParentModel, contenttype.ExportFilter{}))
	assert.Contains(t, sql, `"last_name"::text`)
	assert.Contains(t, sql, `FROM "users_parent"`)
	assert.Contains(t, sql, `ORDER BY "id"`)
	assert.NotContains(t, sql, "WHERE")
	assert.Empty(t, args)

	from := time.Date(2021, 3, 8, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	sql, args = queries.BuildQuery(exportQuery(user.UserModel, contenttype.ExportFilter{DateField: "date_joined", From: from, To: to}))
	assert.Contains(t, sql, `"date_joined" >= $1`)
	assert.Contains(t, sql, `"date_joined" < $2`)
	assert.Equal(t, []interface{}{from, to}, args)
}

func TestUpsertStatement(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    string
	}{
		{
			name:    "with key",
			headers: []string{"id", "last_name", "job"},
			want: `INSERT INTO "users_parent" \("id", "last_name", "job"\) VALUES \(\$1, ?\$2, ?\$3\)` +
				` ON CONFLICT \("id"\) DO UPDATE SET "last_name" = EXCLUDED."last_name", "job" = EXCLUDED."job"$`,
		},
		{
			name:    "key only",
			headers: []string{"id"},
			want:    `INSERT INTO "users_parent" \("id"\) VALUES \(\$1\) ON CONFLICT \("id"\) DO NOTHING$`,
		},
		{
			name:    "no key",
			headers: []string{"last_name"},
			want:    `INSERT INTO "users_parent" \("last_name"\) VALUES \(\$1\)$`,
		},
		{
			name: "no columns",
			want: `INSERT INTO "users_parent" DEFAULT VALUES$`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Regexp(t, tt.want, upsertStatement(user.ParentModel, tt.headers))
		})
	}
}

func TestUpsertRow(t *testing.T) {
	headers := []string{"id", "last_name", "job"}
	tests := []struct {
		name      string
		headers   []string
		row       []string
		wantStmt  string
		wantArgs  []interface{}
		wantKeyed bool
	}{
		{
			name:      "keyed",
			headers:   headers,
			row:       []string{"7", "Doe", ""},
			wantStmt:  upsertStatement(user.ParentModel, headers),
			wantArgs:  []interface{}{"7", "Doe", nil},
			wantKeyed: true,
		},
		{
			name:     "blank key",
			headers:  headers,
			row:      []string{"", "Doe", "Teacher"},
			wantStmt: `INSERT INTO "users_parent" ("last_name", "job") VALUES ($1,$2)`,
			wantArgs: []interface{}{"Doe", "Teacher"},
		},
		{
			name:     "blank key only",
			headers:  []string{"id"},
			row:      []string{""},
			wantStmt: `INSERT INTO "users_parent" DEFAULT VALUES`,
			wantArgs: []interface{}{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, args, keyed := upsertRow(user.ParentModel, tt.headers, tt.row)
			assert.Equal(t, tt.wantKeyed, keyed)
			assert.Equal(t, tt.wantArgs, args)
			if tt.wantKeyed {
				assert.Equal(t, tt.wantStmt, stmt)
			} else {
				assert.Equal(t, strings.ReplaceAll(tt.wantStmt, " ", ""), strings.ReplaceAll(stmt, " ", ""))
				assert.NotContains(t, stmt, `"id"`)
			}
		})
	}
}
