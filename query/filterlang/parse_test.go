package filterlang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlwrap/query/sqlgen"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		src      string
		wantSQL  string
		wantArgs []interface{}
	}{
		{`id = 1`, `("id" = ?)`, []interface{}{int64(1)}},
		{`id <> 1`, `("id" <> ?)`, []interface{}{int64(1)}},
		{`id in (1, 2, 3)`, `("id" IN (?,?,?))`, []interface{}{int64(1), int64(2), int64(3)}},
		{`id = 1 or created > "2020-01-01"`, `("id" = ? OR "created" > ?)`, []interface{}{int64(1), "2020-01-01"}},
		{
			`id = 1 and (author = 'joe' OR (author = "suzy"))`,
			`("id" = ? AND ("author" = ? OR ("author" = ?)))`,
			[]interface{}{int64(1), "joe", "suzy"},
		},
		{`name not like 'it''s%' AND score >= 2.5`, `("name" NOT LIKE ? AND "score" >= ?)`, []interface{}{"it's%", 2.5}},
		{`p.author_id = u.id`, `("p"."author_id" = "u"."id")`, nil},
		{`active = TRUE and deleted_at = null`, `("active" = ? AND "deleted_at" = ?)`, []interface{}{true, nil}},
		{`tag not in ("a")`, `("tag" NOT IN (?))`, []interface{}{"a"}},
	}

	c := sqlgen.SQLite.Compiler()
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := ParseFilter(tt.src)
			require.NoError(t, err)

			var args []interface{}
			got, err := c.CompileFilter(f, &args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, got)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestParseFilterEmpty(t *testing.T) {
	f, err := ParseFilter("   ")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestParseFilterErrors(t *testing.T) {
	for _, src := range []string{
		`or id = 1`,
		`id =`,
		`id = 1 and`,
		`(id = 1`,
		`id not = 1`,
		`count(id) = 1`,
	} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseFilter(src)
			assert.ErrorIs(t, err, sqlgen.ErrInvalidFilter)
		})
	}
}

func TestParseAssignments(t *testing.T) {
	row, err := ParseAssignments(`title = "hello", views += 1, stock -= 2, note = null`)
	require.NoError(t, err)
	assert.Equal(t, sqlgen.Row{
		{Column: "title", Value: "hello"},
		{Column: "views +=", Value: int64(1)},
		{Column: "stock -=", Value: int64(2)},
		{Column: "note", Value: nil},
	}, row)

	_, err = ParseAssignments(`title: "x"`)
	assert.ErrorIs(t, err, sqlgen.ErrInvalidArgument)
}

func TestParseTables(t *testing.T) {
	tables, err := ParseTables(`posts p left outer join users u on p.author_id = u.id join tags on tags.post_id = p.id`)
	require.NoError(t, err)

	got, err := sqlgen.SQLite.Compiler().CompileTables(tables)
	require.NoError(t, err)
	assert.Equal(t, `"posts" p LEFT OUTER JOIN "users" u ON ("p"."author_id" = "u"."id") JOIN "tags" ON ("tags"."post_id" = "p"."id")`, got)

	tables, err = ParseTables(`a cross join b`)
	require.NoError(t, err)
	got, err = sqlgen.SQLite.Compiler().CompileTables(tables)
	require.NoError(t, err)
	assert.Equal(t, `"a" CROSS JOIN "b"`, got)

	_, err = ParseTables(`posts left users`)
	assert.ErrorIs(t, err, sqlgen.ErrInvalidTable)
}
