package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

// isolate keeps user config files and environment overrides out of a test.
func isolate(t *testing.T) {
	t.Helper()
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("SQLWRAP_DSN", "")
	t.Setenv("SQLWRAP_DRIVER", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// sqliteDB returns flags selecting a fresh sqlite file with a users table.
func sqliteDB(t *testing.T) []string {
	t.Helper()
	isolate(t)
	flags := []string{"--driver", "sqlite", "--dbname", filepath.Join(t.TempDir(), "app.db")}

	_, err := execute(t, append(flags, "query", "--exec",
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT UNIQUE, visits INTEGER NOT NULL DEFAULT 0)")...)
	require.NoError(t, err)
	return flags
}

func selectUsers(t *testing.T, flags []string, extra ...string) []map[string]interface{} {
	t.Helper()
	args := append(append([]string{}, flags...), "-o", "json", "select", "users", "--order-by", "id")
	out, err := execute(t, append(args, extra...)...)
	require.NoError(t, err)

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &records), out)
	return records
}

func TestInsertSelectUpdateDelete(t *testing.T) {
	db := sqliteDB(t)

	out, err := execute(t, append(db, "insert", "users",
		"-V", "id = 1, name = 'ann'",
		"-V", "id = 2, name = 'bob'")...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 rows affected")

	records := selectUsers(t, db, "-w", "id = 2")
	require.Len(t, records, 1)
	assert.Equal(t, "bob", records[0]["name"])

	out, err = execute(t, append(db, "update", "users", "-s", "visits += 5", "-w", "name = 'ann'")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 rows affected")

	records = selectUsers(t, db, "-c", "id,visits", "-w", "id IN (1, 2)")
	require.Len(t, records, 2)
	assert.EqualValues(t, 5, records[0]["visits"])
	assert.EqualValues(t, 0, records[1]["visits"])

	out, err = execute(t, append(db, "delete", "users", "-w", "id = 2", "--yes")...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 rows deleted")
	assert.Len(t, selectUsers(t, db), 1)
}

func TestInsertUpsert(t *testing.T) {
	db := sqliteDB(t)

	_, err := execute(t, append(db, "insert", "users", "-V", "id = 1, name = 'ann', visits = 1")...)
	require.NoError(t, err)

	_, err = execute(t, append(db, "insert", "users", "-V", "id = 1, name = 'ann', visits = 9")...)
	require.Error(t, err)

	_, err = execute(t, append(db, "insert", "users", "-V", "id = 1, name = 'ann', visits = 9", "--upsert", "id")...)
	require.NoError(t, err)

	records := selectUsers(t, db)
	require.Len(t, records, 1)
	assert.EqualValues(t, 9, records[0]["visits"])
}

func TestQueryWithArgs(t *testing.T) {
	db := sqliteDB(t)
	_, err := execute(t, append(db, "insert", "users", "-V", "id = 1, name = 'ann'")...)
	require.NoError(t, err)

	out, err := execute(t, append(db, "-o", "json", "query", "SELECT name FROM users WHERE id = ?", "1")...)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name": "ann"}]`, out)
}

func TestRunScript(t *testing.T) {
	db := sqliteDB(t)
	file := filepath.Join(t.TempDir(), "seed.sql")
	require.NoError(t, os.WriteFile(file, []byte(`
-- seed data; two users
INSERT INTO users (id, name) VALUES (1, 'ann');
INSERT INTO users (id, name) VALUES (2, 'semi;colon');
`), 0o644))

	out, err := execute(t, append(db, "run", file)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 statements committed")
	assert.Len(t, selectUsers(t, db), 2)
}

func TestRunScriptRollsBack(t *testing.T) {
	db := sqliteDB(t)
	file := filepath.Join(t.TempDir(), "broken.sql")
	require.NoError(t, os.WriteFile(file, []byte(`
INSERT INTO users (id, name) VALUES (1, 'ann');
INSERT INTO missing (id) VALUES (1);
`), 0o644))

	_, err := execute(t, append(db, "run", file)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	assert.Empty(t, selectUsers(t, db))
}

func TestCompile(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--driver", "pgsql", "-o", "json",
		"compile", "select", "users", "-w", "id IN (1, 2) AND name = 'ann'")
	require.NoError(t, err)

	var stmts []compiled
	require.NoError(t, json.Unmarshal([]byte(out), &stmts), out)
	require.Len(t, stmts, 1)
	assert.Equal(t, `SELECT * FROM "users" WHERE ("id" IN ($1,$2) AND "name" = $3)`, stmts[0].SQL)
	assert.Len(t, stmts[0].Args, 3)

	out, err = execute(t, "--driver", "mysql", "-o", "json",
		"compile", "insert", "users", "-V", "id = 1, name = 'ann'", "-V", "id = 2, name = 'bob'")
	require.NoError(t, err)
	stmts = nil
	require.NoError(t, json.Unmarshal([]byte(out), &stmts), out)
	require.Len(t, stmts, 2)
	assert.Equal(t, "INSERT INTO `users` (`id`,`name`) VALUES (?,?)", stmts[0].SQL)
	assert.Equal(t, []interface{}{float64(2), "bob"}, stmts[1].Args)
}

func TestCompileErrors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "compile", "merge", "users")
	assert.Error(t, err)

	_, err = execute(t, "compile", "delete", "users")
	assert.Error(t, err)

	_, err = execute(t, "--driver", "oracle", "compile", "select", "users")
	assert.Error(t, err)
}

func TestVersionAndConfig(t *testing.T) {
	isolate(t)

	out, err := execute(t, "-o", "json", "version")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, []interface{}{"mysql", "pgsql", "sqlite"}, info["drivers"])

	out, err = execute(t, "-o", "json", "--driver", "mysql", "--host", "db.internal", "config", "show")
	require.NoError(t, err)
	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "mysql", cfg["driver"])
	assert.Equal(t, "db.internal", cfg["host"])
}

func TestPing(t *testing.T) {
	isolate(t)

	out, err := execute(t, "--driver", "sqlite", "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")
	assert.Contains(t, out, "true")
}
