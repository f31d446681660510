package ui

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func captureOut(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() { Out = prev })
	return &buf
}

func sampleRows(t *testing.T) *ResultSet {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query(`SELECT 1 AS id, 'ann' AS name, NULL AS note UNION ALL SELECT 2, 'bob', 'x'`)
	require.NoError(t, err)
	rs, err := ReadRows(rows)
	require.NoError(t, err)
	return rs
}

func TestReadRows(t *testing.T) {
	rs := sampleRows(t)
	assert.Equal(t, []string{"id", "name", "note"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, "ann", rs.Rows[0][1])
	assert.Nil(t, rs.Rows[0][2])
}

func TestPrintRowsJSON(t *testing.T) {
	buf := captureOut(t)
	require.NoError(t, PrintRows(sampleRows(t), FormatJSON))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[1]["name"])
	assert.Equal(t, float64(2), got[1]["id"])
}

func TestPrintRowsYAML(t *testing.T) {
	buf := captureOut(t)
	require.NoError(t, PrintRows(sampleRows(t), FormatYAML))

	var got []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "ann", got[0]["name"])
	assert.Nil(t, got[0]["note"])
}

func TestPrintRowsTable(t *testing.T) {
	buf := captureOut(t)
	require.NoError(t, PrintRows(sampleRows(t), FormatTable))

	assert.Contains(t, buf.String(), "name")
	assert.Contains(t, buf.String(), "NULL")
	assert.Contains(t, buf.String(), "(2 rows)")
}

func TestPrintRowsUnknownFormat(t *testing.T) {
	captureOut(t)
	assert.Error(t, PrintRows(&ResultSet{}, "xml"))
}
