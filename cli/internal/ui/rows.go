package ui

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by PrintRows.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ResultSet is a fully read query result.
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}

// ReadRows drains rows into a ResultSet and closes them. []byte values are
// converted to strings.
func ReadRows(rows *sql.Rows) (*ResultSet, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	return rs, rows.Err()
}

// Records returns the rows as column-keyed maps.
func (rs *ResultSet) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, len(rs.Rows))
	for i, row := range rs.Rows {
		rec := make(map[string]interface{}, len(rs.Columns))
		for j, col := range rs.Columns {
			rec[col] = row[j]
		}
		out[i] = rec
	}
	return out
}

// PrintRows renders rs in format.
func PrintRows(rs *ResultSet, format string) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		if len(rs.Columns) == 0 {
			return nil
		}
		rows := make([][]string, len(rs.Rows))
		for i, row := range rs.Rows {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = formatCell(v)
			}
			rows[i] = cells
		}
		if err := PrintTable(rs.Columns, rows); err != nil {
			return err
		}
		fmt.Fprintln(Out, SecondaryStyle.Render(fmt.Sprintf("(%d rows)", len(rs.Rows))))
		return nil

	case FormatJSON:
		enc := json.NewEncoder(Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rs.Records())

	case FormatYAML:
		enc := yaml.NewEncoder(Out)
		enc.SetIndent(2)
		if err := enc.Encode(rs.Records()); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// PrintValue renders any value, such as statistics, as json or yaml. Table
// format falls back to yaml.
func PrintValue(v interface{}, format string) error {
	if strings.EqualFold(format, FormatJSON) {
		enc := json.NewEncoder(Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(Out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
