package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "empty",
			src:  " \n\t",
			want: nil,
		},
		{
			name: "single without terminator",
			src:  "SELECT 1",
			want: []string{"SELECT 1"},
		},
		{
			name: "several",
			src:  "CREATE TABLE t (id INT);\nINSERT INTO t VALUES (1);;\n",
			want: []string{"CREATE TABLE t (id INT)", "INSERT INTO t VALUES (1)"},
		},
		{
			name: "semicolon in literal",
			src:  "INSERT INTO t VALUES ('a;b'); SELECT 'it''s;'",
			want: []string{"INSERT INTO t VALUES ('a;b')", "SELECT 'it''s;'"},
		},
		{
			name: "semicolon in identifier",
			src:  "SELECT \"odd;name\" FROM `x;y`",
			want: []string{"SELECT \"odd;name\" FROM `x;y`"},
		},
		{
			name: "comments",
			src:  "-- setup; ignored\nSELECT 1; /* a; b */ SELECT 2 -- trailing;",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "comment only",
			src:  "-- nothing here\n/* or here */",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.src))
		})
	}
}
