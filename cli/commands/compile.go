package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
	"github.com/satishbabariya/sqlwrap/query/filterlang"
	"github.com/satishbabariya/sqlwrap/query/sqlgen"
)

// compiled is one statement produced by the compile command.
type compiled struct {
	SQL  string        `json:"sql" yaml:"sql"`
	Args []interface{} `json:"args" yaml:"args"`
}

func newCompileCommand(opts *rootOptions) *cobra.Command {
	f := &statementFlags{}
	var explain bool

	cmd := &cobra.Command{
		Use:   "compile select|insert|update|delete TABLE",
		Short: "Print the SQL a statement compiles to without running it",
		Example: `  sqlwrap compile select "posts p JOIN users u ON p.author_id = u.id" -w "u.id IN (1, 2)"
  sqlwrap --driver pgsql compile update posts --set "views += 1" -w "id = 3" --explain`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"select", "insert", "update", "delete"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, err := opts.dialect()
			if err != nil {
				return err
			}

			stmts, err := compileStatements(dialect, strings.ToLower(args[0]), args[1], f)
			if err != nil {
				return err
			}

			if explain {
				return ui.PrintMarkdown(explainMarkdown(dialect, stmts))
			}
			if opts.output != ui.FormatTable {
				return ui.PrintValue(stmts, opts.output)
			}
			for _, s := range stmts {
				ui.PrintSQL(s.SQL, s.Args)
			}
			return nil
		},
	}

	addSelectFlags(cmd, f)
	addInsertFlags(cmd, f)
	cmd.Flags().StringVarP(&f.set, "set", "s", "", "assignments for update")
	cmd.Flags().BoolVar(&explain, "explain", false, "render the statements and their arguments as a document")
	return cmd
}

// compileStatements builds the statements of kind in the dialect's
// placeholder style. Inserts yield one statement per row.
func compileStatements(dialect sqlgen.Dialect, kind, table string, f *statementFlags) ([]compiled, error) {
	c := dialect.Compiler()
	var out []compiled

	switch kind {
	case "select":
		tables, err := filterlang.ParseTables(table)
		if err != nil {
			return nil, err
		}
		filter, err := f.filter()
		if err != nil {
			return nil, err
		}
		q, err := c.Select(f.columns, tables, filter, f.orderBy)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled{SQL: q.SQL, Args: q.Args})

	case "insert":
		rows, err := f.rows()
		if err != nil {
			return nil, err
		}
		list := sqlgen.RowsOf(rows)
		if len(list) == 0 {
			return nil, sqlgen.ErrEmptyValues
		}
		columns := list[0].Columns()
		text, err := c.InsertStatement(table, columns)
		if err != nil {
			return nil, err
		}
		for _, row := range list {
			args := make([]interface{}, len(columns))
			for i, col := range columns {
				v, ok := row.Lookup(col)
				if !ok {
					return nil, fmt.Errorf("%w: missing value for column %q", sqlgen.ErrInvalidArgument, col)
				}
				args[i] = v
			}
			out = append(out, compiled{SQL: text, Args: args})
		}

	case "update":
		values, err := f.assignments()
		if err != nil {
			return nil, err
		}
		filter, err := f.filter()
		if err != nil {
			return nil, err
		}
		q, err := c.Update(table, values, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled{SQL: q.SQL, Args: q.Args})

	case "delete":
		filter, err := f.filter()
		if err != nil {
			return nil, err
		}
		q, err := c.Delete(table, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled{SQL: q.SQL, Args: q.Args})

	default:
		return nil, fmt.Errorf("%w: unknown statement kind %q", sqlgen.ErrInvalidArgument, kind)
	}

	for i := range out {
		out[i].SQL = dialect.Rebind(out[i].SQL)
		if out[i].Args == nil {
			out[i].Args = []interface{}{}
		}
	}
	return out, nil
}

func explainMarkdown(dialect sqlgen.Dialect, stmts []compiled) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Compiled for %s\n\n", dialect.Name)
	for i, s := range stmts {
		if len(stmts) > 1 {
			fmt.Fprintf(&b, "## Statement %d\n\n", i+1)
		}
		b.WriteString("```sql\n" + s.SQL + "\n```\n\n")
		if len(s.Args) == 0 {
			b.WriteString("No bound arguments.\n\n")
			continue
		}
		b.WriteString("| # | value | type |\n|---|---|---|\n")
		for j, a := range s.Args {
			fmt.Fprintf(&b, "| %d | `%v` | %T |\n", j+1, a, a)
		}
		b.WriteString("\n")
	}
	return b.String()
}
