package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
	"github.com/satishbabariya/sqlwrap/internal/debug"
	"github.com/satishbabariya/sqlwrap/query/filterlang"
	"github.com/satishbabariya/sqlwrap/query/sqlgen"
	"github.com/satishbabariya/sqlwrap/runtime/client"
)

// connect opens a client for the configured database.
func (o *rootOptions) connect(ctx context.Context) (*client.Client, error) {
	params := o.cfg.Params()
	if o.askPassword {
		if err := survey.AskOne(&survey.Password{
			Message: fmt.Sprintf("Password for %s:", describeTarget(params)),
		}, &params.Password); err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
	}

	opts := []client.Option{
		client.WithLogger(debug.With("run_id", o.runID)),
		client.WithStatementCache(o.cfg.StatementCache),
		client.WithMaxOpenConns(o.cfg.MaxOpenConns),
		client.WithMaxIdleConns(o.cfg.MaxIdleConns),
	}
	return client.Connect(ctx, params, opts...)
}

// dialect resolves the configured driver without connecting.
func (o *rootOptions) dialect() (sqlgen.Dialect, error) {
	cfg, err := client.DefaultRegistry().Lookup(o.cfg.Driver)
	if err != nil {
		return sqlgen.Dialect{}, err
	}
	return cfg.Dialect, nil
}

// withClient connects, runs fn and closes the client, printing statistics
// first when --stats is set.
func (o *rootOptions) withClient(cmd *cobra.Command, fn func(c *client.Client) error) error {
	c, err := o.connect(cmd.Context())
	if err != nil {
		return err
	}

	runErr := fn(c)
	if o.stats {
		if err := ui.PrintValue(c.Stats(), o.output); err != nil && runErr == nil {
			runErr = err
		}
	}
	if err := c.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// confirm asks a yes/no question, defaulting to no.
func confirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	if err != nil {
		return false, fmt.Errorf("confirmation required (pass --yes to skip): %w", err)
	}
	return ok, nil
}

func describeTarget(p client.Params) string {
	switch {
	case p.DSN != "":
		return p.Driver
	case p.User != "" && p.Host != "":
		return p.User + "@" + p.Host
	case p.DBName != "":
		return p.DBName
	}
	return p.Driver
}

// statementFlags are the structured statement inputs shared by select,
// insert, update, delete and compile.
type statementFlags struct {
	columns []string
	where   string
	orderBy []string
	values  []string
	set     string
	upsert  []string
}

func (f *statementFlags) filter() (sqlgen.Filter, error) {
	return filterlang.ParseFilter(f.where)
}

func (f *statementFlags) rows() (sqlgen.Rows, error) {
	rows := make(sqlgen.Rows, 0, len(f.values))
	for i, text := range f.values {
		row, err := filterlang.ParseAssignments(text)
		if err != nil {
			return nil, fmt.Errorf("--values #%d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *statementFlags) assignments() (sqlgen.Row, error) {
	return filterlang.ParseAssignments(f.set)
}

func addWhereFlag(cmd *cobra.Command, f *statementFlags) {
	cmd.Flags().StringVarP(&f.where, "where", "w", "", "filter, e.g. \"status = 'open' AND id IN (1, 2)\"")
}

func addSelectFlags(cmd *cobra.Command, f *statementFlags) {
	cmd.Flags().StringSliceVarP(&f.columns, "columns", "c", nil, "columns to select (default *)")
	cmd.Flags().StringSliceVar(&f.orderBy, "order-by", nil, "order columns, e.g. \"created DESC\"")
	addWhereFlag(cmd, f)
}

func addInsertFlags(cmd *cobra.Command, f *statementFlags) {
	cmd.Flags().StringArrayVarP(&f.values, "values", "V", nil, "row to insert, e.g. \"id = 1, name = 'ann'\" (repeat for more rows)")
	cmd.Flags().StringSliceVar(&f.upsert, "upsert", nil, "key columns: rows colliding on a unique key are updated instead")
}

func addUpdateFlags(cmd *cobra.Command, f *statementFlags) {
	cmd.Flags().StringVarP(&f.set, "set", "s", "", "assignments, e.g. \"title = 'x', views += 1\"")
	addWhereFlag(cmd, f)
}

// isRowStatement reports whether a raw statement returns rows.
func isRowStatement(query string) bool {
	fields := strings.Fields(strings.TrimLeft(query, "( \t\r\n"))
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "VALUES", "DESCRIBE", "DESC":
		return true
	}
	return false
}
