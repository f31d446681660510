package client_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/satishbabariya/sqlwrap/query/sqlgen"
	"github.com/satishbabariya/sqlwrap/runtime/client"
)

// IntegrationSuite runs the client against one live backend.
type IntegrationSuite struct {
	suite.Suite
	driver string
	dsn    string
	client *client.Client
	ctx    context.Context
	cancel context.CancelFunc
}

func TestIntegration(t *testing.T) {
	backends := []struct {
		driver string
		env    string
		dsn    string
	}{
		{driver: "sqlite", dsn: ":memory:"},
		{driver: "pgsql", env: "SQLWRAP_TEST_PG_DSN"},
		{driver: "mysql", env: "SQLWRAP_TEST_MYSQL_DSN"},
	}

	for _, b := range backends {
		dsn := b.dsn
		if b.env != "" {
			dsn = os.Getenv(b.env)
		}
		t.Run(b.driver, func(t *testing.T) {
			if dsn == "" {
				t.Skipf("%s not set", b.env)
			}
			suite.Run(t, &IntegrationSuite{driver: b.driver, dsn: dsn})
		})
	}
}

// SetupSuite runs once per backend
func (s *IntegrationSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), time.Minute)

	c, err := client.Connect(s.ctx, client.Params{Driver: s.driver, DSN: s.dsn})
	require.NoError(s.T(), err)
	s.client = c
}

// TearDownSuite closes the connection
func (s *IntegrationSuite) TearDownSuite() {
	if s.client != nil {
		s.NoError(s.client.Close())
	}
	s.cancel()
}

// SetupTest recreates the fixture tables
func (s *IntegrationSuite) SetupTest() {
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS sw_orders",
		"DROP TABLE IF EXISTS sw_customers",
		"CREATE TABLE sw_customers (id INTEGER PRIMARY KEY, email VARCHAR(191) NOT NULL UNIQUE, name VARCHAR(100), orders INTEGER NOT NULL DEFAULT 0)",
		"CREATE TABLE sw_orders (id INTEGER PRIMARY KEY, customer_id INTEGER NOT NULL, total INTEGER NOT NULL)",
	} {
		_, err := s.client.Exec(s.ctx, stmt)
		s.Require().NoError(err, stmt)
	}
}

func (s *IntegrationSuite) count(table string) int {
	rows, err := s.client.Select(s.ctx, []string{"id"}, sqlgen.From(table), nil, nil)
	s.Require().NoError(err)
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	s.Require().NoError(rows.Err())
	return n
}

func (s *IntegrationSuite) seed() {
	_, err := s.client.Insert(s.ctx, "sw_customers", sqlgen.Maps{
		{"id": 1, "email": "ann@example.com", "name": "Ann"},
		{"id": 2, "email": "bob@example.com", "name": "Bob"},
	})
	s.Require().NoError(err)
	_, err = s.client.Insert(s.ctx, "sw_orders", sqlgen.Maps{
		{"id": 10, "customer_id": 1, "total": 100},
		{"id": 11, "customer_id": 1, "total": 250},
		{"id": 12, "customer_id": 2, "total": 75},
	})
	s.Require().NoError(err)
}

func (s *IntegrationSuite) TestCRUD() {
	s.seed()

	n, err := s.client.Update(s.ctx, "sw_customers",
		sqlgen.Row{{Column: "orders +=", Value: 2}, {Column: "name", Value: "Annie"}},
		sqlgen.Filter{sqlgen.Where("id", 1)})
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	rows, err := s.client.Select(s.ctx,
		[]string{"c.name", "o.total"},
		sqlgen.From("sw_customers c").On("sw_orders o", sqlgen.Filter{sqlgen.Where("o.customer_id", "c.id")}),
		sqlgen.Filter{sqlgen.Where("o.total >=", 100), sqlgen.Where("c.orders", 2)},
		[]string{"o.total DESC"})
	s.Require().NoError(err)

	var got []string
	for rows.Next() {
		var name string
		var total int
		s.Require().NoError(rows.Scan(&name, &total))
		got = append(got, fmt.Sprintf("%s:%d", name, total))
	}
	s.Require().NoError(rows.Close())
	s.Equal([]string{"Annie:250", "Annie:100"}, got)

	n, err = s.client.Delete(s.ctx, "sw_orders", sqlgen.Filter{sqlgen.Where("customer_id", []int{1, 2}), sqlgen.Where("total <", 200)})
	s.Require().NoError(err)
	s.Equal(int64(2), n)
	s.Equal(1, s.count("sw_orders"))
}

func (s *IntegrationSuite) TestUpsert() {
	s.seed()

	_, err := s.client.Insert(s.ctx, "sw_customers", sqlgen.Map{"id": 3, "email": "ann@example.com"})
	s.ErrorIs(err, client.ErrConstraintViolation)

	n, err := s.client.Insert(s.ctx, "sw_customers", sqlgen.Map{"id": 1, "email": "ann@example.com", "name": "Ann B."}, "id")
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	s.Equal(2, s.count("sw_customers"))
}

func (s *IntegrationSuite) TestNestedTransactions() {
	err := s.client.Transaction(s.ctx, func(c *client.Client) error {
		if _, err := c.Insert(s.ctx, "sw_customers", sqlgen.Map{"id": 1, "email": "kept@example.com"}); err != nil {
			return err
		}
		_ = c.Transaction(s.ctx, func(c *client.Client) error {
			if _, err := c.Insert(s.ctx, "sw_customers", sqlgen.Map{"id": 2, "email": "dropped@example.com"}); err != nil {
				return err
			}
			return fmt.Errorf("discard level %d", c.Depth())
		})
		s.Equal(1, c.Depth())
		return nil
	})
	s.Require().NoError(err)
	s.Equal(0, s.client.Depth())
	s.Equal(1, s.count("sw_customers"))

	s.ErrorIs(s.client.Commit(s.ctx), client.ErrNoTransaction)
}

func (s *IntegrationSuite) TestCompileErrorsNeverReachDriver() {
	_, err := s.client.Delete(s.ctx, "sw_orders", nil)
	s.ErrorIs(err, client.ErrEmptyFilter)
	s.NotErrorIs(err, client.ErrExecution)

	_, err = s.client.Select(s.ctx, []string{"count(*)"}, sqlgen.From("sw_orders"), nil, nil)
	s.ErrorIs(err, client.ErrInvalidIdentifier)
}
