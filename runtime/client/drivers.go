package client

import (
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/satishbabariya/sqlwrap/query/sqlgen"
)

// Params describes how to reach a database. Empty fields take the driver's
// defaults. A non-empty DSN is passed to the driver unchanged.
type Params struct {
	Driver   string
	DSN      string
	DBName   string
	Host     string
	Port     int
	User     string
	Password string
	Charset  string
	// Options are extra driver parameters such as sslmode or parseTime.
	Options map[string]string
}

// merge fills the empty fields of p from defaults.
func (p Params) merge(defaults Params) Params {
	if p.Driver == "" {
		p.Driver = defaults.Driver
	}
	if p.DBName == "" {
		p.DBName = defaults.DBName
	}
	if p.Host == "" {
		p.Host = defaults.Host
	}
	if p.Port == 0 {
		p.Port = defaults.Port
	}
	if p.User == "" {
		p.User = defaults.User
	}
	if p.Password == "" {
		p.Password = defaults.Password
	}
	if p.Charset == "" {
		p.Charset = defaults.Charset
	}
	if len(defaults.Options) > 0 {
		opts := make(map[string]string, len(p.Options)+len(defaults.Options))
		for k, v := range defaults.Options {
			opts[k] = v
		}
		for k, v := range p.Options {
			opts[k] = v
		}
		p.Options = opts
	}
	return p
}

// baseDefaults apply to every driver.
var baseDefaults = Params{
	Charset: "utf8mb4",
}

// DriverConfig describes a supported database family.
type DriverConfig struct {
	// Name is the canonical driver identifier.
	Name string
	// SQLDriver is the database/sql driver name.
	SQLDriver string
	Dialect   sqlgen.Dialect
	Defaults  Params
	// VersionQuery returns the server version as a single text column.
	VersionQuery string
	// MinSavepointVersion is the oldest server version with SAVEPOINT,
	// RELEASE SAVEPOINT and ROLLBACK TO SAVEPOINT.
	MinSavepointVersion string

	dsn func(Params) string
}

// DSN builds a connection string from p. p.DSN wins when set.
func (d DriverConfig) DSN(p Params) string {
	if p.DSN != "" {
		return p.DSN
	}
	return d.dsn(p.merge(d.Defaults).merge(baseDefaults))
}

// Registry maps driver identifiers to their configuration. It is not
// modified after construction.
type Registry struct {
	drivers map[string]DriverConfig
	aliases map[string]string
}

var defaultRegistry = &Registry{
	drivers: map[string]DriverConfig{
		"mysql": {
			Name:                "mysql",
			SQLDriver:           "mysql",
			Dialect:             sqlgen.MySQL,
			Defaults:            Params{Host: "localhost", Port: 3306, User: "root"},
			VersionQuery:        "SELECT VERSION()",
			MinSavepointVersion: "4.1.1",
			dsn:                 mysqlDSN,
		},
		"pgsql": {
			Name:                "pgsql",
			SQLDriver:           "postgres",
			Dialect:             sqlgen.Postgres,
			Defaults:            Params{Host: "localhost", Port: 5432, User: "postgres"},
			VersionQuery:        "SHOW server_version",
			MinSavepointVersion: "8.0",
			dsn:                 postgresDSN,
		},
		"sqlite": {
			Name:                "sqlite",
			SQLDriver:           "sqlite3",
			Dialect:             sqlgen.SQLite,
			Defaults:            Params{DBName: ":memory:"},
			VersionQuery:        "SELECT sqlite_version()",
			MinSavepointVersion: "3.6.8",
			dsn:                 sqliteDSN,
		},
	},
	aliases: map[string]string{
		"postgres":   "pgsql",
		"postgresql": "pgsql",
		"sqlite3":    "sqlite",
		"mariadb":    "mysql",
	},
}

// DefaultRegistry returns the built-in drivers: mysql, pgsql and sqlite.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Lookup resolves a driver identifier or alias, ignoring case.
func (r *Registry) Lookup(name string) (DriverConfig, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	cfg, ok := r.drivers[key]
	if !ok {
		return DriverConfig{}, fmt.Errorf("%w: %q (supported: %s)", ErrInvalidDriver, name, strings.Join(r.Names(), ", "))
	}
	return cfg, nil
}

// Names returns the canonical driver identifiers in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mysqlDSN(p Params) string {
	cfg := mysql.NewConfig()
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	cfg.DBName = p.DBName
	cfg.Params = map[string]string{}
	if p.Charset != "" {
		cfg.Params["charset"] = p.Charset
	}
	for k, v := range p.Options {
		cfg.Params[k] = v
	}
	return cfg.FormatDSN()
}

// postgresDSN builds a libpq key/value connection string.
func postgresDSN(p Params) string {
	pairs := [][2]string{
		{"host", p.Host},
		{"port", portString(p.Port)},
		{"user", p.User},
		{"password", p.Password},
		{"dbname", p.DBName},
	}

	keys := make([]string, 0, len(p.Options))
	for k := range p.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, p.Options[k]})
	}

	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		if kv[1] == "" {
			continue
		}
		parts = append(parts, kv[0]+"="+pqValue(kv[1]))
	}
	return strings.Join(parts, " ")
}

// pqValue quotes a libpq value when it is empty or contains spaces, quotes
// or backslashes.
func pqValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func sqliteDSN(p Params) string {
	if len(p.Options) == 0 {
		return p.DBName
	}
	keys := make([]string, 0, len(p.Options))
	for k := range p.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := make([]string, len(keys))
	for i, k := range keys {
		q[i] = k + "=" + p.Options[k]
	}
	return "file:" + p.DBName + "?" + strings.Join(q, "&")
}

func portString(port int) string {
	if port == 0 {
		return ""
	}
	return strconv.Itoa(port)
}

// isMemoryDSN reports whether a SQLite DSN names a private in-memory
// database, which exists per connection.
func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") && !strings.Contains(dsn, "cache=shared")
}
