// Package config loads sqlwrap CLI settings from flags, the environment,
// .env files and .sqlwrap.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/satishbabariya/sqlwrap/runtime/client"
)

var AppFs = afero.NewOsFs()

const (
	// FileName is the config file name without extension.
	FileName = ".sqlwrap"
	// EnvPrefix prefixes every environment override, e.g. SQLWRAP_DRIVER.
	EnvPrefix = "SQLWRAP"
	// DSNEnv overrides the dsn key when set.
	DSNEnv = "DATABASE_DSN"
)

// Config holds the application configuration
type Config struct {
	Driver         string `mapstructure:"driver" json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN            string `mapstructure:"dsn" json:"dsn,omitempty" yaml:"dsn,omitempty"`
	DBName         string `mapstructure:"dbname" json:"dbname,omitempty" yaml:"dbname,omitempty"`
	Host           string `mapstructure:"host" json:"host,omitempty" yaml:"host,omitempty"`
	Port           int    `mapstructure:"port" json:"port,omitempty" yaml:"port,omitempty"`
	User           string `mapstructure:"user" json:"user,omitempty" yaml:"user,omitempty"`
	Password       string `mapstructure:"password" json:"password,omitempty" yaml:"password,omitempty"`
	Charset        string `mapstructure:"charset" json:"charset,omitempty" yaml:"charset,omitempty"`
	StatementCache int    `mapstructure:"statement_cache" json:"statement_cache,omitempty" yaml:"statement_cache,omitempty"`
	LogQueries     bool   `mapstructure:"log_queries" json:"log_queries,omitempty" yaml:"log_queries,omitempty"`
	LogFormat      string `mapstructure:"log_format" json:"log_format,omitempty" yaml:"log_format,omitempty"`
	MaxOpenConns   int    `mapstructure:"max_open_conns" json:"max_open_conns,omitempty" yaml:"max_open_conns,omitempty"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns" json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-" json:"file,omitempty" yaml:"file,omitempty"`
}

// Keys lists every configuration key.
var Keys = []string{
	"driver", "dsn", "dbname", "host", "port", "user", "password", "charset",
	"statement_cache", "log_queries", "log_format", "max_open_conns", "max_idle_conns",
}

// New returns a viper instance reading from AppFs with the sqlwrap search
// paths, environment prefix and defaults.
func New() (*viper.Viper, error) {
	home, err := homedir.Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(home)
	v.AddConfigPath(filepath.Join(home, ".config", "sqlwrap"))

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for _, key := range Keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault("driver", "sqlite")
	v.SetDefault("statement_cache", 32)
	v.SetDefault("log_queries", false)
	v.SetDefault("log_format", "text")
	v.SetDefault("max_open_conns", 0)
	v.SetDefault("max_idle_conns", 0)

	return v, nil
}

// Load reads .env files and the config file into v and decodes the result.
// A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if err := loadDotEnv(".env", false); err != nil {
		return nil, err
	}
	// .env.local has higher priority
	if err := loadDotEnv(".env.local", true); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if dsn := os.Getenv(DSNEnv); dsn != "" {
		cfg.DSN = dsn
	}
	return cfg, nil
}

// loadDotEnv sets the variables of an env file. Unless overload is set,
// non-empty variables already in the environment win.
func loadDotEnv(name string, overload bool) error {
	data, err := afero.ReadFile(AppFs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	vars, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	for k, val := range vars {
		if os.Getenv(k) != "" && !overload {
			continue
		}
		if err := os.Setenv(k, val); err != nil {
			return err
		}
	}
	return nil
}

// Params converts the configuration into connection parameters.
func (c *Config) Params() client.Params {
	return client.Params{
		Driver:   c.Driver,
		DSN:      c.DSN,
		DBName:   c.DBName,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Charset:  c.Charset,
	}
}

// Save writes the connection settings of cfg to
// $HOME/.config/sqlwrap/.sqlwrap.yaml and returns the path. The password is
// written empty.
func Save(v *viper.Viper, cfg *Config) (string, error) {
	v.Set("driver", cfg.Driver)
	v.Set("dsn", cfg.DSN)
	v.Set("dbname", cfg.DBName)
	v.Set("host", cfg.Host)
	v.Set("port", cfg.Port)
	v.Set("user", cfg.User)
	v.Set("password", "")
	v.Set("charset", cfg.Charset)
	v.Set("statement_cache", cfg.StatementCache)
	v.Set("log_queries", cfg.LogQueries)
	v.Set("log_format", cfg.LogFormat)

	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(home, ".config", "sqlwrap")
	if err := AppFs.MkdirAll(configPath, 0755); err != nil {
		return "", err
	}

	configFile := filepath.Join(configPath, FileName+".yaml")
	return configFile, v.WriteConfigAs(configFile)
}
