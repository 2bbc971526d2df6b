// Package config resolves database connection settings from the process
// environment, an optional .env file, and an optional pgease.yaml file.
//
// Precedence, lowest to highest: built-in defaults, pgease.yaml, environment
// variables (DB_ prefix). A .env file in the working directory is loaded
// into the environment first, so its values rank with environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config file names searched in the working directory.
const (
	ConfigFileName    = "pgease.yaml"
	ConfigFileNameAlt = "pgease.yml"
)

const envPrefix = "DB_"

// Config holds resolved connection parameters. Immutable once constructed.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Schema is the search path applied after connecting.
	// Empty means "use the database default".
	Schema string

	// Tables is the set of table names the metadata cache reflects.
	Tables []string
}

// rawConfig is the koanf unmarshal target. Tables arrives as a single
// comma-separated string (DB_TABLES=a,b,c) and is split afterwards.
type rawConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
	Schema   string `koanf:"schema"`
	Tables   string `koanf:"tables"`
}

// Load builds a Config from defaults, an optional config file in the
// working directory, and DB_-prefixed environment variables.
func Load() (*Config, error) {
	// Pull a .env file into the environment if one exists. Missing files
	// are not an error.
	_ = godotenv.Load()

	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"port":    5432,
		"sslmode": "disable",
		"schema":  "",
		"tables":  "",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Optional config file
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment variables (highest priority)
	// Transform: DB_HOST -> host
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var raw rawConfig
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &Config{
		Host:     raw.Host,
		Port:     raw.Port,
		Database: raw.Database,
		User:     raw.User,
		Password: raw.Password,
		SSLMode:  raw.SSLMode,
		Schema:   raw.Schema,
		Tables:   splitTables(raw.Tables),
	}, nil
}

// DSN renders the keyword/value connection string understood by pgx.
func (c *Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Host), port, dsnValue(c.User), dsnValue(c.Password),
		dsnValue(c.Database), dsnValue(sslMode),
	)
}

// dsnValue quotes a keyword/value setting when it is empty or contains
// characters the parser treats specially. Backslash and single quote are
// backslash-escaped inside quotes.
func dsnValue(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// splitTables parses a comma-separated table list, trimming whitespace and
// dropping empty entries.
func splitTables(s string) []string {
	var tables []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			tables = append(tables, name)
		}
	}
	return tables
}

// findConfigFile locates pgease.yaml or pgease.yml in the working directory.
// Returns empty string if neither exists.
func findConfigFile() string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
