// Package config loads runtime settings from the environment. A .env file
// in the working directory is read when present. Non-empty process variables
// win over the file; an exported but empty variable counts as unset. The
// file is never copied into the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvDatabase  = "GAMEDAY_DB"
	EnvActor     = "GAMEDAY_ACTOR"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
)

// Defaults used when a variable is unset.
const (
	DefaultDatabase  = "gameday.db"
	DefaultLogLevel  = "INFO"
	DefaultLogFormat = "text"
)

// Config holds the settings shared by every command.
type Config struct {
	Database  string // SQLite database path
	Actor     string // recorded in audit records
	LogLevel  string // DEBUG, INFO, WARN or ERROR
	LogFormat string // text or json
}

// Load reads the given env files (".env" when none are named) and then the
// process environment. Missing files are not an error. When several files
// set a key the first one wins.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	fromFiles := map[string]string{}
	for _, f := range files {
		values, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		for k, v := range values {
			if _, seen := fromFiles[k]; !seen {
				fromFiles[k] = v
			}
		}
	}

	env := lookup{file: fromFiles}
	cfg := &Config{
		Database:  env.get(EnvDatabase, DefaultDatabase),
		Actor:     env.get(EnvActor, defaultActor()),
		LogLevel:  strings.ToUpper(env.get(EnvLogLevel, DefaultLogLevel)),
		LogFormat: strings.ToLower(env.get(EnvLogFormat, DefaultLogFormat)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown log settings.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("%s must be one of DEBUG, INFO, WARN, ERROR, got %q", EnvLogLevel, c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%s must be text or json, got %q", EnvLogFormat, c.LogFormat)
	}
	if c.Database == "" {
		return fmt.Errorf("%s must not be empty", EnvDatabase)
	}
	return nil
}

// lookup resolves a key from the process environment, then the env files.
type lookup struct {
	file map[string]string
}

func (l lookup) get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if v := strings.TrimSpace(l.file[key]); v != "" {
		return v
	}
	return fallback
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}
