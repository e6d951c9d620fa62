package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/matt-steen/taskboard/pkg/api"
	"github.com/rs/zerolog"
)

// These constants refer to the environment variables read by FromEnv.
const (
	EnvAPIURL   = "TASKBOARD_API_URL"
	EnvTimeout  = "TASKBOARD_TIMEOUT"
	EnvLogFile  = "TASKBOARD_LOG_FILE"
	EnvLogLevel = "TASKBOARD_LOG_LEVEL"
	EnvDraftDB  = "TASKBOARD_DRAFT_DB"
	EnvPretty   = "TASKBOARD_PRETTY"
)

// Config holds the settings shared by the TUI and the commands.
type Config struct {
	APIURL   string
	Timeout  time.Duration
	LogFile  string
	LogLevel string
	DraftDB  string
	Pretty   bool
}

// LoadEnv loads environment variables from the given .env files (".env" when none
// are given). Missing files are not an error; variables already set win.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading env file: %w", err)
	}

	return nil
}

// EnvOr returns the value of the environment variable k, or d when it is unset or empty.
func EnvOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}

	return d
}

// DataDir is where taskboard keeps its files: $XDG_DATA_HOME/taskboard, else ~/.taskboard.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskboard")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskboard"
	}

	return filepath.Join(home, ".taskboard")
}

// FromEnv builds a Config from the environment, with defaults for anything unset.
func FromEnv() (Config, error) {
	cfg := Config{
		APIURL:   EnvOr(EnvAPIURL, api.DefaultBaseURL),
		Timeout:  api.DefaultTimeout,
		LogFile:  EnvOr(EnvLogFile, filepath.Join(DataDir(), "taskboard.log")),
		LogLevel: EnvOr(EnvLogLevel, zerolog.InfoLevel.String()),
		DraftDB:  EnvOr(EnvDraftDB, filepath.Join(DataDir(), "draft.sqlite")),
	}

	if v := os.Getenv(EnvTimeout); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("error parsing %s '%s': %w", EnvTimeout, v, err)
		}

		cfg.Timeout = timeout
	}

	if v := os.Getenv(EnvPretty); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("error parsing %s '%s': %w", EnvPretty, v, err)
		}

		cfg.Pretty = pretty
	}

	return cfg, nil
}

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("error parsing log level '%s': %w", c.LogLevel, err)
	}

	return level, nil
}

// Validate checks the settings that would otherwise fail later and less clearly.
func (c Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("error parsing api url '%s': %w", c.APIURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api url '%s' must use http or https", c.APIURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	return nil
}
