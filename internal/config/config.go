package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	// Time zones resolve without a system zoneinfo database.
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/yukikurage/task-macro-sync/internal/constants"
	"github.com/yukikurage/task-macro-sync/internal/markup"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Config struct {
	DBDriver   string `yaml:"db_driver"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBPath     string `yaml:"db_path"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Task TaskConfig `yaml:"task"`
}

// TaskConfig holds the settings consulted by extraction and rendering.
type TaskConfig struct {
	// StorageDateFormat and DisplayDateFormat are Go time layouts.
	StorageDateFormat string `yaml:"storage_date_format"`
	DisplayDateFormat string `yaml:"display_date_format"`
	Timezone          string `yaml:"timezone"`
	DefaultSyntax     string `yaml:"default_syntax"`
	FallbackSpace     string `yaml:"fallback_space"`
	NamePrefix        string `yaml:"name_prefix"`
}

func Load() *Config {
	storage := getEnv("TASK_STORAGE_DATE_FORMAT", constants.DefaultStorageDateFormat)
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", DriverSQLite),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "taskuser"),
		DBPassword: getEnv("DB_PASSWORD", "taskpassword"),
		DBName:     getEnv("DB_NAME", "task_macro_sync"),
		DBPath:     getEnv("DB_PATH", "tasks.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "console"),
		Task: TaskConfig{
			StorageDateFormat: storage,
			DisplayDateFormat: getEnv("TASK_DISPLAY_DATE_FORMAT", storage),
			Timezone:          getEnv("TASK_TIMEZONE", constants.DefaultTimezone),
			DefaultSyntax:     getEnv("TASK_DEFAULT_SYNTAX", markup.SyntaxXWiki),
			FallbackSpace:     getEnv("TASK_FALLBACK_SPACE", constants.DefaultFallbackSpace),
			NamePrefix:        getEnv("TASK_NAME_PREFIX", constants.DefaultNamePrefix),
		},
	}
}

// LoadFile overlays the YAML file at path on top of the environment
// configuration. Keys missing from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error

	switch c.DBDriver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("db_driver %q is not supported", c.DBDriver))
	}

	if c.Task.StorageDateFormat == "" {
		errs = append(errs, errors.New("task.storage_date_format is required"))
	}
	if c.Task.DisplayDateFormat == "" {
		errs = append(errs, errors.New("task.display_date_format is required"))
	}
	if _, err := time.LoadLocation(c.Task.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("task.timezone: %w", err))
	}
	switch c.Task.DefaultSyntax {
	case markup.SyntaxXWiki, markup.SyntaxPlain:
	default:
		errs = append(errs, fmt.Errorf("task.default_syntax %q is not supported", c.Task.DefaultSyntax))
	}
	if c.Task.FallbackSpace == "" {
		errs = append(errs, errors.New("task.fallback_space is required"))
	}
	if c.Task.NamePrefix == "" {
		errs = append(errs, errors.New("task.name_prefix is required"))
	}

	return errors.Join(errs...)
}

// Location returns the time zone dates are parsed and formatted in.
func (t TaskConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
