package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Console holds settings of the terminal console.
type Console struct {
	Labels           map[string]map[string]string `yaml:"labels"`
	ServerURL        string                       `yaml:"server_url"`
	DBPath           string                       `yaml:"db_path"`
	LogLevel         string                       `yaml:"log_level"`
	LogFormat        string                       `yaml:"log_format"`
	LogFile          string                       `yaml:"log_file"`
	Timeout          time.Duration                `yaml:"timeout"`
	PollInterval     time.Duration                `yaml:"poll_interval"`
	PageSize         int                          `yaml:"page_size"`
	MaxLoginAttempts int                          `yaml:"max_login_attempts"`
}

// PageSizes are the supported table page sizes.
var PageSizes = []int{5, 10, 20}

// DefaultConsole возвращает настройки по умолчанию
func DefaultConsole() *Console {
	return &Console{
		ServerURL:        "http://localhost:8080",
		DBPath:           "esps-console.db",
		LogLevel:         "warn",
		LogFormat:        "text",
		Timeout:          30 * time.Second,
		PollInterval:     300 * time.Second,
		PageSize:         10,
		MaxLoginAttempts: 5,
	}
}

// LoadConsole: значения по умолчанию -> YAML -> окружение.
// Флаги применяются отдельно через ApplyFlags после разбора командной строки.
func LoadConsole(path string, lookup LookupFunc) (*Console, error) {
	cfg := DefaultConsole()

	if err := readYAML(path, cfg); err != nil {
		return nil, err
	}

	env := &envReader{lookup: lookup}
	env.string("SERVER_URL", &cfg.ServerURL)
	env.string("DB_PATH", &cfg.DBPath)
	env.string("LOG_LEVEL", &cfg.LogLevel)
	env.string("LOG_FORMAT", &cfg.LogFormat)
	env.string("LOG_FILE", &cfg.LogFile)
	env.duration("TIMEOUT", &cfg.Timeout)
	env.duration("POLL_INTERVAL", &cfg.PollInterval)
	env.int("PAGE_SIZE", &cfg.PageSize)
	env.int("MAX_LOGIN_ATTEMPTS", &cfg.MaxLoginAttempts)
	if err := env.err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// RegisterFlags регистрирует флаги консоли со значениями по умолчанию из cfg
func (c *Console) RegisterFlags(fs *pflag.FlagSet) {
	fs.String("server", c.ServerURL, "backend base URL")
	fs.String("db", c.DBPath, "path to the local metadata database")
	fs.String("log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.String("log-format", c.LogFormat, "log format: text or json")
	fs.String("log-file", c.LogFile, "write logs to this file instead of stderr")
	fs.Duration("timeout", c.Timeout, "HTTP request timeout")
	fs.Duration("poll-interval", c.PollInterval, "table refresh interval")
	fs.Int("page-size", c.PageSize, "table page size: 5, 10 or 20")
}

// ApplyFlags переносит в cfg только явно заданные флаги
func (c *Console) ApplyFlags(fs *pflag.FlagSet) error {
	var errs []error
	set := func(name string, apply func() error) {
		if fs.Changed(name) {
			if err := apply(); err != nil {
				errs = append(errs, fmt.Errorf("--%s: %w", name, err))
			}
		}
	}

	set("server", func() (err error) { c.ServerURL, err = fs.GetString("server"); return })
	set("db", func() (err error) { c.DBPath, err = fs.GetString("db"); return })
	set("log-level", func() (err error) { c.LogLevel, err = fs.GetString("log-level"); return })
	set("log-format", func() (err error) { c.LogFormat, err = fs.GetString("log-format"); return })
	set("log-file", func() (err error) { c.LogFile, err = fs.GetString("log-file"); return })
	set("timeout", func() (err error) { c.Timeout, err = fs.GetDuration("timeout"); return })
	set("poll-interval", func() (err error) { c.PollInterval, err = fs.GetDuration("poll-interval"); return })
	set("page-size", func() (err error) { c.PageSize, err = fs.GetInt("page-size"); return })

	return errors.Join(errs...)
}

// Validate проверяет согласованность настроек
func (c *Console) Validate() error {
	var errs []error
	if c.ServerURL == "" {
		errs = append(errs, errors.New("server URL is required"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if !ValidPageSize(c.PageSize) {
		errs = append(errs, fmt.Errorf("page size must be one of %v", PageSizes))
	}
	if c.MaxLoginAttempts <= 0 {
		errs = append(errs, errors.New("max login attempts must be positive"))
	}
	return errors.Join(errs...)
}

// ValidPageSize сообщает, поддерживается ли размер страницы
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}
