package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"
)

// Lockout drivers.
const (
	LockoutMemory = "memory"
	LockoutRedis  = "redis"
)

// Redis holds the connection of the shared lockout store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	DB       int    `yaml:"db"`
}

// Lockout configures login failure counting.
type Lockout struct {
	Driver      string        `yaml:"driver"`
	Redis       Redis         `yaml:"redis"`
	Window      time.Duration `yaml:"window"`
	MaxFailures int           `yaml:"max_failures"`
}

// Server holds settings of the backend.
type Server struct {
	Lockout        Lockout       `yaml:"lockout"`
	Addr           string        `yaml:"addr"`
	DBPath         string        `yaml:"db_path"`
	JWTSecret      string        `yaml:"jwt_secret"`
	SeedFile       string        `yaml:"seed_file"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	ShowVersion    bool          `yaml:"-"`
}

// DefaultServer возвращает настройки backend по умолчанию
func DefaultServer() *Server {
	return &Server{
		Addr:           ":8080",
		DBPath:         "esps-server.db",
		LogLevel:       "info",
		LogFormat:      "text",
		AccessTokenTTL: 8 * time.Hour,
		RateLimit:      10,
		RateBurst:      20,
		Lockout: Lockout{
			Driver:      LockoutMemory,
			MaxFailures: 5,
			Window:      15 * time.Minute,
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "esps:lockout:",
			},
		},
	}
}

// LoadServer: значения по умолчанию -> YAML (-config) -> окружение -> флаги.
func LoadServer(args []string, lookup LookupFunc) (*Server, error) {
	// Путь к файлу нужен до разбора остальных флагов
	pre := flag.NewFlagSet("esps-server", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	configPath := pre.String("config", "", "")
	_ = pre.Parse(filterArgs(args, "config"))

	path := *configPath
	if path == "" {
		if v, ok := lookup(EnvPrefix + "SERVER_CONFIG"); ok {
			path = v
		}
	}

	cfg := DefaultServer()
	if err := readYAML(path, cfg); err != nil {
		return nil, err
	}

	env := &envReader{lookup: lookup}
	env.string("SERVER_ADDR", &cfg.Addr)
	env.string("SERVER_DB", &cfg.DBPath)
	env.string("JWT_SECRET", &cfg.JWTSecret)
	env.string("SEED_FILE", &cfg.SeedFile)
	env.string("LOG_LEVEL", &cfg.LogLevel)
	env.string("LOG_FORMAT", &cfg.LogFormat)
	env.duration("TOKEN_TTL", &cfg.AccessTokenTTL)
	env.float("RATE_LIMIT", &cfg.RateLimit)
	env.int("RATE_BURST", &cfg.RateBurst)
	env.string("LOCKOUT_DRIVER", &cfg.Lockout.Driver)
	env.int("LOCKOUT_MAX_FAILURES", &cfg.Lockout.MaxFailures)
	env.duration("LOCKOUT_WINDOW", &cfg.Lockout.Window)
	env.string("REDIS_ADDR", &cfg.Lockout.Redis.Addr)
	env.string("REDIS_PASSWORD", &cfg.Lockout.Redis.Password)
	env.int("REDIS_DB", &cfg.Lockout.Redis.DB)
	if err := env.err(); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet("esps-server", flag.ContinueOnError)
	fs.String("config", path, "path to YAML config file")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to SQLite database")
	fs.StringVar(&cfg.SeedFile, "seed", cfg.SeedFile, "YAML file with demo users and certificates")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	fs.DurationVar(&cfg.AccessTokenTTL, "token-ttl", cfg.AccessTokenTTL, "access token lifetime")
	fs.StringVar(&cfg.Lockout.Driver, "lockout", cfg.Lockout.Driver, "lockout store: memory or redis")
	fs.StringVar(&cfg.Lockout.Redis.Addr, "redis", cfg.Lockout.Redis.Addr, "redis address for the lockout store")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "requests per second per client, 0 disables")
	fs.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "request burst per client")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "show version information")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек backend
func (s *Server) Validate() error {
	var errs []error
	if len(s.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("%sJWT_SECRET must be at least 32 bytes", EnvPrefix))
	}
	if s.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access token TTL must be positive"))
	}
	switch s.Lockout.Driver {
	case LockoutMemory, LockoutRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown lockout driver %q", s.Lockout.Driver))
	}
	if s.Lockout.MaxFailures <= 0 || s.Lockout.Window <= 0 {
		errs = append(errs, errors.New("lockout max failures and window must be positive"))
	}
	return errors.Join(errs...)
}

// filterArgs оставляет только флаг name (в формах -name v, -name=v и с двумя дефисами)
func filterArgs(args []string, name string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		for _, prefix := range []string{"-" + name, "--" + name} {
			if a == prefix && i+1 < len(args) {
				out = append(out, a, args[i+1])
				i++
				break
			}
			if len(a) > len(prefix) && a[:len(prefix)+1] == prefix+"=" {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
