// Package config loads settings of the console and the backend.
//
// Sources are applied in order, later ones win: built-in defaults, an optional
// YAML file, environment variables (ESPS_*, a .env file is loaded first if present)
// and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable.
const EnvPrefix = "ESPS_"

// LookupFunc returns an environment variable (os.LookupEnv in production).
type LookupFunc func(key string) (string, bool)

// LoadDotEnv загружает .env, если файл существует; существующие переменные не перезаписываются
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// readYAML накладывает YAML файл на уже заполненную структуру
func readYAML(path string, dst any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// envReader собирает ошибки разбора, чтобы сообщить обо всех сразу
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (r *envReader) string(key string, dst *string) {
	if v, ok := r.lookup(EnvPrefix + key); ok {
		*dst = v
	}
}

func (r *envReader) int(key string, dst *int) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = n
}

func (r *envReader) float(key string, dst *float64) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = f
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
		return
	}
	*dst = d
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}
