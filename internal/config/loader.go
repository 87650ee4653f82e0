package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	durationType = reflect.TypeFor[time.Duration]()
	timeType     = reflect.TypeFor[time.Time]()
)

// Load builds a Config from the environment, applies tag defaults and
// validates the result. Every malformed variable is reported, not just the
// first.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := populate(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad is Load for main: it panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// populate walks the struct and fills every field carrying an env tag.
// Nested structs are walked recursively.
func populate(v reflect.Value) error {
	var errs []error

	for i := range v.NumField() {
		field, sf := v.Field(i), v.Type().Field(i)
		if !field.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct && sf.Type != timeType {
			if err := populate(field); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}

		raw, ok := lookupEnv(name, sf.Tag.Get("envAlt"))
		if !ok {
			if sf.Tag.Get("required") == "true" {
				errs = append(errs, fmt.Errorf("required environment variable %s is not set", name))
				continue
			}
			raw = sf.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		if err := assign(field, raw); err != nil {
			errs = append(errs, fmt.Errorf("invalid value for %s=%q: %w", name, raw, err))
		}
	}
	return errors.Join(errs...)
}

// lookupEnv returns the first non-empty value of name or alt.
func lookupEnv(name, alt string) (string, bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	if alt != "" {
		if v := os.Getenv(alt); v != "" {
			return v, true
		}
	}
	return "", false
}

// assign parses raw into field according to the field's type.
func assign(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem().Kind())
		}
		field.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	check(c.Server.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	check(c.Database.MaxConns > 0, "DB_MAX_CONNS must be positive")
	check(c.Database.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
	check(c.Database.MaxConns >= c.Database.MinConns,
		"DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)

	check(c.Redis.DB >= 0, "REDIS_DB must be non-negative")
	check(c.Redis.Addr == "" || c.Redis.TTL > 0, "REDIS_CACHE_TTL must be positive when REDIS_ADDR is set")

	check(c.Import.MaxFileSize > 0, "IMPORT_MAX_FILE_SIZE must be positive")
	check(c.Import.RowDelay >= 0, "IMPORT_ROW_DELAY must be non-negative")
	check(c.Import.MaxConcurrent > 0, "IMPORT_MAX_CONCURRENT must be positive")
	check(c.Import.MaxWaitTime > 0, "IMPORT_MAX_WAIT_TIME must be positive")
	check(c.Import.SessionTTL > 0, "IMPORT_SESSION_TTL must be positive")

	check(slices.Contains([]int{12, 24, 48}, c.Catalog.DefaultPageSize),
		"CATALOG_DEFAULT_PAGE_SIZE (%d) must be one of: 12, 24, 48", c.Catalog.DefaultPageSize)
	check(c.Catalog.MockProducts >= 0, "CATALOG_MOCK_PRODUCTS must be non-negative")

	check(!c.Rate.Enabled || c.Rate.RequestsPerMinute > 0,
		"RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")

	level := strings.ToLower(c.Logging.Level)
	check(slices.Contains([]string{"debug", "info", "warn", "error"}, level),
		"LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	format := strings.ToLower(c.Logging.Format)
	check(format == "text" || format == "json", "LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(problems, "\n  - "))
}

// String renders the config for logs with the database URL and Redis
// password masked.
func (c *Config) String() string {
	mask := func(s string) string {
		if s == "" {
			return "[NONE]"
		}
		return "[MASKED]"
	}

	return fmt.Sprintf("Config{Server: {Host: %q, Port: %d}, "+
		"Database: {URL: %s, MaxConns: %d, MinConns: %d}, "+
		"Redis: {Addr: %q, Password: %s, TTL: %s}, "+
		"Import: {MaxFileSize: %d, MaxConcurrent: %d, RowDelay: %s}, "+
		"Catalog: {DefaultPageSize: %d, MockProducts: %d}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Host, c.Server.Port,
		mask(c.Database.URL), c.Database.MaxConns, c.Database.MinConns,
		c.Redis.Addr, mask(c.Redis.Password), c.Redis.TTL,
		c.Import.MaxFileSize, c.Import.MaxConcurrent, c.Import.RowDelay,
		c.Catalog.DefaultPageSize, c.Catalog.MockProducts,
		c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Logging.Level, c.Logging.Format)
}
