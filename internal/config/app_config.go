package config

import (
	"embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed configs/*.yml
var configFiles embed.FS

// AppConfig is the merged view of configs/default.yml and configs/<env>.yml.
// Values are looked up as "section.key"; an environment variable named
// SECTION_KEY (upper case, prefixed by EnvPrefix when set) wins over the file.
type AppConfig struct {
	EnvPrefix string
	prefix    string
	settings  map[string]map[string]string
}

var (
	appConfig     *AppConfig
	appConfigErr  error
	appConfigOnce sync.Once
	validate      = validator.New()
)

// Env returns the deployment environment name, "dev" when APP_ENV is unset.
func Env() string {
	return Get("APP_ENV", "dev")
}

// IsDevelopment reports whether the service runs in the dev environment.
func IsDevelopment() bool {
	return Env() == "dev"
}

// Load returns the process-wide AppConfig, reading the embedded files once.
func Load() (*AppConfig, error) {
	appConfigOnce.Do(func() {
		appConfig, appConfigErr = NewAppConfig(Env())
	})
	return appConfig, appConfigErr
}

// NewAppConfig merges the default file with the file for env. A missing env
// file is not an error.
func NewAppConfig(env string) (*AppConfig, error) {
	settings := make(map[string]map[string]string)
	if err := mergeFile(settings, "configs/default.yml", true); err != nil {
		return nil, err
	}
	if env != "" && env != "default" {
		if err := mergeFile(settings, "configs/"+env+".yml", false); err != nil {
			return nil, err
		}
	}
	return &AppConfig{settings: settings}, nil
}

func mergeFile(settings map[string]map[string]string, name string, required bool) error {
	data, err := configFiles.ReadFile(name)
	if err != nil {
		if required {
			return fmt.Errorf("read %s: %w", name, err)
		}
		return nil
	}
	var parsed map[string]map[string]string
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	for section, values := range parsed {
		if settings[section] == nil {
			settings[section] = make(map[string]string)
		}
		for k, v := range values {
			settings[section][k] = v
		}
	}
	return nil
}

// WithPrefix returns a copy of the config whose keys are resolved inside section.
func (c *AppConfig) WithPrefix(section string) *AppConfig {
	clone := *c
	clone.prefix = section
	return &clone
}

func (c *AppConfig) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + "." + key
}

// Value returns the file value for key, or "" when absent.
func (c *AppConfig) Value(key string) string {
	section, name, ok := strings.Cut(c.key(key), ".")
	if !ok {
		return ""
	}
	return c.settings[section][name]
}

// ValueFromEnvFirst prefers the SECTION_KEY environment variable over the file.
func (c *AppConfig) ValueFromEnvFirst(key string) string {
	envKey := strings.ToUpper(strings.ReplaceAll(c.key(key), ".", "_"))
	if c.EnvPrefix != "" {
		envKey = c.EnvPrefix + "_" + envKey
	}
	if v, ok := os.LookupEnv(envKey); ok {
		return v
	}
	return c.Value(key)
}

// IntValue returns the value as an int, falling back to def when zero or invalid.
func (c *AppConfig) IntValue(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(c.ValueFromEnvFirst(key)))
	if err != nil || v == 0 {
		return def
	}
	return v
}

// DurationValue returns the value as a duration, falling back to def.
func (c *AppConfig) DurationValue(key string, def time.Duration) time.Duration {
	v := c.ValueFromEnvFirst(key)
	if v == "" {
		return def
	}
	d, err := ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// BasicConfig holds the HTTP server settings.
type BasicConfig struct {
	Listen       string        `validate:"required"`
	RequestLimit int           `validate:"min=0,max=100000"`
	Timeout      time.Duration `validate:"min=0"`
	Workers      int           `validate:"min=0,max=1024"`
	QueueSize    int           `validate:"min=0"`
	MaxBodySize  int64         `validate:"min=0"`
	RateLimit    float64       `validate:"min=0"`
	RateBurst    int           `validate:"min=0"`
}

// NewBasicConfig reads and validates the basic section.
func NewBasicConfig(c *AppConfig) (*BasicConfig, error) {
	basic := c.WithPrefix("basic")
	rate, _ := strconv.ParseFloat(basic.ValueFromEnvFirst("rateLimit"), 64)
	cfg := &BasicConfig{
		Listen:       basic.ValueFromEnvFirst("listen"),
		RequestLimit: basic.IntValue("requestLimit", 5000),
		Timeout:      basic.DurationValue("timeout", 30*time.Second),
		Workers:      basic.IntValue("workers", 0),
		QueueSize:    basic.IntValue("queueSize", 64),
		MaxBodySize:  int64(basic.IntValue("maxBodySize", 5<<20)),
		RateLimit:    rate,
		RateBurst:    basic.IntValue("rateBurst", 20),
	}
	// PORT keeps compatibility with container platforms that only set a port.
	if port := Get("PORT", ""); port != "" {
		host, _, _ := strings.Cut(cfg.Listen, ":")
		cfg.Listen = host + ":" + port
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid basic config: %w", err)
	}
	return cfg, nil
}

// DatabaseConfig holds the render audit log settings.
type DatabaseConfig struct {
	Type      string `validate:"oneof=sqlite postgres none"`
	DataDir   string
	DSN       string
	Retention time.Duration
}

// NewDatabaseConfig reads and validates the database section. DB_TYPE,
// DATA_DIR and DATABASE_URL override the file values.
func NewDatabaseConfig(c *AppConfig) (*DatabaseConfig, error) {
	db := c.WithPrefix("database")
	cfg := &DatabaseConfig{
		Type:      Get("DB_TYPE", db.Value("type")),
		DataDir:   Get("DATA_DIR", db.Value("dataDir")),
		DSN:       Get("DATABASE_URL", ""),
		Retention: db.DurationValue("retention", 30*24*time.Hour),
	}
	if cfg.Type == "" {
		cfg.Type = "none"
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	return cfg, nil
}
