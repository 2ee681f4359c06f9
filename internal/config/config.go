package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type AppConfig struct {
	API       *APIConfig       `mapstructure:"api"`
	Gin       *GinConfig       `mapstructure:"gin"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Admin     *AdminConfig     `mapstructure:"admin"`
	RateLimit *RateLimitConfig `mapstructure:"rate_limit"`
	Public    *PublicConfig    `mapstructure:"public"`
	Live      *LiveConfig      `mapstructure:"live"`
}

type APIConfig struct {
	Port               string        `mapstructure:"port"`
	Environment        string        `mapstructure:"environment"`
	BaseURL            string        `mapstructure:"base_url"`
	PublicURL          string        `mapstructure:"public_url"`
	JWTSigningKey      string        `mapstructure:"jwt_signing_key"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	Timezone           string        `mapstructure:"timezone"`
	AllowedCORSDomains []string      `mapstructure:"allowed_cors_domains"`
}

type GinConfig struct {
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	URL         string `mapstructure:"url"`
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DB          string `mapstructure:"db"`
	SSLMode     string `mapstructure:"sslmode"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// AdminConfig holds the credentials of the account created on first start.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type RateLimitConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Window   time.Duration `mapstructure:"window"`
	Block    time.Duration `mapstructure:"block"`
}

type PublicConfig struct {
	ShareTTL time.Duration `mapstructure:"share_ttl"`
	Rate     float64       `mapstructure:"rate"`
	Burst    int           `mapstructure:"burst"`
}

type LiveConfig struct {
	PresenceWindow time.Duration `mapstructure:"presence_window"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// Load reads the YAML file at path, then applies environment overrides.
func Load(path string) (*AppConfig, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	return decode(v)
}

// Watch loads the configuration and calls onChange with the new values every
// time the file is written.
func Watch(path string, onChange func(*AppConfig)) (*AppConfig, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}

	conf, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		updated, err := decode(v)
		if err != nil {
			zap.L().Warn("ignoring invalid configuration change",
				zap.String("file", e.Name),
				zap.Error(err),
			)
			return
		}
		onChange(updated)
	})
	v.WatchConfig()

	return conf, nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("v.ReadInConfig -> %w", err)
	}

	return v, nil
}

func decode(v *viper.Viper) (*AppConfig, error) {
	conf := &AppConfig{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("v.Unmarshal -> %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("conf.Validate -> %w", err)
	}

	return conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.environment", "development")
	v.SetDefault("api.base_url", "localhost:8080")
	v.SetDefault("api.public_url", "http://localhost:8080")
	v.SetDefault("api.jwt_signing_key", "")
	v.SetDefault("api.token_ttl", "24h")
	v.SetDefault("api.timezone", "Europe/Paris")
	v.SetDefault("api.allowed_cors_domains", []string{"http://localhost:3000"})
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db", "pcprep")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.auto_migrate", true)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")
	v.SetDefault("rate_limit.attempts", 5)
	v.SetDefault("rate_limit.window", "60s")
	v.SetDefault("rate_limit.block", "300s")
	v.SetDefault("public.share_ttl", "72h")
	v.SetDefault("public.rate", 5)
	v.SetDefault("public.burst", 20)
	v.SetDefault("live.presence_window", "2m")
	v.SetDefault("live.poll_interval", "2s")
}

// bindEnv maps the historical variable names onto configuration keys.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"postgres.url":        "DATABASE_URL",
		"api.jwt_signing_key": "SECRET_KEY",
		"api.port":            "PORT",
		"admin.username":      "ADMIN_USERNAME",
		"admin.password":      "ADMIN_PASSWORD",
		"rate_limit.attempts": "LOGIN_RATE_LIMIT_ATTEMPTS",
		"rate_limit.window":   "LOGIN_RATE_LIMIT_WINDOW",
		"rate_limit.block":    "LOGIN_RATE_LIMIT_BLOCK",
		"public.share_ttl":    "SHARE_LINK_TTL",
		"api.timezone":        "TZ",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("v.BindEnv(%s) -> %w", key, err)
		}
	}

	return nil
}

func (c *AppConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.API, validation.Required),
		validation.Field(&c.Gin, validation.Required),
		validation.Field(&c.Postgres, validation.Required),
		validation.Field(&c.Admin, validation.Required),
		validation.Field(&c.RateLimit, validation.Required),
		validation.Field(&c.Public, validation.Required),
		validation.Field(&c.Live, validation.Required),
	)
}

func (c *APIConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.Environment, validation.Required, validation.In("development", "test", "production")),
		validation.Field(&c.JWTSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.TokenTTL, validation.Required),
		validation.Field(&c.Timezone, validation.Required),
	)
}

// Location resolves Timezone, falling back to UTC when the zone database has
// no such entry.
func (c *APIConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

func (c *GinConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.Mode, validation.Required, validation.In("debug", "release", "test")),
	)
}

func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.Attempts, validation.Required, validation.Min(1)),
		validation.Field(&c.Window, validation.Required),
		validation.Field(&c.Block, validation.Required),
	)
}

func (c *PublicConfig) Validate() error {
	return validation.ValidateStruct(
		c,
		validation.Field(&c.ShareTTL, validation.Required),
		validation.Field(&c.Rate, validation.Required, validation.Min(0.1)),
		validation.Field(&c.Burst, validation.Required, validation.Min(1)),
	)
}

// DSN builds the connection string used when no URL is configured.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, c.SSLMode,
	)
}
