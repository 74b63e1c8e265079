// Package config loads primetrade settings from env files, an optional YAML file and the environment.
//
// Precedence, highest first: environment variables, primetrade.yaml, defaults.
// PORT is the one exception: it only applies when neither ADDR nor the file sets server.addr.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Env             string        `mapstructure:"env"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTSecretFile string        `mapstructure:"jwt_secret_file"`
	Issuer        string        `mapstructure:"issuer"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	CookieName    string        `mapstructure:"cookie_name"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
	SessionKey    string        `mapstructure:"session_key"`
}

// RedisConfig points at the token revocation store. An empty Addr keeps revocations in memory.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RateLimitConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	AuthRPS    float64 `mapstructure:"auth_rps"`
	AuthBurst  int     `mapstructure:"auth_burst"`
	TrustProxy bool    `mapstructure:"trust_proxy"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// DSN returns the lib/pq connection string. URL wins when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Load reads the configuration and validates it for serving.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Read loads .env.local and .env, an optional primetrade.yaml and the environment
// without validating. Tools that only need the database use it directly.
func Read() (*Config, error) {
	// Existing process variables win over env files.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigName("primetrade")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/primetrade")

	setDefaults(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	applyPortFallback(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := resolveSecret(&cfg.Auth); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "primetrade")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_secret_file", "jwt.secret")
	v.SetDefault("auth.issuer", "primetrade")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.cookie_name", "auth-token")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.session_key", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "primetrade:")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.auth_rps", 1.0)
	v.SetDefault("rate_limit.auth_burst", 10)
	v.SetDefault("rate_limit.trust_proxy", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// envBindings maps config keys to the environment variables that override them,
// first match wins. The PG* names follow libpq.
var envBindings = map[string][]string{
	"server.addr":            {"ADDR"},
	"server.env":             {"APP_ENV", "NODE_ENV"},
	"database.url":           {"DATABASE_URL"},
	"database.host":          {"PGHOST"},
	"database.port":          {"PGPORT"},
	"database.user":          {"PGUSER"},
	"database.password":      {"PGPASSWORD"},
	"database.name":          {"PGDATABASE"},
	"database.sslmode":       {"PGSSLMODE"},
	"auth.jwt_secret":        {"JWT_SECRET"},
	"auth.session_key":       {"SESSION_KEY"},
	"redis.addr":             {"REDIS_ADDR"},
	"redis.password":         {"REDIS_PASSWORD"},
	"rate_limit.trust_proxy": {"TRUST_PROXY"},
	"log.level":              {"LOG_LEVEL"},
	"log.format":             {"LOG_FORMAT"},
}

func bindEnvVars(v *viper.Viper) error {
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// applyPortFallback maps a bare PORT to server.addr. ADDR and an addr from the
// config file both take precedence.
func applyPortFallback(v *viper.Viper) {
	port := os.Getenv("PORT")
	if port == "" || os.Getenv("ADDR") != "" || v.InConfig("server.addr") {
		return
	}
	v.Set("server.addr", ":"+port)
}

// resolveSecret falls back to the secret file when no inline secret is configured.
func resolveSecret(a *AuthConfig) error {
	if a.JWTSecret != "" || a.JWTSecretFile == "" {
		return nil
	}
	data, err := os.ReadFile(a.JWTSecretFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read jwt secret file: %w", err)
	}
	a.JWTSecret = strings.TrimSpace(string(data))
	return nil
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET not set and no jwt secret file found")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.CookieName == "" {
		return errors.New("auth.cookie_name must not be empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	if c.RateLimit.Enabled && (c.RateLimit.AuthRPS <= 0 || c.RateLimit.AuthBurst <= 0) {
		return errors.New("rate_limit.auth_rps and rate_limit.auth_burst must be positive")
	}
	return nil
}
