// Package config loads the server configuration from the environment.
//
// Every key can be set as an environment variable with the same name in upper
// case (SECRET_KEY, DB_PATH, ...), optionally through a .env file that main
// loads with godotenv before calling Load. A config file (YAML, TOML, JSON)
// passed to Load is read first; environment variables override it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     int    `mapstructure:"port"`
	DBPath   string `mapstructure:"db_path"`
	LogLevel string `mapstructure:"log_level"`

	// SecretKey signs access tokens. It has no default: a server that
	// silently signed with a well-known key would accept forged tokens.
	SecretKey                string `mapstructure:"secret_key"`
	JWTAlgorithm             string `mapstructure:"jwt_algorithm"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes"`

	Argon2MemoryKiB   uint32 `mapstructure:"argon2_memory_kib"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`

	// SeedFile overrides the embedded trick catalog. Empty means embedded.
	SeedFile string `mapstructure:"seed_file"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

var keys = []string{
	"port",
	"db_path",
	"log_level",
	"secret_key",
	"jwt_algorithm",
	"access_token_expire_minutes",
	"argon2_memory_kib",
	"argon2_iterations",
	"argon2_parallelism",
	"seed_file",
	"cors_allowed_origins",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "data/keep_bouncing_back.db")
	v.SetDefault("log_level", "info")

	v.SetDefault("jwt_algorithm", "HS256")
	v.SetDefault("access_token_expire_minutes", 60)

	v.SetDefault("argon2_memory_kib", 64*1024)
	v.SetDefault("argon2_iterations", 3)
	v.SetDefault("argon2_parallelism", 2)

	v.SetDefault("seed_file", "")
	v.SetDefault("cors_allowed_origins", []string{"*"})
}

// Load reads configFile (if not empty) and the environment, then validates
// the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("config: binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if len(c.SecretKey) < 16 {
		errs = append(errs, errors.New("SECRET_KEY is required and must be at least 16 characters"))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM must be HS256, HS384 or HS512, got %q", c.JWTAlgorithm))
	}
	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenExpireMinutes))
	}
	if c.Argon2MemoryKiB < 8*1024 {
		errs = append(errs, fmt.Errorf("ARGON2_MEMORY_KIB must be at least 8192, got %d", c.Argon2MemoryKiB))
	}
	if c.Argon2Iterations == 0 {
		errs = append(errs, errors.New("ARGON2_ITERATIONS must be positive"))
	}
	if c.Argon2Parallelism == 0 {
		errs = append(errs, errors.New("ARGON2_PARALLELISM must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q is not a valid level", c.LogLevel)
	}
	return level, nil
}
