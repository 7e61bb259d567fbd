package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv makes sure values from the developer's shell don't leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range keys {
		// Setenv first so the original value is restored after the test.
		t.Setenv(strings.ToUpper(key), "")
		os.Unsetenv(strings.ToUpper(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_KEY", "0123456789abcdef0123")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/keep_bouncing_back.db", cfg.DBPath)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 60*time.Minute, cfg.TokenTTL())
	assert.Equal(t, uint32(65536), cfg.Argon2MemoryKiB)
	assert.Equal(t, uint32(3), cfg.Argon2Iterations)
	assert.Equal(t, uint8(2), cfg.Argon2Parallelism)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.SeedFile)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SECRET_KEY", "0123456789abcdef0123")
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/kbb.db")
	t.Setenv("JWT_ALGORITHM", "HS512")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "15")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/tmp/kbb.db", cfg.DBPath)
	assert.Equal(t, "HS512", cfg.JWTAlgorithm)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	level, _ := cfg.SlogLevel()
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("secret_key: from-file-0123456789\nport: 7070\n"), 0o600))

	t.Setenv("PORT", "6060")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file-0123456789", cfg.SecretKey)
	assert.Equal(t, 6060, cfg.Port, "environment overrides the file")
}

func TestLoad_MissingSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:                     8080,
			DBPath:                   ":memory:",
			LogLevel:                 "info",
			SecretKey:                "0123456789abcdef",
			JWTAlgorithm:             "HS256",
			AccessTokenExpireMinutes: 60,
			Argon2MemoryKiB:          65536,
			Argon2Iterations:         3,
			Argon2Parallelism:        2,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"short secret", func(c *Config) { c.SecretKey = "short" }, "SECRET_KEY"},
		{"bad algorithm", func(c *Config) { c.JWTAlgorithm = "RS256" }, "JWT_ALGORITHM"},
		{"zero ttl", func(c *Config) { c.AccessTokenExpireMinutes = 0 }, "ACCESS_TOKEN_EXPIRE_MINUTES"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "DB_PATH"},
		{"weak argon2 memory", func(c *Config) { c.Argon2MemoryKiB = 1024 }, "ARGON2_MEMORY_KIB"},
		{"zero iterations", func(c *Config) { c.Argon2Iterations = 0 }, "ARGON2_ITERATIONS"},
		{"zero parallelism", func(c *Config) { c.Argon2Parallelism = 0 }, "ARGON2_PARALLELISM"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
