package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "REVIEWHUB_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	JWT      JWTConfig      `koanf:"jwt"`
	Signup   SignupConfig   `koanf:"signup"`
	SMTP     SMTPConfig     `koanf:"smtp"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type JWTConfig struct {
	Secret string        `koanf:"secret"`
	Issuer string        `koanf:"issuer"`
	TTL    time.Duration `koanf:"ttl"`
}

type SignupConfig struct {
	// CodeTTL bounds how long a confirmation code stays exchangeable.
	CodeTTL time.Duration `koanf:"code_ttl"`
}

type SMTPConfig struct {
	// Empty Host selects the log-only mailer (dev mode).
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	From     string `koanf:"from"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}

	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Path: filepath.Join(home, ".reviewhub", "data.db")},
		JWT: JWTConfig{
			// dev default (change for demo / production)
			Secret: "dev-secret-change-me",
			Issuer: "reviewhub",
			TTL:    24 * time.Hour,
		},
		Signup: SignupConfig{CodeTTL: 24 * time.Hour},
		SMTP:   SMTPConfig{Port: 587, From: "noreply@reviewhub.local"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load builds the configuration in two layers: built-in defaults, then
// REVIEWHUB_* environment variables (REVIEWHUB_SERVER_ADDR -> server.addr,
// REVIEWHUB_SIGNUP_CODE_TTL -> signup.code_ttl, and so on).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

// envTransform maps an environment variable to a koanf path. Sections are
// single words, so only the first underscore becomes a delimiter.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}
