// config - источник загрузки конфигурации фронтенда каталога.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Хранилища токена сессии.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	Directory DirectoryConfig `yaml:"directory"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// HTTPConfig — локальный listener view. По умолчанию только loopback.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8090"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// BackendConfig — REST-бэкенд каталога.
type BackendConfig struct {
	BaseURL   string  `yaml:"base_url"   env:"BACKEND_BASE_URL"   env-default:"http://localhost:5000"`
	UserAgent string  `yaml:"user_agent" env:"BACKEND_USER_AGENT" env-default:"waste-directory"`
	RPS       float64 `yaml:"rps"        env:"BACKEND_RPS"        env-default:"0"`
	Burst     int     `yaml:"burst"      env:"BACKEND_BURST"      env-default:"10"`
}

// SessionConfig — где хранится токен между запусками.
type SessionConfig struct {
	Store    string        `yaml:"store"     env:"SESSION_STORE"     env-default:"file"`
	FilePath string        `yaml:"file_path" env:"SESSION_FILE_PATH"`
	Key      string        `yaml:"key"       env:"SESSION_KEY"       env-default:"waste-directory:token"`
	RedisURL string        `yaml:"redis_url" env:"SESSION_REDIS_URL" env-default:"redis://localhost:6379/0"`
	TTL      time.Duration `yaml:"ttl"       env:"SESSION_TTL"       env-default:"24h"`
}

// Path — путь файла сессии; пустой FilePath — <UserConfigDir>/waste-directory/session.json.
func (s SessionConfig) Path() (string, error) {
	if s.FilePath != "" {
		return s.FilePath, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}

	return filepath.Join(dir, "waste-directory", "session.json"), nil
}

type DirectoryConfig struct {
	PageSize int `yaml:"page_size" env:"DIRECTORY_PAGE_SIZE" env-default:"9"`
}

// TimeoutConfig — таймауты исходящих вызовов, обработки view и restore сессии.
type TimeoutConfig struct {
	Backend time.Duration `yaml:"backend" env:"TIMEOUT_BACKEND" env-default:"10s"`
	Request time.Duration `yaml:"request" env:"TIMEOUT_REQUEST" env-default:"15s"`
	Restore time.Duration `yaml:"restore" env:"TIMEOUT_RESTORE" env-default:"10s"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, cfg.validate()
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend.base_url %q", c.Backend.BaseURL)
	}

	switch c.Session.Store {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("invalid session.store %q: want file, redis or memory", c.Session.Store)
	}

	if c.Directory.PageSize < 1 {
		return fmt.Errorf("invalid directory.page_size %d", c.Directory.PageSize)
	}

	return nil
}
