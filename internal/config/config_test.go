package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeFile — утилита записи временного файла конфигурации.
func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

// chdir — смена текущего рабочего каталога с авто-возвратом.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// Полный корректный YAML под текущую структуру config.go.
const sampleYAML = `
env: "prod"
http:
  host: "0.0.0.0"
  port: "8080"
backend:
  base_url: "https://directory.example.org"
  user_agent: "waste-directory/1.0"
  rps: 5
  burst: 3
session:
  store: "redis"
  key: "wd:token"
  redis_url: "redis://cache:6379/1"
  ttl: "2h"
directory:
  page_size: 12
timeouts:
  backend: "3s"
  request: "4s"
  restore: "2s"
`

const minimalYAML = `
env: "stage"
`

const brokenYAML = `
env: [unclosed
`

func TestHTTPConfig_Addr(t *testing.T) {
	t.Parallel()
	cfg := HTTPConfig{Host: "127.0.0.1", Port: "8090"}
	require.Equal(t, "127.0.0.1:8090", cfg.Addr())
}

func TestSessionConfig_Path(t *testing.T) {
	t.Parallel()

	p, err := SessionConfig{FilePath: "/tmp/wd/session.json"}.Path()
	require.NoError(t, err)
	require.Equal(t, "/tmp/wd/session.json", p)
}

func TestLoad_WithExplicitPath_OK(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())

	require.Equal(t, "https://directory.example.org", cfg.Backend.BaseURL)
	require.Equal(t, "waste-directory/1.0", cfg.Backend.UserAgent)
	require.Equal(t, 5.0, cfg.Backend.RPS)
	require.Equal(t, 3, cfg.Backend.Burst)

	require.Equal(t, StoreRedis, cfg.Session.Store)
	require.Equal(t, "wd:token", cfg.Session.Key)
	require.Equal(t, "redis://cache:6379/1", cfg.Session.RedisURL)
	require.Equal(t, 2*time.Hour, cfg.Session.TTL)

	require.Equal(t, 12, cfg.Directory.PageSize)

	require.Equal(t, 3*time.Second, cfg.Timeouts.Backend)
	require.Equal(t, 4*time.Second, cfg.Timeouts.Request)
	require.Equal(t, 2*time.Second, cfg.Timeouts.Restore)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "config.yaml", minimalYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.HTTP.Host)
	require.Equal(t, "http://localhost:5000", cfg.Backend.BaseURL)
	require.Equal(t, StoreFile, cfg.Session.Store)
	require.Equal(t, "waste-directory:token", cfg.Session.Key)
	require.Equal(t, 9, cfg.Directory.PageSize)
	require.Equal(t, 10*time.Second, cfg.Timeouts.Backend)
}

func TestLoad_WithExplicitPath_BrokenYAML(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "broken.yaml", brokenYAML)

	_, err := Load(cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"store":     "session: { store: \"sqlite\" }",
		"base_url":  "backend: { base_url: \"localhost:5000\" }",
		"page_size": "directory: { page_size: -1 }",
	}

	for name, body := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeFile(t, t.TempDir(), "config.yaml", body))
			require.Error(t, err)
			require.Contains(t, err.Error(), name)
		})
	}
}

func TestLoad_WithCONFIG_PATH_OK(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "from_env_path.yaml", minimalYAML)
	t.Setenv("CONFIG_PATH", cfgPath)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "stage", cfg.Env)
}

func TestLoad_WithLocalYAML_OK(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".", "local.yaml", sampleYAML)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "8080", cfg.HTTP.Port)
}

// CONFIG_PATH важнее local.yaml.
func TestLoad_Priority_ENVWinsOverLocal(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeFile(t, ".", "local.yaml", `
env: "local"
http: { host: "127.0.0.1", port: "7777" }
`)

	envPath := writeFile(t, dir, "from_env.yaml", minimalYAML)
	t.Setenv("CONFIG_PATH", envPath)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "stage", cfg.Env)
}

// Явный путь важнее CONFIG_PATH и local.yaml.
func TestLoad_Priority_ExplicitWinsOverEnvAndLocal(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	explicit := writeFile(t, dir, "explicit.yaml", `
env: "prod"
http: { host: "0.0.0.0", port: "8080" }
`)
	badFromEnv := writeFile(t, dir, "bad.yaml", brokenYAML)
	t.Setenv("CONFIG_PATH", badFromEnv)
	writeFile(t, ".", "local.yaml", `
env: "local"
http: { host: "127.0.0.1", port: "9999" }
`)

	cfg, err := Load(explicit)
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "8080", cfg.HTTP.Port)
}

func TestLoad_EnvOverlay_OverridesValuesFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	t.Setenv("HTTP_PORT", "18080")
	t.Setenv("BACKEND_BASE_URL", "http://10.0.0.5:5000")
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("TIMEOUT_BACKEND", "5s")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "18080", cfg.HTTP.Port)
	require.Equal(t, "http://10.0.0.5:5000", cfg.Backend.BaseURL)
	require.Equal(t, StoreMemory, cfg.Session.Store)
	require.Equal(t, 5*time.Second, cfg.Timeouts.Backend)
}

// «Только ENV» без файлов.
func TestLoad_EnvOnly_OK(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")

	t.Setenv("ENV", "dev")
	t.Setenv("HTTP_PORT", "50090")
	t.Setenv("SESSION_FILE_PATH", filepath.Join(dir, "s.json"))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "50090", cfg.HTTP.Port)

	p, err := cfg.Session.Path()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "s.json"), p)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}
