package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Тесты хранилищ токена:
//   - Memory и File — unit;
//   - Redis — интеграционный, поднимает redis:7-alpine через testcontainers-go.
//
// Запуск интеграционных:
//   GO_TEST_INTEGRATION=1 go test ./internal/session/tokenstore -v -race -count=1

func TestMemory_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	tok, err := m.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)

	require.NoError(t, m.Save(ctx, "t1"))
	tok, _ = m.Load(ctx)
	require.Equal(t, "t1", tok)

	require.NoError(t, m.Clear(ctx))
	tok, _ = m.Load(ctx)
	require.Empty(t, tok)
}

func TestFile_RoundTrip_AndPermissions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	f, err := NewFile(path, "")
	require.NoError(t, err)

	tok, err := f.Load(ctx)
	require.NoError(t, err, "missing file means no token")
	require.Empty(t, tok)

	require.NoError(t, f.Save(ctx, "tok-abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Новый экземпляр читает то, что записал прежний (переживает рестарт процесса).
	f2, err := NewFile(path, DefaultKey)
	require.NoError(t, err)
	tok, err = f2.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-abc", tok)

	require.NoError(t, f2.Clear(ctx))
	tok, err = f.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)

	// Повторный Clear — no-op.
	require.NoError(t, f.Clear(ctx))
}

func TestFile_KeepsForeignKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"other":"keep-me"}`), 0o600))

	f, err := NewFile(path, "mine")
	require.NoError(t, err)
	require.NoError(t, f.Save(ctx, "t"))
	require.NoError(t, f.Clear(ctx))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(raw, &m))
	require.Equal(t, map[string]string{"other": "keep-me"}, m)
}

func TestFile_CorruptedFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o600))

	f, err := NewFile(path, "")
	require.NoError(t, err)

	_, err = f.Load(ctx)
	require.Error(t, err)

	require.NoError(t, f.Clear(ctx))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o600))
	require.NoError(t, f.Save(ctx, "fresh"))
	tok, err := f.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "fresh", tok)
}

func TestFile_CanceledContext(t *testing.T) {
	t.Parallel()

	f, err := NewFile(filepath.Join(t.TempDir(), "session.json"), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, f.Save(ctx, "t"), context.Canceled)
}

// startRedis — поднимает Redis через testcontainers-go и возвращает URL и функцию очистки.
// Если переменная окружения GO_TEST_INTEGRATION не установлена — тест пропускается.
func startRedis(t *testing.T) (string, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port()), func() {
		_ = c.Terminate(context.Background())
	}
}

func TestIntegration_Redis_RoundTrip(t *testing.T) {
	url, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	r, err := NewRedis(ctx, url, "", time.Hour)
	require.NoError(t, err)
	defer r.Close()

	tok, err := r.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)

	require.NoError(t, r.Save(ctx, "tok-redis"))
	tok, err = r.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok-redis", tok)

	ttl, err := r.rdb.TTL(ctx, DefaultKey).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, r.Clear(ctx))
	tok, err = r.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestNewRedis_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedis(context.Background(), "not-a-url://", "", 0)
	require.Error(t, err)
}
