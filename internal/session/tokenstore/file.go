package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File хранит токены в JSON-объекте {ключ: токен}. Запись атомарная:
// временный файл в том же каталоге + rename, права 0600.
// Другие ключи в файле сохраняются.
type File struct {
	path string
	key  string
	mu   sync.Mutex
}

// NewFile создаёт хранилище. key == "" — DefaultKey.
func NewFile(path, key string) (*File, error) {
	const op = "tokenstore.NewFile"

	if path == "" {
		return nil, fmt.Errorf("%s: empty path", op)
	}
	if key == "" {
		key = DefaultKey
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &File{path: path, key: key}, nil
}

func (f *File) Load(ctx context.Context) (string, error) {
	const op = "tokenstore.File.Load"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.read()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return m[f.key], nil
}

func (f *File) Save(ctx context.Context, token string) error {
	const op = "tokenstore.File.Save"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.read()
	if err != nil {
		// Битый файл перезаписываем: токен в нём всё равно не прочитать.
		m = map[string]string{}
	}
	m[f.key] = token

	if err := f.write(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *File) Clear(ctx context.Context) error {
	const op = "tokenstore.File.Clear"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	m, err := f.read()
	if err != nil {
		// Нечитаемый файл токена не содержит — удаляем целиком.
		if rmErr := os.Remove(f.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, rmErr)
		}
		return nil
	}

	if _, ok := m[f.key]; !ok {
		return nil
	}
	delete(m, f.key)

	if err := f.write(m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *File) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	m := map[string]string{}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}

	return m, nil
}

func (f *File) write(m map[string]string) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return nil
}
