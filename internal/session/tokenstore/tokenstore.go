// tokenstore — реализации session.TokenStore: файл, Redis, память.
//
// Все хранилища держат один токен под фиксированным ключом; Load без токена
// возвращает "" и nil.
package tokenstore

import (
	"context"
	"sync"
)

// DefaultKey — ключ токена по умолчанию.
const DefaultKey = "waste-directory:token"

// Memory — хранилище в памяти процесса (тесты и режим без персистентности).
type Memory struct {
	mu    sync.Mutex
	token string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) Save(_ context.Context, token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
