package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/model"
)

// MemoryStore хранит состояние сессии в памяти процесса.
// Используется, когда адрес Redis не задан.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// LoadCart возвращает сохранённую корзину сессии.
func (s *MemoryStore) LoadCart(ctx context.Context, sessionID string) (cart.State, bool, error) {
	var st cart.State
	ok, err := s.get(storageKey(sessionID, cartKey), &st)
	return st, ok, err
}

// SaveCart сохраняет корзину сессии.
func (s *MemoryStore) SaveCart(ctx context.Context, sessionID string, st cart.State) error {
	return s.set(storageKey(sessionID, cartKey), st)
}

// LoadUserInfo возвращает сохранённые сведения о пользователе.
func (s *MemoryStore) LoadUserInfo(ctx context.Context, sessionID string) (model.UserSummary, bool, error) {
	var u model.UserSummary
	ok, err := s.get(storageKey(sessionID, userInfoKey), &u)
	return u, ok, err
}

// SaveUserInfo сохраняет сведения о пользователе.
func (s *MemoryStore) SaveUserInfo(ctx context.Context, sessionID string, u model.UserSummary) error {
	return s.set(storageKey(sessionID, userInfoKey), u)
}

// DeleteUserInfo удаляет сведения о пользователе.
func (s *MemoryStore) DeleteUserInfo(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, storageKey(sessionID, userInfoKey))
	return nil
}

// Close ничего не делает.
func (s *MemoryStore) Close() error {
	return nil
}

// Значения хранятся сериализованными, чтобы вызывающий не делил срезы с хранилищем.
func (s *MemoryStore) get(key string, dst any) (bool, error) {
	s.mu.RLock()
	data, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) set(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	s.data[key] = data
	s.mu.Unlock()
	return nil
}
