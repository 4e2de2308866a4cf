package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/model"
)

// DefaultTTL задаёт время жизни ключей сессии; продлевается при каждой записи.
const DefaultTTL = 30 * 24 * time.Hour

// RedisStore хранит состояние сессии в Redis в виде JSON.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore подключается к Redis по адресу и проверяет соединение.
func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient создаёт хранилище поверх готового клиента.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    DefaultTTL,
	}
}

// LoadCart возвращает сохранённую корзину сессии.
func (s *RedisStore) LoadCart(ctx context.Context, sessionID string) (cart.State, bool, error) {
	var st cart.State
	ok, err := s.get(ctx, storageKey(sessionID, cartKey), &st)
	return st, ok, err
}

// SaveCart сохраняет корзину сессии целиком.
func (s *RedisStore) SaveCart(ctx context.Context, sessionID string, st cart.State) error {
	return s.set(ctx, storageKey(sessionID, cartKey), st)
}

// LoadUserInfo возвращает сохранённые сведения о пользователе.
func (s *RedisStore) LoadUserInfo(ctx context.Context, sessionID string) (model.UserSummary, bool, error) {
	var u model.UserSummary
	ok, err := s.get(ctx, storageKey(sessionID, userInfoKey), &u)
	return u, ok, err
}

// SaveUserInfo сохраняет сведения о пользователе.
func (s *RedisStore) SaveUserInfo(ctx context.Context, sessionID string, u model.UserSummary) error {
	return s.set(ctx, storageKey(sessionID, userInfoKey), u)
}

// DeleteUserInfo удаляет сведения о пользователе при выходе.
func (s *RedisStore) DeleteUserInfo(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, storageKey(sessionID, userInfoKey)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
