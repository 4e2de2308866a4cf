package cart

import (
	"context"
	"fmt"
)

// Store описывает долговременное хранилище состояния корзины.
type Store interface {
	LoadCart(ctx context.Context, sessionID string) (State, bool, error)
	SaveCart(ctx context.Context, sessionID string, s State) error
}

// Reducer преобразует состояние корзины.
type Reducer func(State) State

// Session применяет операции к корзине сессии и сохраняет результат до возврата.
type Session struct {
	store Store
}

// NewSession создаёт сессию поверх хранилища.
func NewSession(store Store) *Session {
	return &Session{store: store}
}

// Load возвращает сохранённую корзину или пустую корзину по умолчанию.
func (s *Session) Load(ctx context.Context, sessionID string) (State, error) {
	st, ok, err := s.store.LoadCart(ctx, sessionID)
	if err != nil {
		return State{}, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return New(), nil
	}
	return recompute(st), nil
}

// Apply загружает корзину, применяет операцию и сохраняет полное новое состояние.
func (s *Session) Apply(ctx context.Context, sessionID string, fn Reducer) (State, error) {
	st, err := s.Load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}

	next := fn(st)

	if err := s.store.SaveCart(ctx, sessionID, next); err != nil {
		return State{}, fmt.Errorf("save cart: %w", err)
	}

	return next, nil
}
