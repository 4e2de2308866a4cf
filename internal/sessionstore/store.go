// Package sessionstore хранит клиентское состояние сессии: корзину и сведения о пользователе.
package sessionstore

import (
	"context"
	"fmt"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/model"
)

const (
	cartKey     = "cart"
	userInfoKey = "userInfo"
)

// Store описывает хранилище состояния сессии.
type Store interface {
	cart.Store
	LoadUserInfo(ctx context.Context, sessionID string) (model.UserSummary, bool, error)
	SaveUserInfo(ctx context.Context, sessionID string, u model.UserSummary) error
	DeleteUserInfo(ctx context.Context, sessionID string) error
	Close() error
}

// SessionID возвращает идентификатор сессии для пользователя.
func SessionID(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

func storageKey(sessionID, name string) string {
	return fmt.Sprintf("session:%s:%s", sessionID, name)
}
