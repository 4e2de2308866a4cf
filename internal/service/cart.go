package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/catalog"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/sessionstore"
)

// GetCart возвращает корзину текущего пользователя.
func (s *Service) GetCart(ctx context.Context, req *model.Requester) (cart.State, error) {
	if err := authorize(req); err != nil {
		return cart.State{}, err
	}
	return s.carts.Load(ctx, sessionstore.SessionID(req.ID))
}

// AddCartItem добавляет товар в корзину или заменяет существующую позицию.
// Если подключён каталог, снимок товара обновляется из него.
func (s *Service) AddCartItem(ctx context.Context, req *model.Requester, item model.CartItem) (cart.State, error) {
	if err := authorize(req); err != nil {
		return cart.State{}, err
	}
	if strings.TrimSpace(item.ID) == "" {
		return cart.State{}, validationError("product id is required")
	}

	if s.catalog != nil {
		p, err := s.catalog.GetProduct(ctx, item.ID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return cart.State{}, fmt.Errorf("%w: product %s", ErrNotFound, item.ID)
			}
			return cart.State{}, fmt.Errorf("fetch product: %w", err)
		}
		item = p.CartItem(item.Qty)
	}

	if item.Qty < 1 {
		return cart.State{}, validationError("quantity must be positive")
	}
	if item.Qty > item.CountInStock {
		return cart.State{}, validationError("only %d of %s in stock", item.CountInStock, item.ID)
	}
	if err := checkAmount(item.Price, "price"); err != nil {
		return cart.State{}, err
	}

	return s.carts.Apply(ctx, sessionstore.SessionID(req.ID), func(st cart.State) cart.State {
		return cart.AddItem(st, item)
	})
}

// RemoveCartItem удаляет позицию из корзины.
func (s *Service) RemoveCartItem(ctx context.Context, req *model.Requester, id string) (cart.State, error) {
	if err := authorize(req); err != nil {
		return cart.State{}, err
	}
	return s.carts.Apply(ctx, sessionstore.SessionID(req.ID), func(st cart.State) cart.State {
		return cart.RemoveItem(st, id)
	})
}

// SaveShippingAddress сохраняет адрес доставки в корзине.
func (s *Service) SaveShippingAddress(ctx context.Context, req *model.Requester, addr model.ShippingAddress) (cart.State, error) {
	if err := authorize(req); err != nil {
		return cart.State{}, err
	}
	return s.carts.Apply(ctx, sessionstore.SessionID(req.ID), func(st cart.State) cart.State {
		return cart.SetShippingAddress(st, addr)
	})
}

// SavePaymentMethod сохраняет способ оплаты в корзине.
func (s *Service) SavePaymentMethod(ctx context.Context, req *model.Requester, method string) (cart.State, error) {
	if err := authorize(req); err != nil {
		return cart.State{}, err
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return cart.State{}, validationError("payment method is required")
	}
	return s.carts.Apply(ctx, sessionstore.SessionID(req.ID), func(st cart.State) cart.State {
		return cart.SetPaymentMethod(st, method)
	})
}

// ClearCart очищает список товаров корзины.
func (s *Service) ClearCart(ctx context.Context, req *model.Requester) (cart.State, error) {
	if err := authorize(req); err != nil {
		return cart.State{}, err
	}
	return s.carts.Apply(ctx, sessionstore.SessionID(req.ID), cart.Clear)
}

// Checkout оформляет заказ из текущей корзины и очищает её после успешного создания заказа.
func (s *Service) Checkout(ctx context.Context, req *model.Requester) (*model.Order, error) {
	if err := authorize(req); err != nil {
		return nil, err
	}

	sessionID := sessionstore.SessionID(req.ID)

	st, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	o, err := s.CreateOrder(ctx, req, st.OrderRequest())
	if err != nil {
		return nil, err
	}

	// Заказ уже сохранён: ошибка очистки корзины только логируется.
	if _, err := s.carts.Apply(ctx, sessionID, cart.Clear); err != nil {
		s.logger.Error("clear cart after checkout", zap.Error(err), zap.Int64("userID", req.ID), zap.Stringer("orderID", o.ID))
	}

	return o, nil
}
