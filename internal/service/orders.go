package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/validation"
)

// maxAmount соответствует колонкам NUMERIC(12,2).
var maxAmount = model.MustMoney("9999999999.99")

func checkAmount(m model.Money, field string) error {
	if m.IsNegative() {
		return validationError("%s must not be negative", field)
	}
	if m.GreaterThan(maxAmount.Decimal) {
		return validationError("%s must not exceed %s", field, maxAmount)
	}
	return nil
}

// CreateOrder создаёт заказ из снимка корзины. Цены копируются из запроса как есть,
// если не включена опция RecomputeTotals.
func (s *Service) CreateOrder(ctx context.Context, req *model.Requester, in model.OrderRequest) (*model.Order, error) {
	if err := authorize(req); err != nil {
		return nil, err
	}

	if err := s.validateOrderRequest(in); err != nil {
		return nil, err
	}

	items := make([]model.CartItem, len(in.OrderItems))
	copy(items, in.OrderItems)

	o := &model.Order{
		ID:              uuid.New(),
		UserID:          req.ID,
		OrderItems:      items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      in.ItemsPrice,
		ShippingPrice:   in.ShippingPrice,
		TaxPrice:        in.TaxPrice,
		TotalPrice:      in.TotalPrice,
		CreatedAt:       s.now(),
	}

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return o, nil
}

func (s *Service) validateOrderRequest(in model.OrderRequest) error {
	if len(in.OrderItems) == 0 {
		return validationError("no order items")
	}

	for _, it := range in.OrderItems {
		if strings.TrimSpace(it.ID) == "" {
			return validationError("order item without product id")
		}
		if it.Qty < 1 {
			return validationError("quantity of %s must be positive", it.ID)
		}
		if err := checkAmount(it.Price, "price of "+it.ID); err != nil {
			return err
		}
	}

	if msg := validation.ShippingAddress(in.ShippingAddress); msg != "" {
		return validationError("%s", msg)
	}

	if strings.TrimSpace(in.PaymentMethod) == "" {
		return validationError("payment method is required")
	}

	for _, p := range []struct {
		name  string
		value model.Money
	}{
		{"itemsPrice", in.ItemsPrice},
		{"shippingPrice", in.ShippingPrice},
		{"taxPrice", in.TaxPrice},
		{"totalPrice", in.TotalPrice},
	} {
		if err := checkAmount(p.value, p.name); err != nil {
			return err
		}
	}

	if s.opts.RecomputeTotals {
		want := cart.Price(in.OrderItems)
		if !want.ItemsPrice.Equal(in.ItemsPrice) ||
			!want.ShippingPrice.Equal(in.ShippingPrice) ||
			!want.TaxPrice.Equal(in.TaxPrice) ||
			!want.TotalPrice.Equal(in.TotalPrice) {
			return validationError("order totals do not match item prices: expected total %s", want.TotalPrice)
		}
	}

	return nil
}

// GetOrder возвращает заказ владельцу или администратору.
func (s *Service) GetOrder(ctx context.Context, req *model.Requester, id string) (*model.Order, error) {
	if err := authorize(req); err != nil {
		return nil, err
	}

	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, orderError(err, id)
	}

	if o.UserID != req.ID {
		if err := s.requireAdmin(ctx, req); err != nil {
			if errors.Is(err, ErrForbidden) {
				return nil, fmt.Errorf("%w: order %s belongs to another user", ErrForbidden, id)
			}
			return nil, err
		}
	}

	return o, nil
}

// ListMine возвращает заказы текущего пользователя, начиная с новых.
func (s *Service) ListMine(ctx context.Context, req *model.Requester) ([]model.Order, error) {
	if err := authorize(req); err != nil {
		return nil, err
	}

	orders, err := s.repo.GetOrdersByUser(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListAll возвращает все заказы. Доступно только администратору.
func (s *Service) ListAll(ctx context.Context, req *model.Requester) ([]model.Order, error) {
	if err := s.requireAdmin(ctx, req); err != nil {
		return nil, err
	}

	orders, err := s.repo.GetAllOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return orders, nil
}

// MarkPaid отмечает заказ оплаченным. Повторный вызов перезаписывает paidAt.
// Без StrictPayment оплату может отметить любой аутентифицированный пользователь.
func (s *Service) MarkPaid(ctx context.Context, req *model.Requester, id string) (*model.Order, error) {
	if err := authorize(req); err != nil {
		return nil, err
	}

	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.UpdateOrder(ctx, orderID, model.OrderEventPaid, func(o *model.Order) error {
		if s.opts.StrictPayment && o.UserID != req.ID && !req.IsAdmin {
			return fmt.Errorf("%w: order %s belongs to another user", ErrForbidden, id)
		}
		paidAt := s.now()
		o.IsPaid = true
		o.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		return nil, orderError(err, id)
	}

	return o, nil
}

// MarkDelivered отмечает заказ доставленным. Доступно только администратору;
// оплата заказа не проверяется.
func (s *Service) MarkDelivered(ctx context.Context, req *model.Requester, id string) (*model.Order, error) {
	if err := s.requireAdmin(ctx, req); err != nil {
		return nil, err
	}

	orderID, err := parseOrderID(id)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.UpdateOrder(ctx, orderID, model.OrderEventDelivered, func(o *model.Order) error {
		deliveredAt := s.now()
		o.IsDelivered = true
		o.DeliveredAt = &deliveredAt
		return nil
	})
	if err != nil {
		return nil, orderError(err, id)
	}

	return o, nil
}

func parseOrderID(id string) (uuid.UUID, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	return orderID, nil
}

func orderError(err error, id string) error {
	if errors.Is(err, repository.ErrOrderNotFound) {
		return fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if errors.Is(err, ErrForbidden) {
		return err
	}
	return fmt.Errorf("order %s: %w", id, err)
}
