package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/storefront/internal/model"
)

const orderColumns = `o.id, o.user_id, o.order_items, o.shipping_address, o.payment_method,
	o.items_price, o.shipping_price, o.tax_price, o.total_price,
	o.is_paid, o.paid_at, o.is_delivered, o.delivered_at, o.created_at, o.updated_at`

// orderEventPayload описывает тело события, отправляемого во внешнюю шину.
type orderEventPayload struct {
	OrderID     uuid.UUID            `json:"orderId"`
	UserID      int64                `json:"userId"`
	Type        model.OrderEventType `json:"type"`
	TotalPrice  model.Money          `json:"totalPrice"`
	IsPaid      bool                 `json:"isPaid"`
	PaidAt      *time.Time           `json:"paidAt,omitempty"`
	IsDelivered bool                 `json:"isDelivered"`
	DeliveredAt *time.Time           `json:"deliveredAt,omitempty"`
	OccurredAt  time.Time            `json:"occurredAt"`
}

// CreateOrder сохраняет новый заказ вместе с событием order.created в одной транзакции.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	items, err := json.Marshal(o.OrderItems)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (id, user_id, order_items, shipping_address, payment_method,
				items_price, shipping_price, tax_price, total_price,
				is_paid, paid_at, is_delivered, delivered_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
			o.ID, o.UserID, items, address, o.PaymentMethod,
			o.ItemsPrice, o.ShippingPrice, o.TaxPrice, o.TotalPrice,
			o.IsPaid, o.PaidAt, o.IsDelivered, o.DeliveredAt, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if err := insertEvent(ctx, tx, o, model.OrderEventCreated); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		o.UpdatedAt = o.CreatedAt
		return nil
	})
}

// GetOrder возвращает заказ вместе с краткими сведениями о владельце.
func (r *PostgresRepository) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+`, u.name, u.email, u.is_admin
		 FROM orders o JOIN users u ON u.id = o.user_id
		 WHERE o.id = $1`,
		id,
	)

	o, err := scanOrderWithUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrdersByUser возвращает заказы пользователя, начиная с новых.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`, u.name, u.email, u.is_admin
		 FROM orders o JOIN users u ON u.id = o.user_id
		 WHERE o.user_id = $1
		 ORDER BY o.created_at DESC, o.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return collectOrders(rows)
}

// GetAllOrders возвращает все заказы с краткими сведениями о владельцах, начиная с новых.
func (r *PostgresRepository) GetAllOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`, u.name, u.email, u.is_admin
		 FROM orders o JOIN users u ON u.id = o.user_id
		 ORDER BY o.created_at DESC, o.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return collectOrders(rows)
}

// UpdateOrder выполняет read-modify-write заказа под блокировкой строки.
// Параллельные переходы одного заказа сериализуются, разные заказы не блокируют друг друга.
// Событие eventType записывается в outbox в той же транзакции.
func (r *PostgresRepository) UpdateOrder(
	ctx context.Context,
	id uuid.UUID,
	eventType model.OrderEventType,
	mutate func(o *model.Order) error,
) (*model.Order, error) {
	var updated *model.Order

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// Блокируем строку заказа для сериализации оплаты и доставки.
		row := tx.QueryRow(ctx,
			`SELECT `+orderColumns+`, u.name, u.email, u.is_admin
			 FROM orders o JOIN users u ON u.id = o.user_id
			 WHERE o.id = $1
			 FOR UPDATE OF o`,
			id,
		)
		o, err := scanOrderWithUser(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order for update: %w", err)
		}

		if err := mutate(o); err != nil {
			return err
		}

		err = tx.QueryRow(ctx,
			`UPDATE orders
			 SET is_paid = $2, paid_at = $3, is_delivered = $4, delivered_at = $5, updated_at = NOW()
			 WHERE id = $1
			 RETURNING updated_at`,
			o.ID, o.IsPaid, o.PaidAt, o.IsDelivered, o.DeliveredAt,
		).Scan(&o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if err := insertEvent(ctx, tx, o, eventType); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// GetUnpublishedEvents возвращает события outbox, ещё не отправленные в шину.
func (r *PostgresRepository) GetUnpublishedEvents(ctx context.Context, limit int) ([]model.OrderEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, event_type, payload, created_at
		 FROM order_events
		 WHERE published_at IS NULL
		 ORDER BY id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select order events: %w", err)
	}
	defer rows.Close()

	var res []model.OrderEvent
	for rows.Next() {
		var (
			e         model.OrderEvent
			eventType string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &eventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order event: %w", err)
		}
		e.Type = model.OrderEventType(eventType)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkEventPublished помечает событие outbox как отправленное.
func (r *PostgresRepository) MarkEventPublished(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE order_events SET published_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, o *model.Order, eventType model.OrderEventType) error {
	payload, err := json.Marshal(orderEventPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Type:        eventType,
		TotalPrice:  o.TotalPrice,
		IsPaid:      o.IsPaid,
		PaidAt:      o.PaidAt,
		IsDelivered: o.IsDelivered,
		DeliveredAt: o.DeliveredAt,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO order_events (order_id, event_type, payload) VALUES ($1, $2, $3)`,
		o.ID, string(eventType), payload,
	)
	if err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrderWithUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func scanOrderWithUser(row pgx.Row) (*model.Order, error) {
	var (
		o       model.Order
		items   []byte
		address []byte
		user    model.UserSummary
	)

	err := row.Scan(
		&o.ID, &o.UserID, &items, &address, &o.PaymentMethod,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
		&user.Name, &user.Email, &user.IsAdmin,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.OrderItems); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}

	user.ID = o.UserID
	o.User = &user

	return &o, nil
}
