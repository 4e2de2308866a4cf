// Package model содержит доменные сущности интернет-магазина.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User представляет зарегистрированного покупателя или администратора.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	IsAdmin      bool
	CreatedAt    time.Time
}

// Summary возвращает краткие сведения о пользователе без хэша пароля.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	}
}

// UserSummary хранится в клиентской сессии под ключом userInfo и встраивается в заказы.
type UserSummary struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

// UserUpdate содержит изменяемые поля учётной записи. Пустые строки и nil
// оставляют текущее значение.
type UserUpdate struct {
	Name     string
	Email    string
	Password string
	IsAdmin  *bool
}

// Requester описывает аутентифицированного участника запроса.
type Requester struct {
	ID      int64
	IsAdmin bool
}

// CartItem описывает позицию корзины со снимком данных товара на момент добавления.
type CartItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Image        string `json:"image"`
	Price        Money  `json:"price"`
	Qty          int    `json:"qty"`
	CountInStock int    `json:"countInStock"`
}

// ShippingAddress содержит почтовый адрес доставки.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order описывает оформленный заказ и его состояние оплаты и доставки.
type Order struct {
	ID              uuid.UUID
	UserID          int64
	User            *UserSummary
	OrderItems      []CartItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	ItemsPrice      Money
	ShippingPrice   Money
	TaxPrice        Money
	TotalPrice      Money
	IsPaid          bool
	PaidAt          *time.Time
	IsDelivered     bool
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderRequest содержит снимок корзины, из которого создаётся заказ.
type OrderRequest struct {
	OrderItems      []CartItem      `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	ItemsPrice      Money           `json:"itemsPrice"`
	ShippingPrice   Money           `json:"shippingPrice"`
	TaxPrice        Money           `json:"taxPrice"`
	TotalPrice      Money           `json:"totalPrice"`
}

// OrderEventType описывает тип события жизненного цикла заказа.
type OrderEventType string

const (
	OrderEventCreated   OrderEventType = "order.created"
	OrderEventPaid      OrderEventType = "order.paid"
	OrderEventDelivered OrderEventType = "order.delivered"
)

// OrderEvent описывает запись исходящей очереди событий (outbox).
type OrderEvent struct {
	ID        int64
	OrderID   uuid.UUID
	Type      OrderEventType
	Payload   []byte
	CreatedAt time.Time
}
