// Package cart реализует корзину покупателя: чистые функции изменения состояния
// и пересчёт производных цен после каждой операции.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

// DefaultPaymentMethod используется, пока покупатель не выбрал способ оплаты.
const DefaultPaymentMethod = "Credit Card"

var (
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShipping          = decimal.NewFromInt(10)
	taxRate               = decimal.New(15, -2)
)

// State описывает корзину вместе с производными ценами.
type State struct {
	CartItems       []model.CartItem      `json:"cartItems"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	ItemsPrice      model.Money           `json:"itemsPrice"`
	ShippingPrice   model.Money           `json:"shippingPrice"`
	TaxPrice        model.Money           `json:"taxPrice"`
	TotalPrice      model.Money           `json:"totalPrice"`
}

// Prices содержит четыре производных поля корзины.
type Prices struct {
	ItemsPrice    model.Money
	ShippingPrice model.Money
	TaxPrice      model.Money
	TotalPrice    model.Money
}

// New возвращает пустую корзину с пересчитанными ценами.
func New() State {
	return recompute(State{
		CartItems:     []model.CartItem{},
		PaymentMethod: DefaultPaymentMethod,
	})
}

// AddItem добавляет товар в конец корзины или целиком заменяет позицию с тем же id.
func AddItem(s State, item model.CartItem) State {
	items := make([]model.CartItem, 0, len(s.CartItems)+1)
	replaced := false
	for _, it := range s.CartItems {
		if it.ID == item.ID {
			items = append(items, item)
			replaced = true
			continue
		}
		items = append(items, it)
	}
	if !replaced {
		items = append(items, item)
	}

	s.CartItems = items
	return recompute(s)
}

// RemoveItem удаляет позицию по id. Отсутствующий id не является ошибкой.
func RemoveItem(s State, id string) State {
	items := make([]model.CartItem, 0, len(s.CartItems))
	for _, it := range s.CartItems {
		if it.ID != id {
			items = append(items, it)
		}
	}

	s.CartItems = items
	return recompute(s)
}

// SetShippingAddress сохраняет адрес доставки.
func SetShippingAddress(s State, addr model.ShippingAddress) State {
	s.ShippingAddress = addr
	return recompute(s)
}

// SetPaymentMethod сохраняет способ оплаты.
func SetPaymentMethod(s State, method string) State {
	s.PaymentMethod = method
	return recompute(s)
}

// Clear очищает список товаров, сохраняя адрес и способ оплаты.
func Clear(s State) State {
	s.CartItems = []model.CartItem{}
	return recompute(s)
}

// Price рассчитывает производные цены для набора позиций.
func Price(items []model.CartItem) Prices {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	itemsPrice := model.Round2(sum)

	shipping := flatShipping
	if itemsPrice.GreaterThan(freeShippingThreshold) {
		shipping = decimal.Zero
	}
	shippingPrice := model.Round2(shipping)

	taxPrice := model.Round2(itemsPrice.Mul(taxRate))

	total := itemsPrice.Add(shippingPrice.Decimal).Add(taxPrice.Decimal)

	return Prices{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shippingPrice,
		TaxPrice:      taxPrice,
		TotalPrice:    model.Round2(total),
	}
}

// OrderRequest строит запрос на создание заказа из снимка корзины.
func (s State) OrderRequest() model.OrderRequest {
	items := make([]model.CartItem, len(s.CartItems))
	copy(items, s.CartItems)

	return model.OrderRequest{
		OrderItems:      items,
		ShippingAddress: s.ShippingAddress,
		PaymentMethod:   s.PaymentMethod,
		ItemsPrice:      s.ItemsPrice,
		ShippingPrice:   s.ShippingPrice,
		TaxPrice:        s.TaxPrice,
		TotalPrice:      s.TotalPrice,
	}
}

func recompute(s State) State {
	if s.CartItems == nil {
		s.CartItems = []model.CartItem{}
	}

	p := Price(s.CartItems)
	s.ItemsPrice = p.ItemsPrice
	s.ShippingPrice = p.ShippingPrice
	s.TaxPrice = p.TaxPrice
	s.TotalPrice = p.TotalPrice
	return s
}
