package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/model"
)

type paymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, op string, st cart.State, err error) {
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.GetCart(r.Context(), requester(r))
	h.writeCart(w, r, "get cart", st, err)
}

// AddCartItem добавляет товар в корзину или заменяет позицию с тем же id.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var item model.CartItem
	if err := decodeJSON(w, r, &item); err != nil {
		h.writeBodyError(w, err)
		return
	}

	st, err := h.service.AddCartItem(r.Context(), requester(r), item)
	h.writeCart(w, r, "add cart item", st, err)
}

// RemoveCartItem удаляет позицию корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.RemoveCartItem(r.Context(), requester(r), chi.URLParam(r, "id"))
	h.writeCart(w, r, "remove cart item", st, err)
}

// SaveShippingAddress сохраняет адрес доставки.
func (h *Handler) SaveShippingAddress(w http.ResponseWriter, r *http.Request) {
	var addr model.ShippingAddress
	if err := decodeJSON(w, r, &addr); err != nil {
		h.writeBodyError(w, err)
		return
	}

	st, err := h.service.SaveShippingAddress(r.Context(), requester(r), addr)
	h.writeCart(w, r, "save shipping address", st, err)
}

// SavePaymentMethod сохраняет способ оплаты.
func (h *Handler) SavePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req paymentMethodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBodyError(w, err)
		return
	}

	st, err := h.service.SavePaymentMethod(r.Context(), requester(r), req.PaymentMethod)
	h.writeCart(w, r, "save payment method", st, err)
}

// ClearCart очищает корзину.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.ClearCart(r.Context(), requester(r))
	h.writeCart(w, r, "clear cart", st, err)
}

// Checkout оформляет заказ из корзины.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Checkout(r.Context(), requester(r))
	if err != nil {
		h.writeError(w, r, "checkout", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newOrderResponse(o))
}
