package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

// CreateOrder создаёт заказ из переданного снимка корзины.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in model.OrderRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeBodyError(w, err)
		return
	}

	o, err := h.service.CreateOrder(r.Context(), requester(r), in)
	if err != nil {
		h.writeError(w, r, "create order", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

// GetMyOrders возвращает заказы текущего пользователя.
func (h *Handler) GetMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListMine(r.Context(), requester(r))
	if err != nil {
		h.writeError(w, r, "list my orders", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOrdersResponse(orders))
}

// GetOrders возвращает все заказы для администратора.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListAll(r.Context(), requester(r))
	if err != nil {
		h.writeError(w, r, "list orders", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOrdersResponse(orders))
}

// GetOrderByID возвращает заказ владельцу или администратору.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get order", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOrderResponse(o))
}

// PayOrder отмечает заказ оплаченным. Реквизиты карты в теле необязательны
// и проверяются только по формату.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeBodyError(w, err)
		return
	}

	if len(bytes.TrimSpace(body)) > 0 {
		var details validation.PaymentDetails
		if err := json.Unmarshal(body, &details); err != nil {
			h.writeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if details != (validation.PaymentDetails{}) {
			if msg := details.Validate(); msg != "" {
				h.writeMessage(w, http.StatusBadRequest, msg)
				return
			}
		}
	}

	o, err := h.service.MarkPaid(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "pay order", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOrderResponse(o))
}

// DeliverOrder отмечает заказ доставленным.
func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.MarkDelivered(r.Context(), requester(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "deliver order", err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOrderResponse(o))
}
