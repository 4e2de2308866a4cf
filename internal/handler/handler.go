// Package handler содержит HTTP-обработчики API интернет-магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, name, email, password string) (*model.UserSummary, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.UserSummary, error)
	Profile(ctx context.Context, req *model.Requester) (*model.UserSummary, error)
	Logout(ctx context.Context, req *model.Requester) error
	UpdateProfile(ctx context.Context, req *model.Requester, in model.UserUpdate) (*model.UserSummary, error)
	ListUsers(ctx context.Context, req *model.Requester) ([]model.UserSummary, error)
	GetUser(ctx context.Context, req *model.Requester, id int64) (*model.UserSummary, error)
	UpdateUser(ctx context.Context, req *model.Requester, id int64, in model.UserUpdate) (*model.UserSummary, error)
	DeleteUser(ctx context.Context, req *model.Requester, id int64) error

	GetCart(ctx context.Context, req *model.Requester) (cart.State, error)
	AddCartItem(ctx context.Context, req *model.Requester, item model.CartItem) (cart.State, error)
	RemoveCartItem(ctx context.Context, req *model.Requester, id string) (cart.State, error)
	SaveShippingAddress(ctx context.Context, req *model.Requester, addr model.ShippingAddress) (cart.State, error)
	SavePaymentMethod(ctx context.Context, req *model.Requester, method string) (cart.State, error)
	ClearCart(ctx context.Context, req *model.Requester) (cart.State, error)
	Checkout(ctx context.Context, req *model.Requester) (*model.Order, error)

	CreateOrder(ctx context.Context, req *model.Requester, in model.OrderRequest) (*model.Order, error)
	GetOrder(ctx context.Context, req *model.Requester, id string) (*model.Order, error)
	ListMine(ctx context.Context, req *model.Requester) ([]model.Order, error)
	ListAll(ctx context.Context, req *model.Requester) ([]model.Order, error)
	MarkPaid(ctx context.Context, req *model.Requester, id string) (*model.Order, error)
	MarkDelivered(ctx context.Context, req *model.Requester, id string) (*model.Order, error)
}

// Handler реализует HTTP-обработчики API интернет-магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type orderResponse struct {
	ID              string                `json:"_id"`
	UserID          int64                 `json:"userId"`
	User            *userResponse         `json:"user,omitempty"`
	OrderItems      []model.CartItem      `json:"orderItems"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	ItemsPrice      model.Money           `json:"itemsPrice"`
	ShippingPrice   model.Money           `json:"shippingPrice"`
	TaxPrice        model.Money           `json:"taxPrice"`
	TotalPrice      model.Money           `json:"totalPrice"`
	IsPaid          bool                  `json:"isPaid"`
	PaidAt          *string               `json:"paidAt,omitempty"`
	IsDelivered     bool                  `json:"isDelivered"`
	DeliveredAt     *string               `json:"deliveredAt,omitempty"`
	CreatedAt       string                `json:"createdAt"`
	UpdatedAt       string                `json:"updatedAt"`
}

func newOrderResponse(o *model.Order) orderResponse {
	items := o.OrderItems
	if items == nil {
		items = []model.CartItem{}
	}

	resp := orderResponse{
		ID:              o.ID.String(),
		UserID:          o.UserID,
		OrderItems:      items,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		ItemsPrice:      o.ItemsPrice,
		ShippingPrice:   o.ShippingPrice,
		TaxPrice:        o.TaxPrice,
		TotalPrice:      o.TotalPrice,
		IsPaid:          o.IsPaid,
		PaidAt:          formatTime(o.PaidAt),
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     formatTime(o.DeliveredAt),
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
	if o.User != nil {
		resp.User = &userResponse{ID: o.User.ID, Name: o.User.Name, Email: o.User.Email}
	}
	return resp
}

func newOrdersResponse(orders []model.Order) []orderResponse {
	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func requester(r *http.Request) *model.Requester {
	req, _ := middleware.GetRequesterFromContext(r.Context())
	return req
}

// maxBodyBytes ограничивает размер тела запроса.
const maxBodyBytes = 1 << 20

func limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	limitBody(w, r)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// writeBodyError отвечает 413 на слишком большое тело и 400 на некорректное.
func (h *Handler) writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	h.writeMessage(w, http.StatusBadRequest, "invalid request body")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, messageResponse{Message: msg})
}

// writeError сопоставляет ошибку сервиса с кодом ответа.
// Непредвиденные ошибки логируются, клиент получает общее сообщение.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var status int
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	default:
		h.logger.Error(op+" error", zap.Error(err), zap.String("uri", r.RequestURI))
		h.writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	h.writeMessage(w, status, err.Error())
}
