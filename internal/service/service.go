// Package service реализует бизнес-логику интернет-магазина:
// корзину покупателя, оформление и жизненный цикл заказов, учётные записи.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/catalog"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/sessionstore"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id int64) error
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetAllOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, eventType model.OrderEventType, mutate func(o *model.Order) error) (*model.Order, error)
}

// Catalog описывает источник актуальных данных о товарах.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

// Options задаёт политики, по которым исходный контракт допускает ужесточение.
type Options struct {
	// StrictPayment разрешает оплату заказа только владельцу или администратору.
	StrictPayment bool
	// RecomputeTotals пересчитывает цены заказа на сервере и отклоняет расхождения.
	RecomputeTotals bool
	// AdminEmails получают права администратора при регистрации.
	AdminEmails []string
}

// Service содержит бизнес-логику интернет-магазина.
type Service struct {
	repo     Repository
	sessions sessionstore.Store
	carts    *cart.Session
	catalog  Catalog
	logger   *zap.Logger
	opts     Options
	now      func() time.Time
}

// NewService создаёт сервис. catalog может быть nil: тогда снимок товара берётся из запроса.
func NewService(repo Repository, sessions sessionstore.Store, catalog Catalog, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:     repo,
		sessions: sessions,
		carts:    cart.NewSession(sessions),
		catalog:  catalog,
		logger:   logger,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	var err error
	if s.sessions != nil {
		err = s.sessions.Close()
	}
	if s.repo != nil {
		if rerr := s.repo.Close(); rerr != nil {
			err = rerr
		}
	}
	return err
}

func (s *Service) isAdminEmail(email string) bool {
	return slices.ContainsFunc(s.opts.AdminEmails, func(a string) bool {
		return strings.EqualFold(strings.TrimSpace(a), email)
	})
}

func authorize(req *model.Requester) error {
	if req == nil || req.ID == 0 {
		return ErrUnauthorized
	}
	return nil
}

var errNotAdmin = fmt.Errorf("%w: not authorized as an admin", ErrForbidden)

// requireAdmin сверяет признак администратора из токена с базой,
// так что отозванные права перестают действовать сразу.
func (s *Service) requireAdmin(ctx context.Context, req *model.Requester) error {
	if err := authorize(req); err != nil {
		return err
	}
	if !req.IsAdmin {
		return errNotAdmin
	}

	u, err := s.repo.GetUserByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return errNotAdmin
		}
		return fmt.Errorf("check admin: %w", err)
	}
	if !u.IsAdmin {
		return errNotAdmin
	}
	return nil
}
