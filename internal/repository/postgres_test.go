package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmeshcher/storefront/internal/model"
)

func setupTestDB(t *testing.T) *PostgresRepository {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func createTestUser(t *testing.T, repo *PostgresRepository, email string) *model.User {
	t.Helper()

	u := &model.User{Name: "User " + email, Email: email, PasswordHash: []byte("hash")}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return u
}

func newTestOrder(userID int64, createdAt time.Time) *model.Order {
	return &model.Order{
		ID:     uuid.New(),
		UserID: userID,
		OrderItems: []model.CartItem{
			{ID: "p1", Name: "Phone", Price: model.MustMoney("99.99"), Qty: 2, CountInStock: 5},
		},
		ShippingAddress: model.ShippingAddress{Address: "1 Main St", City: "Town", PostalCode: "1000", Country: "NL"},
		PaymentMethod:   "Credit Card",
		ItemsPrice:      model.MustMoney("199.98"),
		ShippingPrice:   model.MustMoney("0.00"),
		TaxPrice:        model.MustMoney("30.00"),
		TotalPrice:      model.MustMoney("229.98"),
		CreatedAt:       createdAt,
	}
}

func TestPostgresRepository_Users(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, repo, "ann@example.com")
	assert.NotZero(t, u.ID)

	err := repo.CreateUser(ctx, &model.User{Name: "Dup", Email: "ann@example.com", PasswordHash: []byte("x")})
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := repo.GetUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetUserByID(ctx, 999999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgresRepository_UserManagement(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	ann := createTestUser(t, repo, "ann@example.com")
	bob := createTestUser(t, repo, "bob@example.com")

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, ann.ID, users[0].ID)
	assert.Equal(t, bob.ID, users[1].ID)

	ann.Name = "Ann B."
	ann.IsAdmin = true
	require.NoError(t, repo.UpdateUser(ctx, ann))

	got, err := repo.GetUserByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", got.Name)
	assert.True(t, got.IsAdmin)

	bob.Email = "ann@example.com"
	assert.ErrorIs(t, repo.UpdateUser(ctx, bob), ErrUserExists)

	assert.ErrorIs(t, repo.UpdateUser(ctx, &model.User{ID: 999999, Email: "x@example.com"}), ErrUserNotFound)

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder(ann.ID, time.Now().UTC())))
	assert.ErrorIs(t, repo.DeleteUser(ctx, ann.ID), ErrUserHasOrders)

	require.NoError(t, repo.DeleteUser(ctx, bob.ID))
	_, err = repo.GetUserByID(ctx, bob.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, repo.DeleteUser(ctx, bob.ID), ErrUserNotFound)
}

func TestPostgresRepository_OrderLifecycle(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, repo, "alice@example.com")
	bob := createTestUser(t, repo, "bob@example.com")

	now := time.Now().UTC().Truncate(time.Microsecond)
	older := newTestOrder(alice.ID, now.Add(-time.Hour))
	newer := newTestOrder(alice.ID, now)
	bobs := newTestOrder(bob.ID, now)

	for _, o := range []*model.Order{older, newer, bobs} {
		require.NoError(t, repo.CreateOrder(ctx, o))
	}

	got, err := repo.GetOrder(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "229.98", got.TotalPrice.String())
	assert.Equal(t, "99.99", got.OrderItems[0].Price.String())
	assert.Equal(t, older.ShippingAddress, got.ShippingAddress)
	require.NotNil(t, got.User)
	assert.Equal(t, alice.Name, got.User.Name)
	assert.False(t, got.IsPaid)
	assert.Nil(t, got.PaidAt)

	mine, err := repo.GetOrdersByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)

	all, err := repo.GetAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = repo.GetOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)

	paid, err := repo.UpdateOrder(ctx, older.ID, model.OrderEventPaid, func(o *model.Order) error {
		at := time.Now()
		o.IsPaid = true
		o.PaidAt = &at
		return nil
	})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.NotNil(t, paid.PaidAt)

	events, err := repo.GetUnpublishedEvents(ctx, 100)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, model.OrderEventPaid, events[3].Type)

	require.NoError(t, repo.MarkEventPublished(ctx, events[0].ID))
	events, err = repo.GetUnpublishedEvents(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestPostgresRepository_UpdateOrderAbortsOnMutateError(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, repo, "carol@example.com")
	o := newTestOrder(u.ID, time.Now())
	require.NoError(t, repo.CreateOrder(ctx, o))

	denied := errors.New("denied")
	_, err := repo.UpdateOrder(ctx, o.ID, model.OrderEventDelivered, func(o *model.Order) error {
		o.IsDelivered = true
		return denied
	})
	assert.ErrorIs(t, err, denied)

	got, err := repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDelivered)

	_, err = repo.UpdateOrder(ctx, uuid.New(), model.OrderEventPaid, func(o *model.Order) error { return nil })
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgresRepository_ConcurrentTransitionsKeepBothFlags(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, repo, "dave@example.com")
	o := newTestOrder(u.ID, time.Now())
	require.NoError(t, repo.CreateOrder(ctx, o))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateOrder(ctx, o.ID, model.OrderEventPaid, func(o *model.Order) error {
				at := time.Now()
				o.IsPaid, o.PaidAt = true, &at
				return nil
			})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := repo.UpdateOrder(ctx, o.ID, model.OrderEventDelivered, func(o *model.Order) error {
				at := time.Now()
				o.IsDelivered, o.DeliveredAt = true, &at
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.True(t, got.IsDelivered)
}
