package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/sessionstore"
)

func register(t *testing.T, svc *Service, name, email string) *model.UserSummary {
	t.Helper()

	u, err := svc.RegisterUser(context.Background(), name, email, "secret")
	require.NoError(t, err)
	return u
}

func TestUpdateProfile(t *testing.T) {
	svc, repo, sessions := newTestService(t, Options{})
	ctx := context.Background()

	ann := register(t, svc, "Ann", "ann@example.com")
	register(t, svc, "Bob", "bob@example.com")
	req := &model.Requester{ID: ann.ID}

	u, err := svc.UpdateProfile(ctx, req, model.UserUpdate{Name: "Ann B.", Password: "new-secret"})
	require.NoError(t, err)
	assert.Equal(t, "Ann B.", u.Name)
	assert.Equal(t, "ann@example.com", u.Email, "empty email keeps the current one")

	stored := repo.users[ann.ID]
	require.NoError(t, bcrypt.CompareHashAndPassword(stored.PasswordHash, []byte("new-secret")))

	info, ok, err := sessions.LoadUserInfo(ctx, sessionstore.SessionID(ann.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ann B.", info.Name)

	_, err = svc.UpdateProfile(ctx, req, model.UserUpdate{Email: "Bob@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.UpdateProfile(ctx, req, model.UserUpdate{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrValidation)

	// Признак администратора через профиль не меняется.
	yes := true
	u, err = svc.UpdateProfile(ctx, req, model.UserUpdate{IsAdmin: &yes})
	require.NoError(t, err)
	assert.False(t, u.IsAdmin)

	_, err = svc.UpdateProfile(ctx, nil, model.UserUpdate{Name: "X"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUserAdministration(t *testing.T) {
	svc, _, sessions := newTestService(t, Options{})
	ctx := context.Background()

	ann := register(t, svc, "Ann", "ann@example.com")
	bob := register(t, svc, "Bob", "bob@example.com")

	_, err := svc.ListUsers(ctx, &model.Requester{ID: ann.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	users, err := svc.ListUsers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, ann.ID, users[0].ID)

	got, err := svc.GetUser(ctx, admin, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", got.Email)

	_, err = svc.GetUser(ctx, admin, 12345)
	assert.ErrorIs(t, err, ErrNotFound)

	yes := true
	updated, err := svc.UpdateUser(ctx, admin, bob.ID, model.UserUpdate{Name: "Robert", IsAdmin: &yes})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)
	assert.True(t, updated.IsAdmin)

	info, ok, err := sessions.LoadUserInfo(ctx, sessionstore.SessionID(bob.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, info.IsAdmin)

	_, err = svc.UpdateUser(ctx, admin, bob.ID, model.UserUpdate{Email: "ann@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.UpdateUser(ctx, &model.Requester{ID: ann.ID}, bob.ID, model.UserUpdate{Name: "X"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteUser(t *testing.T) {
	svc, repo, sessions := newTestService(t, Options{})
	ctx := context.Background()

	ann := register(t, svc, "Ann", "ann@example.com")
	bob := register(t, svc, "Bob", "bob@example.com")

	_, err := svc.CreateOrder(ctx, &model.Requester{ID: ann.ID}, validOrderRequest())
	require.NoError(t, err)

	err = svc.DeleteUser(ctx, admin, ann.ID)
	assert.ErrorIs(t, err, ErrConflict, "user with orders")

	err = svc.DeleteUser(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, ErrValidation, "admin user")

	err = svc.DeleteUser(ctx, &model.Requester{ID: ann.ID}, bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.DeleteUser(ctx, admin, bob.ID))
	assert.NotContains(t, repo.users, bob.ID)
	_, ok, _ := sessions.LoadUserInfo(ctx, sessionstore.SessionID(bob.ID))
	assert.False(t, ok)

	err = svc.DeleteUser(ctx, admin, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Токен с устаревшим признаком администратора не даёт прав после их отзыва.
func TestRevokedAdminLosesAccess(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()

	ann := register(t, svc, "Ann", "ann@example.com")
	o, err := svc.CreateOrder(ctx, &model.Requester{ID: ann.ID}, validOrderRequest())
	require.NoError(t, err)

	yes, no := true, false
	boss := register(t, svc, "Boss", "boss@example.com")
	_, err = svc.UpdateUser(ctx, admin, boss.ID, model.UserUpdate{IsAdmin: &yes})
	require.NoError(t, err)

	token := &model.Requester{ID: boss.ID, IsAdmin: true}
	_, err = svc.ListAll(ctx, token)
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, admin, boss.ID, model.UserUpdate{IsAdmin: &no})
	require.NoError(t, err)

	_, err = svc.ListAll(ctx, token)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.MarkDelivered(ctx, token, o.ID.String())
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.GetOrder(ctx, token, o.ID.String())
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListUsers(ctx, token)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRequireAdmin_RepositoryError(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	svc.repo = &failingUserRepo{fakeRepo: newFakeRepo(), err: errors.New("db down")}

	_, err := svc.ListUsers(context.Background(), admin)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
}

type failingUserRepo struct {
	*fakeRepo
	err error
}

func (r *failingUserRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return nil, r.err
}
