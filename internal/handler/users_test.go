package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

func TestUpdateProfile_ReissuesCookie(t *testing.T) {
	svc := &stubService{user: &model.UserSummary{ID: 4, Name: "Ann B.", Email: "ann@example.com"}}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodPut, "/api/users/profile",
		map[string]string{"name": "Ann B.", "password": "new-secret"},
		authCookie(t, h, model.UserSummary{ID: 4}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":4,"name":"Ann B.","email":"ann@example.com","isAdmin":false}`, rec.Body.String())
	assert.Equal(t, int64(4), svc.lastRequester.ID)
	assert.Equal(t, "new-secret", svc.lastUpdate.Password)
	assert.Nil(t, svc.lastUpdate.IsAdmin)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestUpdateProfile_EmailTaken(t *testing.T) {
	svc := &stubService{userErr: fmt.Errorf("%w: email bob@example.com is already taken", service.ErrConflict)}
	h := newTestHandler(t, svc)

	rec := do(t, h, http.MethodPut, "/api/users/profile", map[string]string{"email": "bob@example.com"}, authCookie(t, h, model.UserSummary{ID: 4}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestUserAdminRoutes(t *testing.T) {
	svc := &stubService{
		user:  &model.UserSummary{ID: 5, Name: "Bob", Email: "bob@example.com", IsAdmin: true},
		users: []model.UserSummary{{ID: 1, Name: "Ann"}, {ID: 5, Name: "Bob"}},
	}
	h := newTestHandler(t, svc)

	customer := authCookie(t, h, model.UserSummary{ID: 1})
	admin := authCookie(t, h, model.UserSummary{ID: 2, IsAdmin: true})

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/users/5"},
		{http.MethodPut, "/api/users/5"},
		{http.MethodDelete, "/api/users/5"},
	} {
		assert.Equal(t, http.StatusForbidden, do(t, h, route.method, route.path, nil, customer).Code, "%s %s", route.method, route.path)
		assert.Equal(t, http.StatusUnauthorized, do(t, h, route.method, route.path, nil, nil).Code, "%s %s", route.method, route.path)
	}

	rec := do(t, h, http.MethodGet, "/api/users", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.UserSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = do(t, h, http.MethodGet, "/api/users/5", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), svc.lastUserID)

	rec = do(t, h, http.MethodPut, "/api/users/5", map[string]any{"name": "Bob", "isAdmin": true}, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastUpdate.IsAdmin)
	assert.True(t, *svc.lastUpdate.IsAdmin)
	assert.Empty(t, rec.Result().Cookies(), "admin update keeps the admin's own cookie")

	rec = do(t, h, http.MethodDelete, "/api/users/5", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User removed"}`, rec.Body.String())

	// Статические пути не перехватываются маршрутом /{id}.
	svc.lastUserID = 0
	rec = do(t, h, http.MethodGet, "/api/users/profile", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, svc.lastUserID)
}

func TestUserAdminRoutes_BadID(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	admin := authCookie(t, h, model.UserSummary{ID: 2, IsAdmin: true})

	for _, path := range []string{"/api/users/abc", "/api/users/0", "/api/users/-3"} {
		rec := do(t, h, http.MethodGet, path, nil, admin)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Zero(t, svc.lastUserID)
}

func TestDeleteUser_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", want: http.StatusOK},
		{name: "admin user", err: fmt.Errorf("%w: cannot delete admin user", service.ErrValidation), want: http.StatusBadRequest},
		{name: "has orders", err: fmt.Errorf("%w: user 5 has orders", service.ErrConflict), want: http.StatusConflict},
		{name: "missing", err: fmt.Errorf("%w: user 5", service.ErrNotFound), want: http.StatusNotFound},
		{name: "revoked admin", err: fmt.Errorf("%w: not authorized as an admin", service.ErrForbidden), want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{deleteErr: tt.err}
			h := newTestHandler(t, svc)

			rec := do(t, h, http.MethodDelete, "/api/users/5", nil, authCookie(t, h, model.UserSummary{ID: 2, IsAdmin: true}))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
