package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin *bool  `json:"isAdmin"`
}

// Register регистрирует пользователя и устанавливает cookie авторизации.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBodyError(w, err)
		return
	}

	u, err := h.service.RegisterUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "register user", err)
		return
	}

	h.signIn(w, r, http.StatusCreated, u)
}

// Login выполняет аутентификацию пользователя и устанавливает cookie авторизации.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBodyError(w, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "login user", err)
		return
	}

	h.signIn(w, r, http.StatusOK, u)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, status int, u *model.UserSummary) {
	if err := h.authMiddleware.SetAuthCookie(w, *u); err != nil {
		h.writeError(w, r, "set auth cookie", err)
		return
	}
	h.writeJSON(w, status, u)
}

// Logout удаляет cookie авторизации и сведения о пользователе в сессии.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), requester(r)); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			h.writeError(w, r, "logout", err)
			return
		}
		h.logger.Warn("logout error", zap.Error(err))
	}

	middleware.ClearAuthCookie(w)
	h.writeMessage(w, http.StatusOK, "Logged out successfully")
}

// Profile возвращает сведения о текущем пользователе.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Profile(r.Context(), requester(r))
	if err != nil {
		h.writeError(w, r, "get profile", err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// UpdateProfile изменяет профиль текущего пользователя и перевыпускает cookie авторизации.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBodyError(w, err)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), requester(r), model.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(w, r, "update profile", err)
		return
	}

	h.signIn(w, r, http.StatusOK, u)
}

// GetUsers возвращает список пользователей для администратора.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), requester(r))
	if err != nil {
		h.writeError(w, r, "list users", err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// GetUserByID возвращает пользователя для администратора.
func (h *Handler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), requester(r), id)
	if err != nil {
		h.writeError(w, r, "get user", err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// UpdateUser изменяет имя, email и признак администратора пользователя.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeBodyError(w, err)
		return
	}

	u, err := h.service.UpdateUser(r.Context(), requester(r), id, model.UserUpdate{
		Name:    req.Name,
		Email:   req.Email,
		IsAdmin: req.IsAdmin,
	})
	if err != nil {
		h.writeError(w, r, "update user", err)
		return
	}
	h.writeJSON(w, http.StatusOK, u)
}

// DeleteUser удаляет пользователя.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), requester(r), id); err != nil {
		h.writeError(w, r, "delete user", err)
		return
	}
	h.writeMessage(w, http.StatusOK, "User removed")
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeMessage(w, http.StatusNotFound, "user "+raw+" not found")
		return 0, false
	}
	return id, true
}
