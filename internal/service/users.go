package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/sessionstore"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

// RegisterUser регистрирует нового пользователя и сохраняет его сведения в сессии.
func (s *Service) RegisterUser(ctx context.Context, name, email, password string) (*model.UserSummary, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || password == "" {
		return nil, validationError("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationError("invalid email %q", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      s.isAdminEmail(email),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		return nil, err
	}

	summary := u.Summary()
	s.rememberUser(ctx, summary)
	return &summary, nil
}

// AuthenticateUser проверяет email и пароль и возвращает сведения о пользователе.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.UserSummary, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	summary := u.Summary()
	s.rememberUser(ctx, summary)
	return &summary, nil
}

// Profile возвращает сведения о текущем пользователе.
func (s *Service) Profile(ctx context.Context, req *model.Requester) (*model.UserSummary, error) {
	if err := authorize(req); err != nil {
		return nil, err
	}

	if u, ok, err := s.sessions.LoadUserInfo(ctx, sessionstore.SessionID(req.ID)); err == nil && ok {
		return &u, nil
	}

	u, err := s.repo.GetUserByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}

	summary := u.Summary()
	s.rememberUser(ctx, summary)
	return &summary, nil
}

// Logout удаляет сведения о пользователе из сессии.
func (s *Service) Logout(ctx context.Context, req *model.Requester) error {
	if err := authorize(req); err != nil {
		return err
	}
	return s.sessions.DeleteUserInfo(ctx, sessionstore.SessionID(req.ID))
}

// UpdateProfile изменяет имя, email и пароль текущего пользователя.
func (s *Service) UpdateProfile(ctx context.Context, req *model.Requester, in model.UserUpdate) (*model.UserSummary, error) {
	if err := authorize(req); err != nil {
		return nil, err
	}

	u, err := s.loadUser(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := applyUserUpdate(u, in); err != nil {
		return nil, err
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}

	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}

	summary := u.Summary()
	s.rememberUser(ctx, summary)
	return &summary, nil
}

// ListUsers возвращает всех пользователей. Доступно только администратору.
func (s *Service) ListUsers(ctx context.Context, req *model.Requester) ([]model.UserSummary, error) {
	if err := s.requireAdmin(ctx, req); err != nil {
		return nil, err
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	res := make([]model.UserSummary, 0, len(users))
	for i := range users {
		res = append(res, users[i].Summary())
	}
	return res, nil
}

// GetUser возвращает пользователя по идентификатору. Доступно только администратору.
func (s *Service) GetUser(ctx context.Context, req *model.Requester, id int64) (*model.UserSummary, error) {
	if err := s.requireAdmin(ctx, req); err != nil {
		return nil, err
	}

	u, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := u.Summary()
	return &summary, nil
}

// UpdateUser изменяет имя, email и признак администратора пользователя.
// Пароль администратор не меняет. Новый признак администратора попадёт
// в токен пользователя при следующем входе.
func (s *Service) UpdateUser(ctx context.Context, req *model.Requester, id int64, in model.UserUpdate) (*model.UserSummary, error) {
	if err := s.requireAdmin(ctx, req); err != nil {
		return nil, err
	}

	u, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyUserUpdate(u, in); err != nil {
		return nil, err
	}
	if in.IsAdmin != nil {
		u.IsAdmin = *in.IsAdmin
	}

	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}

	summary := u.Summary()
	s.rememberUser(ctx, summary)
	return &summary, nil
}

// DeleteUser удаляет пользователя без заказов. Администраторов удалить нельзя.
func (s *Service) DeleteUser(ctx context.Context, req *model.Requester, id int64) error {
	if err := s.requireAdmin(ctx, req); err != nil {
		return err
	}

	u, err := s.loadUser(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAdmin {
		return validationError("cannot delete admin user")
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return fmt.Errorf("%w: user %d", ErrNotFound, id)
		case errors.Is(err, repository.ErrUserHasOrders):
			return fmt.Errorf("%w: user %d has orders", ErrConflict, id)
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	if err := s.sessions.DeleteUserInfo(ctx, sessionstore.SessionID(id)); err != nil {
		s.logger.Warn("delete user info", zap.Error(err), zap.Int64("userID", id))
	}
	return nil
}

func (s *Service) loadUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) saveUser(ctx context.Context, u *model.User) error {
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserExists):
			return fmt.Errorf("%w: email %s is already taken", ErrConflict, u.Email)
		case errors.Is(err, repository.ErrUserNotFound):
			return fmt.Errorf("%w: user %d", ErrNotFound, u.ID)
		}
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

func applyUserUpdate(u *model.User, in model.UserUpdate) error {
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return validationError("invalid email %q", email)
		}
		u.Email = email
	}
	return nil
}

// Ошибка сохранения сведений в сессии не должна ломать вход.
func (s *Service) rememberUser(ctx context.Context, u model.UserSummary) {
	if err := s.sessions.SaveUserInfo(ctx, sessionstore.SessionID(u.ID), u); err != nil {
		s.logger.Warn("save user info", zap.Error(err), zap.Int64("userID", u.ID))
	}
}
