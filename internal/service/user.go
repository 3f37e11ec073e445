package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/auth"
	"github.com/sakif/idle-clicker/internal/model"
	"github.com/sakif/idle-clicker/internal/repository"
)

// UserService is the account directory: lookups for any player, edits and
// deletes for admins. Route-level RequireRole does the admin check.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{users: users, passwords: passwords, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: getting %s: %w", id, err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing: %w", err)
	}
	return users, nil
}

func (s *UserService) Admins(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListUsersByRole(ctx, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing admins: %w", err)
	}
	return users, nil
}

// Search matches name anywhere in the username.
func (s *UserService) Search(ctx context.Context, name string) ([]model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "search term is required")
	}
	users, err := s.users.SearchUsers(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("service/user: searching %q: %w", name, err)
	}
	return users, nil
}

// UpdateUserInput replaces all three editable fields at once.
type UpdateUserInput struct {
	Username string     `json:"username"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

// Update is admin-only. The new credentials go through the same rules as
// registration.
func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*model.User, error) {
	if err := auth.ValidateCredentials(in.Username, in.Password); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, apperror.ValidationFailed("role", "role must be \"user\" or \"admin\"")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/user: updating %s: %w", id, err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: updating %s: %w", id, err)
	}

	user.Username = in.Username
	user.PasswordHash = hash
	user.Role = in.Role
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating %s: %w", id, err)
	}

	s.logger.Info("user updated", slog.String("userID", id), slog.String("role", string(user.Role)))
	return user, nil
}

// Delete removes the account along with its progression and inventory.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("service/user: deleting %s: %w", id, err)
	}
	s.logger.Info("user deleted", slog.String("userID", id))
	return nil
}
