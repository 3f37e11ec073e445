package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/idle-clicker/internal/apperror"
	"github.com/sakif/idle-clicker/internal/auth"
	"github.com/sakif/idle-clicker/internal/model"
	"github.com/sakif/idle-clicker/internal/repository"
)

// githubUsernamePrefix keeps OAuth usernames out of the password namespace:
// registration only accepts [a-zA-Z0-9], so "gh-…" can never be claimed there.
const githubUsernamePrefix = "gh-"

// AuthService turns credentials into a signed identity.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can respond
// (and set a cookie) in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a password account. The first account in an empty
// database becomes admin.
func (s *AuthService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	if err := auth.ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
	)
	return s.issue(user)
}

// Login verifies a password. Unknown usernames are USER_NOT_FOUND, wrong
// passwords INVALID_PASSWORD. Accounts created through GitHub have no
// password and always fail here.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: login %q: %w", username, err)
	}

	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized(apperror.CodeInvalidPassword, "invalid password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(apperror.CodeInvalidPassword, "invalid password")
		}
		return nil, fmt.Errorf("service/auth: login %q: %w", username, err)
	}

	return s.issue(user)
}

// LoginOrRegisterGitHub handles the OAuth callback: the GitHub numeric id
// finds the existing account, or a new one named "gh-<login>" is created.
// If that name is taken (a renamed GitHub account reused a login) the
// numeric id is appended.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		return s.issue(user)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up github user %d: %w", ghUser.ID, err)
	}

	ghID := ghUser.ID
	candidates := []string{
		githubUsernamePrefix + ghUser.Login,
		githubUsernamePrefix + ghUser.Login + "-" + strconv.FormatInt(ghID, 10),
	}
	for _, name := range candidates {
		user = &model.User{Username: name, GitHubID: &ghID}
		err = s.users.CreateUser(ctx, user)
		if err == nil {
			s.logger.Info("user registered via GitHub",
				slog.String("userID", user.ID),
				slog.String("username", user.Username),
			)
			return s.issue(user)
		}
		if apperror.CodeOf(err) != apperror.CodeUsernameExists {
			break
		}
	}
	return nil, fmt.Errorf("service/auth: creating github user %d: %w", ghUser.ID, err)
}

// GetUserByID backs /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// TokenTTL is exposed for cookie lifetimes.
func (s *AuthService) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
