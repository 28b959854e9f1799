/**
 * @description
 * Account and admin use cases: registration, login, API key management and the
 * admin panel actions. Passwords are stored as bcrypt hashes.
 *
 * @dependencies
 * - golang.org/x/crypto/bcrypt: Password hashing.
 * - crypto/rand, encoding/hex: API key generation.
 */

package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ReyGenteng/galaxy/internal/domain"
	"github.com/ReyGenteng/galaxy/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	apiKeyBytes     = 32
	dashboardLimit  = 10
	bcryptCostLevel = 10
)

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCostLevel)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "component", "accounts", "user_id", user.ID)
	return user, nil
}

// Login checks credentials. With adminOnly set, only admin accounts are considered.
func (s *Service) Login(ctx context.Context, email, password string, adminOnly bool) (*domain.User, error) {
	notFound := ErrUserNotFound
	if adminOnly {
		notFound = ErrAdminNotFound
	}

	user, err := s.repo.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if adminOnly && !user.IsAdmin {
		return nil, notFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

// CurrentUser loads the user behind a session.
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdmin seeds the configured admin account if it does not exist yet.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return false, ErrInvalidRequest
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCostLevel)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.EnsureAdmin(ctx, &domain.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		IsAdmin:      true,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if created {
		s.logger.Info("admin account created", "component", "accounts", "username", username)
	}
	return created, nil
}

func newAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// GenerateAPIKey issues a new unverified key for the user.
func (s *Service) GenerateAPIKey(ctx context.Context, userID int64) (*domain.APIKey, error) {
	token, err := newAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	key, err := s.repo.CreateAPIKey(ctx, userID, token)
	if err != nil {
		return nil, fmt.Errorf("store api key: %w", err)
	}
	s.logger.Info("api key generated", "component", "accounts", "user_id", userID, "api_key_id", key.ID)
	return key, nil
}

func (s *Service) ListAPIKeys(ctx context.Context, userID int64) ([]domain.APIKey, error) {
	return s.repo.ListAPIKeysByUser(ctx, userID)
}

// Dashboard gathers balance, recent activity and the first verified key for a user.
func (s *Service) Dashboard(ctx context.Context, userID int64) (*domain.Dashboard, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	txns, err := s.repo.ListTransactionsByUser(ctx, userID, dashboardLimit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	withdrawals, err := s.repo.ListWithdrawalsByUser(ctx, userID, dashboardLimit)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}

	dashboard := &domain.Dashboard{
		User:         *user,
		Saldo:        user.Saldo,
		Transactions: txns,
		Withdrawals:  withdrawals,
	}
	key, err := s.repo.FindVerifiedAPIKeyByUser(ctx, userID)
	switch {
	case err == nil:
		dashboard.APIKey = &key.Key
	case errors.Is(err, store.ErrAPIKeyNotFound):
	default:
		return nil, fmt.Errorf("find verified api key: %w", err)
	}
	return dashboard, nil
}

func (s *Service) AdminListUsers(ctx context.Context) ([]domain.UserWithKey, error) {
	return s.repo.ListNonAdminUsers(ctx)
}

// AdminVerifyAPIKey marks every key of the user as verified.
func (s *Service) AdminVerifyAPIKey(ctx context.Context, userID int64) error {
	n, err := s.repo.VerifyAPIKeysForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("verify api keys: %w", err)
	}
	s.logger.Info("api keys verified", "component", "admin", "user_id", userID, "count", n)
	return nil
}

// AdminDeleteUser removes a user and everything they own. Admins cannot delete themselves.
func (s *Service) AdminDeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return ErrCannotDeleteSelf
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("user deleted", "component", "admin", "user_id", userID, "actor_id", actorID)
	return nil
}
