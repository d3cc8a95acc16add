package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/auth"
	"github.com/spec-kit/feedback-service/internal/config"
	"github.com/spec-kit/feedback-service/internal/domain"
	"github.com/spec-kit/feedback-service/internal/store"
	apperrors "github.com/spec-kit/feedback-service/pkg/util"
)

// AuthService handles credential checks and token issuance.
type AuthService struct {
	store      *store.Store
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates an auth service from the runtime config.
func NewAuthService(s *store.Store, cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:      s,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     logger,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (a *AuthService) TokenManager() *auth.TokenManager {
	return a.tokens
}

// LoginResult carries the issued token and the authenticated account.
type LoginResult struct {
	Token     string      `json:"access_token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

// Login verifies a username/password pair and issues a signed token.
// Unknown usernames and wrong passwords produce the same error.
func (a *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, apperrors.NewValidationError("username and password required", nil)
	}

	user, found := a.store.GetUserByUsername(username)
	if !found {
		return LoginResult{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return LoginResult{}, apperrors.NewUnauthorized("account deactivated")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := a.tokens.GenerateToken(user)
	if err != nil {
		return LoginResult{}, apperrors.NewInternalError(err)
	}

	a.store.LogAction(store.LogActionInput{
		UserID:     user.ID,
		Action:     "login",
		EntityType: "user",
		EntityID:   &user.ID,
	})
	a.logger.Info("user authenticated",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))

	return LoginResult{Token: token, TokenType: "bearer", ExpiresAt: expiresAt, User: user}, nil
}

// ChangePassword rotates an account's password after verifying the current
// one.
func (a *AuthService) ChangePassword(ctx context.Context, userID int64, current, updated string) error {
	if len(updated) < 6 {
		return apperrors.NewValidationError("new password must be at least 6 characters", nil)
	}
	user, found := a.store.GetUser(userID)
	if !found {
		return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
	}
	if err := auth.ComparePassword(user.PasswordHash, current); err != nil {
		return apperrors.NewUnauthorized("current password incorrect")
	}

	hash, err := auth.HashPassword(updated, a.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if _, err := a.store.UpdateUser(userID, store.UserPatch{PasswordHash: &hash}); err != nil {
		return err
	}

	a.store.LogAction(store.LogActionInput{
		UserID:     userID,
		Action:     "password_changed",
		EntityType: "user",
		EntityID:   &userID,
	})
	return nil
}
