package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/homevista/brokerage/internal/auth"
	"github.com/homevista/brokerage/internal/domain"
	"github.com/homevista/brokerage/internal/repository"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// Account lockout policy.
const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// One-time token lifetimes.
const (
	passwordResetTTL     = 1 * time.Hour
	emailVerificationTTL = 24 * time.Hour
)

// UserEventPublisher publishes user lifecycle events.
type UserEventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
}

// AuthService implements registration, login, and token lifecycle logic.
type AuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	oneTimeTokens    repository.OneTimeTokenStore
	jwtManager       *auth.JWTManager
	publisher        UserEventPublisher
	logger           *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	oneTimeTokens repository.OneTimeTokenStore,
	jwtManager *auth.JWTManager,
	publisher UserEventPublisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		oneTimeTokens:    oneTimeTokens,
		jwtManager:       jwtManager,
		publisher:        publisher,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
}

// LoginInput holds the parameters for user login. Identifier accepts either an
// email address or a username.
type LoginInput struct {
	Identifier string
	Password   string
	RememberMe bool
}

// --- Operations ---

// Register creates a new user account and issues an email verification token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	if input.Username == "" {
		return nil, "", apperrors.InvalidInput("username is required")
	}
	if input.FirstName == "" {
		return nil, "", apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, "", apperrors.InvalidInput("last name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, "", err
	}

	role := domain.RoleClient
	if input.Role != "" {
		role = domain.NormalizeRole(input.Role)
		if !domain.IsValidRole(role) {
			return nil, "", apperrors.InvalidInput(fmt.Sprintf("invalid role %q", input.Role))
		}
	}
	// Privileged roles are granted by an admin, never self-assigned.
	if role == domain.RoleAdmin || role == domain.RoleSuperAdmin {
		return nil, "", apperrors.Forbidden("cannot self-register a privileged role")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: string(hashedPassword),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	verifyToken, err := s.issueOneTimeToken(ctx, repository.TokenKindEmailVerification, user.ID, emailVerificationTTL)
	if err != nil {
		return nil, "", fmt.Errorf("issue verification token: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.publisher.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("role", user.Role),
	)

	return user, verifyToken, nil
}

// Login authenticates a user by email or username, returning the user and a
// token pair. Repeated failures lock the account.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	if input.Identifier == "" {
		return nil, nil, apperrors.InvalidInput("email or username is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.userRepo.GetByIdentifier(ctx, input.Identifier)
	if err != nil {
		return nil, nil, apperrors.Unauthorized("invalid credentials")
	}

	if !user.IsActive {
		return nil, nil, apperrors.Unauthorized("account is deactivated")
	}

	now := s.now()
	if user.Locked(now) {
		return nil, nil, apperrors.AccountLocked("account is temporarily locked, try again later")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.recordFailedLogin(ctx, user, now)
		return nil, nil, apperrors.Unauthorized("invalid credentials")
	}

	if !user.EmailVerified {
		return nil, nil, apperrors.EmailNotVerified("email address has not been verified")
	}

	// Successful login clears any accumulated failures.
	if user.FailedLogins > 0 || user.LockedUntil != nil {
		user.FailedLogins = 0
		user.LockedUntil = nil
		user.UpdatedAt = now
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "failed to reset login failures",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	tokens, err := s.generateTokenPair(ctx, user, input.RememberMe)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.Bool("remember_me", input.RememberMe),
	)

	return user, tokens, nil
}

// recordFailedLogin bumps the failure counter and locks the account when the
// threshold is reached.
func (s *AuthService) recordFailedLogin(ctx context.Context, user *domain.User, now time.Time) {
	user.FailedLogins++
	if user.FailedLogins >= maxFailedLogins {
		lockedUntil := now.Add(lockoutDuration)
		user.LockedUntil = &lockedUntil
		user.FailedLogins = 0
		s.logger.WarnContext(ctx, "account locked after repeated failures",
			slog.String("user_id", user.ID),
		)
	}
	user.UpdatedAt = now

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to record login failure",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// RefreshToken validates a refresh token and rotates it, returning a new pair.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.InvalidInput("refresh token is required")
	}

	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired refresh token")
	}

	tokenHash := hashToken(refreshToken)
	storedToken, err := s.refreshTokenRepo.GetByHash(ctx, tokenHash)
	if err != nil {
		return nil, apperrors.Unauthorized("refresh token not found")
	}

	if storedToken.RevokedAt != nil {
		return nil, apperrors.Unauthorized("refresh token has been revoked")
	}

	if s.now().After(storedToken.ExpiresAt) {
		return nil, apperrors.Unauthorized("refresh token has expired")
	}

	// Rotate: the old token is revoked before the new pair is issued.
	if err := s.refreshTokenRepo.Revoke(ctx, tokenHash); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke old refresh token",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user for token refresh: %w", err)
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is deactivated")
	}

	// A rotated token keeps the lifetime class it was issued with.
	rememberMe := storedToken.ExpiresAt.Sub(storedToken.CreatedAt) > s.jwtManager.RefreshExpiry(false)

	tokens, err := s.generateTokenPair(ctx, user, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return tokens, nil
}

// Logout revokes the given refresh token. Unknown tokens are ignored so logout
// is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.refreshTokenRepo.Revoke(ctx, hashToken(refreshToken)); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

// ValidateSession validates an access token and returns the current user.
func (s *AuthService) ValidateSession(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired access token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("session user no longer exists")
	}

	if !user.IsActive {
		return nil, apperrors.Unauthorized("account is deactivated")
	}

	return user, nil
}

// ForgotPassword issues a single-use password reset token. The response never
// reveals whether the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", apperrors.InvalidInput("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.InfoContext(ctx, "password reset requested for unknown email",
			slog.String("email", email),
		)
		return "", nil
	}

	token, err := s.issueOneTimeToken(ctx, repository.TokenKindPasswordReset, user.ID, passwordResetTTL)
	if err != nil {
		return "", fmt.Errorf("issue reset token: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
	)

	return token, nil
}

// ResetPassword redeems a reset token and sets a new password. All refresh
// tokens for the user are revoked.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperrors.InvalidInput("reset token is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	userID, err := s.oneTimeTokens.Consume(ctx, repository.TokenKindPasswordReset, token)
	if err != nil {
		return apperrors.Unauthorized("invalid or expired reset token")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password reset: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	user.FailedLogins = 0
	user.LockedUntil = nil
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if err := s.refreshTokenRepo.RevokeByUserID(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens after password reset",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// ChangePassword lets an authenticated user change their password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	// Force re-login everywhere.
	if err := s.refreshTokenRepo.RevokeByUserID(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens after password change",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// VerifyEmail redeems an email verification token and marks the account as
// verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.InvalidInput("verification token is required")
	}

	userID, err := s.oneTimeTokens.Consume(ctx, repository.TokenKindEmailVerification, token)
	if err != nil {
		return apperrors.Unauthorized("invalid or expired verification token")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for email verification: %w", err)
	}

	if user.EmailVerified {
		return nil
	}

	user.EmailVerified = true
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	s.logger.InfoContext(ctx, "email verified",
		slog.String("user_id", user.ID),
	)

	return nil
}

// CheckEmailAvailable reports whether the email is free to register.
func (s *AuthService) CheckEmailAvailable(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, apperrors.InvalidInput("email is required")
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return false, nil
}

// CheckUsernameAvailable reports whether the username is free to register.
func (s *AuthService) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, apperrors.InvalidInput("username is required")
	}

	_, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("check username: %w", err)
	}
	return false, nil
}

// GetProfile retrieves a user by their ID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// --- Helpers ---

// generateTokenPair creates an access/refresh token pair and stores the
// refresh token hash.
func (s *AuthService) generateTokenPair(ctx context.Context, user *domain.User, rememberMe bool) (*domain.TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.jwtManager.RefreshExpiry(rememberMe))
	if err := s.refreshTokenRepo.Create(ctx, user.ID, hashToken(refreshToken), expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// issueOneTimeToken generates an opaque token and stores it with a TTL.
func (s *AuthService) issueOneTimeToken(ctx context.Context, kind repository.OneTimeTokenKind, userID string, ttl time.Duration) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.oneTimeTokens.Put(ctx, kind, token, userID, ttl); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks that the password meets minimum complexity
// requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
