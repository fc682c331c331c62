package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/homevista/brokerage/internal/auth"
	"github.com/homevista/brokerage/internal/domain"
	"github.com/homevista/brokerage/internal/repository"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute, 24*time.Hour, 30*24*time.Hour)
}

type authFixture struct {
	userRepo  *mockUserRepository
	tokenRepo *mockRefreshTokenRepository
	oneTime   *mockOneTimeTokenStore
	publisher *mockPublisher
	svc       *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		userRepo:  &mockUserRepository{},
		tokenRepo: &mockRefreshTokenRepository{},
		oneTime:   &mockOneTimeTokenStore{},
		publisher: &mockPublisher{},
	}
	f.svc = NewAuthService(f.userRepo, f.tokenRepo, f.oneTime, newTestJWTManager(), f.publisher, newTestLogger())
	return f
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func activeUser(password string) *domain.User {
	return &domain.User{
		ID:            "u-1",
		Email:         "ana@example.com",
		Username:      "ana",
		PasswordHash:  hashForTest(password),
		FirstName:     "Ana",
		LastName:      "Silva",
		Role:          domain.RoleAgent,
		IsActive:      true,
		EmailVerified: true,
	}
}

// --- Register ---

func TestRegister_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	f.oneTime.On("Put", ctx, repository.TokenKindEmailVerification, mock.AnythingOfType("string"), mock.AnythingOfType("string"), emailVerificationTTL).Return(nil)
	f.publisher.On("PublishUserRegistered", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, verifyToken, err := f.svc.Register(ctx, RegisterInput{
		Email:     "ana@example.com",
		Username:  "ana",
		Password:  "SecurePass123",
		FirstName: "Ana",
		LastName:  "Silva",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleClient, user.Role)
	assert.False(t, user.EmailVerified)
	assert.NotEmpty(t, verifyToken)
	assert.NotEqual(t, "SecurePass123", user.PasswordHash)
	f.userRepo.AssertExpectations(t)
	f.oneTime.AssertExpectations(t)
}

func TestRegister_NormalizesRole(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	f.oneTime.On("Put", ctx, repository.TokenKindEmailVerification, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("PublishUserRegistered", ctx, mock.Anything).Return(nil)

	user, _, err := f.svc.Register(ctx, RegisterInput{
		Email:     "bob@example.com",
		Username:  "bob",
		Password:  "SecurePass123",
		FirstName: "Bob",
		LastName:  "Reis",
		Role:      "Agent",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, user.Role)
}

func TestRegister_RejectsPrivilegedRole(t *testing.T) {
	f := newAuthFixture()

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		Email:     "eve@example.com",
		Username:  "eve",
		Password:  "SecurePass123",
		FirstName: "Eve",
		LastName:  "Costa",
		Role:      "admin",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestRegister_WeakPassword(t *testing.T) {
	f := newAuthFixture()

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		Email:     "ana@example.com",
		Username:  "ana",
		Password:  "short",
		FirstName: "Ana",
		LastName:  "Silva",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")

	f.userRepo.On("GetByIdentifier", ctx, "ana").Return(user, nil)
	f.tokenRepo.On("Create", ctx, "u-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	got, tokens, err := f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "SecurePass123"})

	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")

	f.userRepo.On("GetByIdentifier", ctx, "ana").Return(user, nil)
	f.userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	_, _, err := f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "WrongPass123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.Equal(t, 1, user.FailedLogins)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")
	user.FailedLogins = maxFailedLogins - 1

	f.userRepo.On("GetByIdentifier", ctx, "ana").Return(user, nil)
	f.userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	_, _, err := f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "WrongPass123"})
	require.Error(t, err)
	require.NotNil(t, user.LockedUntil)

	// The account now rejects even the correct password.
	_, _, err = f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "SecurePass123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAccountLocked))
}

func TestLogin_LockExpires(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")
	past := time.Now().UTC().Add(-time.Minute)
	user.LockedUntil = &past

	f.userRepo.On("GetByIdentifier", ctx, "ana").Return(user, nil)
	f.userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	f.tokenRepo.On("Create", ctx, "u-1", mock.Anything, mock.Anything).Return(nil)

	_, tokens, err := f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "SecurePass123"})

	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.Nil(t, user.LockedUntil)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")
	user.EmailVerified = false

	f.userRepo.On("GetByIdentifier", ctx, "ana").Return(user, nil)

	_, _, err := f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "SecurePass123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrEmailNotVerified))
}

func TestLogin_UnknownIdentifier(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.userRepo.On("GetByIdentifier", ctx, "ghost").Return(nil, apperrors.NotFound("user", "ghost"))

	_, _, err := f.svc.Login(ctx, LoginInput{Identifier: "ghost", Password: "SecurePass123"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

// --- Refresh ---

func TestRefreshToken_RotatesToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")

	f.userRepo.On("GetByIdentifier", ctx, "ana").Return(user, nil)
	f.userRepo.On("GetByID", ctx, "u-1").Return(user, nil)
	f.tokenRepo.On("Create", ctx, "u-1", mock.Anything, mock.Anything).Return(nil)

	_, tokens, err := f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "SecurePass123"})
	require.NoError(t, err)

	now := time.Now().UTC()
	stored := &domain.RefreshToken{
		ID:        "rt-1",
		UserID:    "u-1",
		TokenHash: hashToken(tokens.RefreshToken),
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
	}
	f.tokenRepo.On("GetByHash", ctx, hashToken(tokens.RefreshToken)).Return(stored, nil)
	f.tokenRepo.On("Revoke", ctx, hashToken(tokens.RefreshToken)).Return(nil)

	rotated, err := f.svc.RefreshToken(ctx, tokens.RefreshToken)

	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	f.tokenRepo.AssertCalled(t, "Revoke", ctx, hashToken(tokens.RefreshToken))
}

func TestRefreshToken_RevokedToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")

	f.userRepo.On("GetByIdentifier", ctx, "ana").Return(user, nil)
	f.tokenRepo.On("Create", ctx, "u-1", mock.Anything, mock.Anything).Return(nil)

	_, tokens, err := f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "SecurePass123"})
	require.NoError(t, err)

	now := time.Now().UTC()
	revokedAt := now
	stored := &domain.RefreshToken{
		UserID:    "u-1",
		TokenHash: hashToken(tokens.RefreshToken),
		ExpiresAt: now.Add(24 * time.Hour),
		CreatedAt: now,
		RevokedAt: &revokedAt,
	}
	f.tokenRepo.On("GetByHash", ctx, hashToken(tokens.RefreshToken)).Return(stored, nil)

	_, err = f.svc.RefreshToken(ctx, tokens.RefreshToken)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestRefreshToken_Garbage(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.RefreshToken(context.Background(), "not-a-jwt")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

// --- Logout ---

func TestLogout_Idempotent(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.tokenRepo.On("Revoke", ctx, hashToken("some-token")).Return(apperrors.NotFound("refresh token", "x"))

	assert.NoError(t, f.svc.Logout(ctx, "some-token"))
	assert.NoError(t, f.svc.Logout(ctx, ""))
}

// --- Password reset ---

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.userRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.NotFound("user", "ghost@example.com"))

	token, err := f.svc.ForgotPassword(ctx, "ghost@example.com")

	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestResetPassword_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("OldPassword123")
	user.FailedLogins = 3

	f.oneTime.On("Consume", ctx, repository.TokenKindPasswordReset, "reset-tok").Return("u-1", nil)
	f.userRepo.On("GetByID", ctx, "u-1").Return(user, nil)
	f.userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	f.tokenRepo.On("RevokeByUserID", ctx, "u-1").Return(nil)

	err := f.svc.ResetPassword(ctx, "reset-tok", "NewPassword123")

	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("NewPassword123")))
	assert.Zero(t, user.FailedLogins)
	f.tokenRepo.AssertCalled(t, "RevokeByUserID", ctx, "u-1")
}

func TestResetPassword_BadToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.oneTime.On("Consume", ctx, repository.TokenKindPasswordReset, "bad").Return("", apperrors.Unauthorized("unknown token"))

	err := f.svc.ResetPassword(ctx, "bad", "NewPassword123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("RightPass123")

	f.userRepo.On("GetByID", ctx, "u-1").Return(user, nil)

	err := f.svc.ChangePassword(ctx, "u-1", "WrongPass123", "NewPassword123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

// --- Email verification ---

func TestVerifyEmail_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")
	user.EmailVerified = false

	f.oneTime.On("Consume", ctx, repository.TokenKindEmailVerification, "verify-tok").Return("u-1", nil)
	f.userRepo.On("GetByID", ctx, "u-1").Return(user, nil)
	f.userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	require.NoError(t, f.svc.VerifyEmail(ctx, "verify-tok"))
	assert.True(t, user.EmailVerified)
}

// --- Availability checks ---

func TestCheckEmailAvailable(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.userRepo.On("GetByEmail", ctx, "free@example.com").Return(nil, apperrors.NotFound("user", "free@example.com"))
	f.userRepo.On("GetByEmail", ctx, "taken@example.com").Return(activeUser("x"), nil)

	free, err := f.svc.CheckEmailAvailable(ctx, "free@example.com")
	require.NoError(t, err)
	assert.True(t, free)

	taken, err := f.svc.CheckEmailAvailable(ctx, "taken@example.com")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestCheckUsernameAvailable(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.userRepo.On("GetByUsername", ctx, "free").Return(nil, apperrors.NotFound("user", "free"))

	free, err := f.svc.CheckUsernameAvailable(ctx, "free")
	require.NoError(t, err)
	assert.True(t, free)
}

// --- Session validation ---

func TestValidateSession(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := activeUser("SecurePass123")

	f.userRepo.On("GetByIdentifier", ctx, "ana").Return(user, nil)
	f.userRepo.On("GetByID", ctx, "u-1").Return(user, nil)
	f.tokenRepo.On("Create", ctx, "u-1", mock.Anything, mock.Anything).Return(nil)

	_, tokens, err := f.svc.Login(ctx, LoginInput{Identifier: "ana", Password: "SecurePass123"})
	require.NoError(t, err)

	got, err := f.svc.ValidateSession(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	_, err = f.svc.ValidateSession(ctx, "garbage")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}
