package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homevista/brokerage/internal/repository"
	apperrors "github.com/homevista/brokerage/pkg/errors"
)

func setupTestStore(t *testing.T) (*OneTimeTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return NewOneTimeTokenStore(client), mr
}

func TestOneTimeTokenStore_PutAndConsume(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	err := store.Put(ctx, repository.TokenKindPasswordReset, "tok-1", "u-42", time.Hour)
	require.NoError(t, err)

	userID, err := store.Consume(ctx, repository.TokenKindPasswordReset, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u-42", userID)
}

func TestOneTimeTokenStore_ConsumeTwice(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, repository.TokenKindEmailVerification, "tok-2", "u-7", time.Hour))

	_, err := store.Consume(ctx, repository.TokenKindEmailVerification, "tok-2")
	require.NoError(t, err)

	_, err = store.Consume(ctx, repository.TokenKindEmailVerification, "tok-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestOneTimeTokenStore_Expiry(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, repository.TokenKindPasswordReset, "tok-3", "u-9", time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, repository.TokenKindPasswordReset, "tok-3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestOneTimeTokenStore_KindsAreNamespaced(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, repository.TokenKindPasswordReset, "tok-4", "u-1", time.Hour))

	_, err := store.Consume(ctx, repository.TokenKindEmailVerification, "tok-4")
	assert.Error(t, err)
}
