package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tradingjournal/src/model"
)

func TestUserRepository_CreateAndFind(t *testing.T) {
	db := newSQLiteDB(t)
	repo := &UserRepository{db: db}
	ctx := context.Background()

	user := &model.User{Email: "  Trader@Example.com ", Password: "hash", Role: model.RoleUser, IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, "trader@example.com", user.Email)

	found, err := repo.FindByEmail(ctx, "TRADER@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	missing, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Create(ctx, &model.User{Email: "trader@example.com", Password: "x", Role: model.RoleUser})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "expected duplicate key, got %v", err)

	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, at))
	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(at))
}

func TestRefreshTokenRepository_Revocation(t *testing.T) {
	db := newSQLiteDB(t)
	repo := &RefreshTokenRepository{db: db}
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	for _, token := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &model.RefreshToken{Token: token, UserID: 1, ExpiresAt: expires}))
	}
	require.NoError(t, repo.Create(ctx, &model.RefreshToken{Token: "other", UserID: 2, ExpiresAt: expires}))

	revoked, err := repo.Revoke(ctx, "a", time.Now())
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = repo.Revoke(ctx, "a", time.Now())
	require.NoError(t, err)
	assert.False(t, revoked, "a revoked token cannot be revoked twice")

	count, err := repo.RevokeAllForUser(ctx, 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	other, err := repo.FindByToken(ctx, "other")
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.False(t, other.IsRevoked)

	unknown, err := repo.FindByToken(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}
