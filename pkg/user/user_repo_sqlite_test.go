package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakgeld/moni/internal/database"
)

func setupSqliteRepo(t *testing.T) *SqliteUserRepo {
	t.Helper()
	db, err := database.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSqliteUserRepo(db)
}

func TestSqliteUserRepo(t *testing.T) {
	t.Run("stores parent and children", func(t *testing.T) {
		// given
		repo := setupSqliteRepo(t)
		ctx := context.Background()
		parentId, err := repo.CreateUser(ctx, User{Uid: "p-1", Username: "mum@example.com", DisplayName: "Mum", Role: RoleParent, PasswordHash: "h"})
		require.NoError(t, err)

		// when
		_, err = repo.CreateUser(ctx, User{Uid: "c-1", Username: "zoe", DisplayName: "Zoe", Role: RoleChild, ParentId: parentId, PasswordHash: "h"})
		require.NoError(t, err)
		_, err = repo.CreateUser(ctx, User{Uid: "c-2", Username: "bo", DisplayName: "Bo", Role: RoleChild, ParentId: parentId, PasswordHash: "h"})
		require.NoError(t, err)

		// then
		children, err := repo.GetChildren(ctx, parentId)
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, "Bo", children[0].DisplayName)
		assert.Equal(t, parentId, children[1].ParentId)

		parent, err := repo.GetUserByUid(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, 0, parent.ParentId)
		assert.Equal(t, RoleParent, parent.Role)

		byName, err := repo.GetUserByUsername(ctx, "zoe")
		require.NoError(t, err)
		assert.Equal(t, "c-1", byName.Uid)

		byId, err := repo.GetUser(ctx, parentId)
		require.NoError(t, err)
		assert.Equal(t, "mum@example.com", byId.Username)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := setupSqliteRepo(t)

		_, err := repo.GetUserByUsername(context.Background(), "ghost")

		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("username must be unique", func(t *testing.T) {
		repo := setupSqliteRepo(t)
		ctx := context.Background()
		_, err := repo.CreateUser(ctx, User{Uid: "a", Username: "same", DisplayName: "A", Role: RoleParent, PasswordHash: "h"})
		require.NoError(t, err)

		available, err := repo.IsUsernameAvailable(ctx, "same")
		require.NoError(t, err)
		assert.False(t, available)

		_, err = repo.CreateUser(ctx, User{Uid: "b", Username: "same", DisplayName: "B", Role: RoleParent, PasswordHash: "h"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})
}
