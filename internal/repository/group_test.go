package repository

import (
	"context"
	"testing"
	"time"

	"seniority/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	bert := createUser(t, db, "bert")

	older := &models.Group{Name: "Walkers", CreatedByUserID: ada.ID, CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, older))
	garden := &models.Group{Name: "Garden Club", CreatedByUserID: ada.ID}
	require.NoError(t, repo.Create(ctx, garden))

	t.Run("Create makes the creator owner", func(t *testing.T) {
		m, err := repo.GetMembership(ctx, garden.ID, ada.ID)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, models.GroupRoleOwner, m.Role)
		assert.Equal(t, 1, garden.MemberCount)
	})

	t.Run("AddMember is idempotent", func(t *testing.T) {
		added, err := repo.AddMember(ctx, garden.ID, bert.ID)
		require.NoError(t, err)
		assert.True(t, added)

		added, err = repo.AddMember(ctx, garden.ID, bert.ID)
		require.NoError(t, err)
		assert.False(t, added)

		g, err := repo.GetByID(ctx, garden.ID, bert.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, g.MemberCount)
		assert.True(t, g.Joined)
		require.NotNil(t, g.CreatedByUser)
		assert.Equal(t, "ada", g.CreatedByUser.Username)
	})

	t.Run("ListRecent is newest first", func(t *testing.T) {
		groups, err := repo.ListRecent(ctx, 20, 0, bert.ID)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, garden.ID, groups[0].ID)
		assert.True(t, groups[0].Joined)
		assert.False(t, groups[1].Joined)
		assert.Equal(t, 1, groups[1].MemberCount)

		groups, err = repo.ListRecent(ctx, 1, 1, 0)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, older.ID, groups[0].ID)
	})

	t.Run("ListForUser and ListMembers", func(t *testing.T) {
		mine, err := repo.ListForUser(ctx, bert.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, garden.ID, mine[0].ID)

		members, err := repo.ListMembers(ctx, garden.ID, 10, 0)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.Equal(t, ada.ID, members[0].UserID)
		assert.Equal(t, "bert", members[1].User.Username)
	})

	t.Run("RemoveMember", func(t *testing.T) {
		removed, err := repo.RemoveMember(ctx, garden.ID, bert.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		m, err := repo.GetMembership(ctx, garden.ID, bert.ID)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("GetByID missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999, 0)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeNotFound, appErr.Code)
	})
}
