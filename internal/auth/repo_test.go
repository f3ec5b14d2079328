package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewhub/internal/testutil"
	"reviewhub/pkg/models"
)

func newUser(username string) models.User {
	return models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
		Role:     models.RoleUser,
	}
}

func TestRepoCreateAndGet(t *testing.T) {
	repo := NewRepo(testutil.OpenDB(t))
	ctx := context.Background()

	u := newUser("alice")
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.False(t, got.Active)

	byEmail, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepoCreateUniqueViolations(t *testing.T) {
	repo := NewRepo(testutil.OpenDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("alice")))

	dupUsername := newUser("alice")
	dupUsername.Email = "other@example.com"
	assert.ErrorIs(t, repo.Create(ctx, dupUsername), ErrUsernameTaken)

	dupEmail := newUser("bob")
	dupEmail.Email = "alice@example.com"
	assert.ErrorIs(t, repo.Create(ctx, dupEmail), ErrEmailTaken)
}

func TestRepoConfirmationLifecycle(t *testing.T) {
	repo := NewRepo(testutil.OpenDB(t))
	ctx := context.Background()

	u := newUser("alice")
	require.NoError(t, repo.Create(ctx, u))

	_, _, pending, err := repo.Confirmation(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, pending)

	sentAt := time.Now().Add(-time.Minute)
	require.NoError(t, repo.SetConfirmation(ctx, u.ID, "hash-1", sentAt))

	hash, at, pending, err := repo.Confirmation(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.Equal(t, "hash-1", hash)
	assert.WithinDuration(t, sentAt.UTC(), at, time.Second)

	require.NoError(t, repo.Activate(ctx, u.ID))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Active)

	// activation clears the pending code
	_, _, pending, err = repo.Confirmation(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestRepoSetConfirmationDeactivates(t *testing.T) {
	repo := NewRepo(testutil.OpenDB(t))
	ctx := context.Background()

	u := newUser("alice")
	u.Active = true
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.SetConfirmation(ctx, u.ID, "hash", time.Now()))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Active)
}

func TestRepoListAndSearch(t *testing.T) {
	repo := NewRepo(testutil.OpenDB(t))
	ctx := context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, repo.Create(ctx, newUser(name)))
	}

	total, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	all, err := repo.List(ctx, "", 20, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Username) // ordered by username

	total, err = repo.Count(ctx, "ARO")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	hits, err := repo.List(ctx, "aro", 20, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "carol", hits[0].Username)
}

func TestRepoUpdateAndDelete(t *testing.T) {
	repo := NewRepo(testutil.OpenDB(t))
	ctx := context.Background()

	u := newUser("alice")
	require.NoError(t, repo.Create(ctx, u))
	require.NoError(t, repo.Create(ctx, newUser("bob")))

	u.Bio = "hello"
	u.Role = models.RoleModerator
	require.NoError(t, repo.Update(ctx, &u))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)
	assert.Equal(t, models.RoleModerator, got.Role)

	u.Email = "bob@example.com"
	assert.ErrorIs(t, repo.Update(ctx, &u), ErrEmailTaken)

	deleted, err := repo.DeleteByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, deleted)
}
