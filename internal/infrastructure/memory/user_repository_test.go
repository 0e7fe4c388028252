package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/domain/repository"
	"github.com/oksasatya/auth-api/internal/domain/repository/repotest"
)

func newUser(email string) *entity.User {
	return &entity.User{Name: "Alice", Email: email, Password: "hash", Role: entity.RoleUser, Active: true}
}

func TestCreateAndRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewUserRepository()

	u := newUser("  Alice@Example.com ")
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	got, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Empty(t, got.Password, "password hidden by default")

	got, err = repo.GetByID(ctx, u.ID, repository.WithPassword())
	require.NoError(t, err)
	assert.Equal(t, "hash", got.Password)

	err = repo.Create(ctx, newUser("alice@example.com"))
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrInvalidID)
}

func TestInactiveUsersHidden(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewUserRepository()

	u := newUser("bob@example.com")
	require.NoError(t, repo.Create(ctx, u))
	require.NoError(t, repo.Deactivate(ctx, u.ID))

	_, err := repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByEmail(ctx, u.Email)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.GetByEmail(ctx, u.Email, repository.IncludeInactive())
	require.NoError(t, err)
	assert.False(t, got.Active)

	err = repo.Create(ctx, newUser("bob@example.com"))
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail, "uniqueness spans inactive users")
}

func TestConsumePasswordResetOnlyOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewUserRepository()
	now := time.Now()

	u := newUser("carol@example.com")
	require.NoError(t, repo.Create(ctx, u))
	require.NoError(t, repo.SetPasswordReset(ctx, u.ID, "digest", now.Add(10*time.Minute)))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.ConsumePasswordReset(ctx, "digest", now, "newhash", now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	got, err := repo.GetByID(ctx, u.ID, repository.WithPassword())
	require.NoError(t, err)
	assert.Equal(t, "newhash", got.Password)
	assert.Nil(t, got.PasswordResetToken)
	assert.Nil(t, got.PasswordResetExpires)
	require.NotNil(t, got.PasswordChangedAt)
}

func TestFindByResetTokenRespectsExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewUserRepository()
	now := time.Now()

	u := newUser("dave@example.com")
	require.NoError(t, repo.Create(ctx, u))
	require.NoError(t, repo.SetPasswordReset(ctx, u.ID, "digest", now.Add(10*time.Minute)))

	_, err := repo.FindByResetToken(ctx, "digest", now)
	require.NoError(t, err)

	_, err = repo.FindByResetToken(ctx, "digest", now.Add(11*time.Minute))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.ClearPasswordReset(ctx, u.ID))
	_, err = repo.FindByResetToken(ctx, "digest", now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryContract(t *testing.T) {
	repotest.Run(t, NewUserRepository())
}
