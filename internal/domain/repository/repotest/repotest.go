// Package repotest holds a behavioural suite every UserRepository adapter must pass.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/domain/repository"
)

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@example.com", prefix, time.Now().UnixNano())
}

func seed(t *testing.T, repo repository.UserRepository, prefix string) *entity.User {
	t.Helper()
	u := &entity.User{
		Name:     "Repo Test",
		Email:    uniqueEmail(prefix),
		Photo:    entity.DefaultPhoto,
		Role:     entity.RoleUser,
		Password: "$2a$04$placeholderhash",
		Active:   true,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

// Run exercises repo against the UserRepository contract. Fixtures use unique
// emails so the suite can share a database with other data.
func Run(t *testing.T, repo repository.UserRepository) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		u := seed(t, repo, "lookup")

		byID, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, byID.Email)
		assert.Equal(t, entity.RoleUser, byID.Role)
		assert.Empty(t, byID.Password)

		byEmail, err := repo.GetByEmail(ctx, u.Email, repository.WithPassword())
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
		assert.NotEmpty(t, byEmail.Password)
	})

	t.Run("duplicate email", func(t *testing.T) {
		u := seed(t, repo, "dup")
		dup := &entity.User{Name: "Other", Email: u.Email, Role: entity.RoleUser, Password: "x", Active: true}
		assert.ErrorIs(t, repo.Create(ctx, dup), repository.ErrDuplicateEmail)
	})

	t.Run("missing and malformed ids", func(t *testing.T) {
		_, err := repo.GetByEmail(ctx, uniqueEmail("nobody"))
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = repo.GetByID(ctx, "definitely-not-an-id")
		assert.ErrorIs(t, err, repository.ErrInvalidID)
	})

	t.Run("reset ticket lifecycle", func(t *testing.T) {
		u := seed(t, repo, "reset")
		now := time.Now().UTC().Truncate(time.Millisecond)
		digest := fmt.Sprintf("digest-%d", now.UnixNano())

		require.NoError(t, repo.SetPasswordReset(ctx, u.ID, digest, now.Add(10*time.Minute)))

		found, err := repo.FindByResetToken(ctx, digest, now)
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)

		_, err = repo.FindByResetToken(ctx, digest, now.Add(10*time.Minute))
		assert.ErrorIs(t, err, repository.ErrNotFound, "expiry is exclusive")

		changed := entity.PasswordChangeTime(now)
		consumed, err := repo.ConsumePasswordReset(ctx, digest, now, "$2a$04$newhash", changed)
		require.NoError(t, err)
		assert.Equal(t, u.ID, consumed.ID)

		_, err = repo.ConsumePasswordReset(ctx, digest, now, "$2a$04$again", changed)
		assert.ErrorIs(t, err, repository.ErrNotFound, "ticket is single use")

		got, err := repo.GetByID(ctx, u.ID, repository.WithPassword())
		require.NoError(t, err)
		assert.Equal(t, "$2a$04$newhash", got.Password)
		assert.Nil(t, got.PasswordResetToken)
		assert.Nil(t, got.PasswordResetExpires)
		require.NotNil(t, got.PasswordChangedAt)
		assert.Equal(t, changed.Unix(), got.PasswordChangedAt.Unix())
	})

	t.Run("concurrent consume has one winner", func(t *testing.T) {
		u := seed(t, repo, "race")
		now := time.Now().UTC()
		digest := fmt.Sprintf("race-%d", now.UnixNano())
		require.NoError(t, repo.SetPasswordReset(ctx, u.ID, digest, now.Add(time.Minute)))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.ConsumePasswordReset(ctx, digest, now, "h", now); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("clear reset ticket", func(t *testing.T) {
		u := seed(t, repo, "clear")
		now := time.Now().UTC()
		digest := fmt.Sprintf("clear-%d", now.UnixNano())
		require.NoError(t, repo.SetPasswordReset(ctx, u.ID, digest, now.Add(time.Minute)))
		require.NoError(t, repo.ClearPasswordReset(ctx, u.ID))

		_, err := repo.FindByResetToken(ctx, digest, now)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update password and photo", func(t *testing.T) {
		u := seed(t, repo, "update")
		changed := time.Now().UTC().Add(-time.Second)
		require.NoError(t, repo.UpdatePassword(ctx, u.ID, "$2a$04$updated", changed))
		require.NoError(t, repo.UpdatePhoto(ctx, u.ID, "https://cdn.example.com/u.jpg"))

		got, err := repo.GetByID(ctx, u.ID, repository.WithPassword())
		require.NoError(t, err)
		assert.Equal(t, "$2a$04$updated", got.Password)
		assert.Equal(t, "https://cdn.example.com/u.jpg", got.Photo)
		require.NotNil(t, got.PasswordChangedAt)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}
