package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/auth-api/internal/domain/repository"
	"github.com/oksasatya/auth-api/internal/domain/repository/repotest"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(pgx.ErrNoRows), repository.ErrNotFound)
	assert.ErrorIs(t, classify(fmt.Errorf("scan: %w", pgx.ErrNoRows)), repository.ErrNotFound)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "23505"}), repository.ErrDuplicateEmail)
	assert.ErrorIs(t, classify(&pgconn.PgError{Code: "22P02"}), repository.ErrInvalidID)

	other := &pgconn.PgError{Code: "57014"}
	assert.Same(t, other, classify(other))
}

// TestUserRepositoryIntegration runs the adapter against a live database.
func TestUserRepositoryIntegration(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("set POSTGRES_TEST_DSN to run the postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, Migrate(dsn, "../../../db/migrations", helpers.NewDiscardLogger()))
	pool, err := NewPool(ctx, dsn, 4, 1, time.Minute)
	require.NoError(t, err)
	defer pool.Close()

	repotest.Run(t, NewUserRepository(pool))
}
