package sqlite

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a migrated in-memory database.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	db, err := NewDB(ctx, DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	latest, err := LatestVersion()
	require.NoError(t, err)
	require.GreaterOrEqual(t, latest, 1)

	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	require.Zero(t, applied)

	version, err := db.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, latest, version)
}
