package database

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/squidcoin/internal/config"
)

func TestOpenAndMigrate_SQLite(t *testing.T) {
	ctx := context.Background()

	res, err := OpenAndMigrate(ctx, config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Database.Close() })

	require.NotNil(t, res.Repos.User)
	require.NotNil(t, res.Repos.Transaction)
	require.NotNil(t, res.Repos.File)

	version, err := res.Database.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.LatestVersion, version)
	assert.NoError(t, res.Database.Health(ctx))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "mysql"}, zerolog.Nop())
	assert.Error(t, err)
}
