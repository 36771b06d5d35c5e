package persistence

import (
	"context"
	"io/fs"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	content, err := fs.ReadFile(migrationsFS, migrationsDir+"/"+entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- +goose Up")
	assert.Contains(t, string(content), "-- +goose Down")
}

func TestRunMigrations_WithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestPostgres_WithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.ErrorIs(t, pg.Ping(context.Background()), ErrNotConfigured)
	assert.NotPanics(t, pg.Close)
}

func TestRedis(t *testing.T) {
	ctx := context.Background()

	unconfigured := NewRedis(ctx, config.RedisConfig{}, zap.NewNop())
	assert.Nil(t, unconfigured.Client)
	assert.ErrorIs(t, unconfigured.Ping(ctx), ErrNotConfigured)

	mr := miniredis.RunT(t)
	r := NewRedis(ctx, config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	defer r.Close()
	require.NotNil(t, r.Client)
	assert.NoError(t, r.Ping(ctx))
}
