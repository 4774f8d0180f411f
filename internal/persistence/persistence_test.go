package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MohamadAlaskari/EventHub/internal/config"
	"github.com/MohamadAlaskari/EventHub/internal/repository"
)

func TestNewSessionStore_MemoryWithoutAddr(t *testing.T) {
	store, r := NewSessionStore(config.RedisConfig{}, zaptest.NewLogger(t))
	assert.Nil(t, r)
	_, ok := store.(*repository.MemorySessionStore)
	assert.True(t, ok)
	assert.Error(t, r.Ping(context.Background()))
}

func TestNewSessionStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	store, r := NewSessionStore(config.RedisConfig{Addr: mr.Addr()}, zaptest.NewLogger(t))
	require.NotNil(t, r)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))
	require.NoError(t, store.Set(ctx, "u1", "tok", time.Minute))
	assert.True(t, mr.Exists(repository.SessionKey("u1")))
}

func TestNewPostgres_RequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrMissingDSN)

	var p *Postgres
	assert.Error(t, p.Ping(context.Background()))
	assert.Nil(t, p.PoolHandle())
}

func TestRunMigrations_SkipsWithoutPool(t *testing.T) {
	require.NoError(t, RunMigrations(context.Background(), nil, zaptest.NewLogger(t)))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_create_users.sql", entries[0].Name())
}
