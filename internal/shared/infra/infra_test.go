package infra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danin2/Manajemen-Tugas/internal/config"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/cache"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

func TestNew_SQLiteWithMemoryCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    "file:" + filepath.Join(dir, "tugas.db") + "?cache=shared&mode=rwc",
	}

	in, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer in.Close()

	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr)
	assert.IsType(t, &cache.MemoryCache{}, in.Cache)
	assert.Nil(t, in.Avatars)
	assert.NoError(t, in.Storage.Ping(context.Background()))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), &config.Config{DatabaseDriver: "oracle"}, logging.Discard())
	assert.Error(t, err)
}

func TestNew_RedisUnreachableClosesStorage(t *testing.T) {
	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    ":memory:",
		RedisURL:       "redis://127.0.0.1:1/0",
	}
	_, err := New(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func TestEnsureSQLiteDir(t *testing.T) {
	assert.NoError(t, ensureSQLiteDir(":memory:"))
	assert.NoError(t, ensureSQLiteDir("file:tugas.db?mode=rwc"))

	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, ensureSQLiteDir("file:"+filepath.Join(dir, "x.db")+"?cache=shared"))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
