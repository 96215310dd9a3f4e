package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage/dbutil"
)

func TestDialect(t *testing.T) {
	d := NewDialect()
	assert.Equal(t, dbutil.DriverPostgres, d.DriverType())
	assert.Equal(t, "SELECT * FROM t WHERE id = $1", d.Rebind("SELECT * FROM t WHERE id = $1"))
}

func TestIsUniqueViolation(t *testing.T) {
	d := NewDialect()

	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	assert.True(t, d.IsUniqueViolation(dup))
	assert.True(t, d.IsUniqueViolation(fmt.Errorf("insert user: %w", dup)))

	assert.False(t, d.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, d.IsUniqueViolation(errors.New("boom")))
	assert.False(t, d.IsUniqueViolation(nil))
}

func TestAutoMigrate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	t.Run("runs embedded migrations", func(t *testing.T) {
		var gotDir string
		gooseUpContext = func(ctx context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
			gotDir = dir
			return nil
		}
		require.NoError(t, NewDialect().AutoMigrate(context.Background(), db))
		assert.Equal(t, "migrations", gotDir)
	})

	t.Run("wraps goose error", func(t *testing.T) {
		gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
			return errors.New("connection refused")
		}
		err := NewDialect().AutoMigrate(context.Background(), db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "goose up")
		assert.Contains(t, err.Error(), "connection refused")
	})
}
