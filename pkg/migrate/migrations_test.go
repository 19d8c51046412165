package migrate_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/orderdesk-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestCheckoutSessionsMigrationContainsActiveIndex(t *testing.T) {
	content := readMigration(t, "*_create_checkout_sessions.sql")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS checkout_sessions",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_checkout_sessions_active",
		"WHERE is_converted = false",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestOrdersMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (total_amount >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_courier_consignment",
		"CREATE TABLE IF NOT EXISTS order_line_items",
		"CREATE TABLE IF NOT EXISTS order_status_events",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestMigrationsApplyOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	require.NoError(t, migrate.Run(ctx, sqlDB, migrate.Dialect("sqlite"), "migrations", "up"))

	insert := `INSERT INTO checkout_sessions (id, session_id, customer, cart, is_converted, last_updated_at)
VALUES (?, 'sess-1', '{}', '[]', ?, CURRENT_TIMESTAMP)`
	require.NoError(t, conn.Exec(insert, "00000000-0000-0000-0000-000000000001", false).Error)
	err = conn.Exec(insert, "00000000-0000-0000-0000-000000000002", false).Error
	require.Error(t, err, "a second active session row must violate the partial unique index")
	require.NoError(t, conn.Exec(insert, "00000000-0000-0000-0000-000000000003", true).Error,
		"converted rows do not count against the active index")

	require.NoError(t, migrate.Run(ctx, sqlDB, migrate.Dialect("sqlite"), "migrations", "reset"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "create_orders.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Courier Notes")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_courier_notes.sql"))
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", migrate.Dialect("sqlite"))
	assert.Equal(t, "postgres", migrate.Dialect("postgres"))
	assert.Equal(t, "postgres", migrate.Dialect(""))
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", pattern)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}
