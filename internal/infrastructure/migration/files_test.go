package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"create stores table", "create_stores_table"},
		{"Create-Orders-Table", "create_orders_table"},
		{"ADD_WEBHOOK_EVENTS", "add_webhook_events"},
		{"add__dedup__index", "add_dedup_index"},
		{"Add Balances 2", "add_balances_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, slugify(tt.input))
		})
	}
}

func TestScaffold(t *testing.T) {
	dir := t.TempDir()

	pair, err := Scaffold(dir, "create stores table", "Connected storefronts")
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.Len(t, pair.Version, 14)
	assert.True(t, strings.HasSuffix(pair.UpPath, ".up.sql"))
	assert.True(t, strings.HasSuffix(pair.DownPath, ".down.sql"))

	upBase := strings.TrimSuffix(filepath.Base(pair.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(pair.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)

	up, err := os.ReadFile(pair.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "create stores table")
	assert.Contains(t, string(up), "Connected storefronts")
	assert.Contains(t, string(up), "UP migration")

	down, err := os.ReadFile(pair.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "rollback")
	assert.Contains(t, string(down), "DOWN migration")
}

func TestScaffold_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "db", "migrations")

	pair, err := Scaffold(nested, "init", "initial schema")
	require.NoError(t, err)
	require.NotNil(t, pair)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestAvailable(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		"000001_init_schema.up.sql",
		"000001_init_schema.down.sql",
		"000002_create_orders.up.sql",
		"000002_create_orders.down.sql",
		"README.md",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0o644))
	}

	names, err := Available(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init_schema", "000002_create_orders"}, names)
}

func TestAvailable_MissingDirectory(t *testing.T) {
	names, err := Available(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
