package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/sheet/internal/migration"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, migration.CurrentVersion, cfg.SchemaVersion)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: /tmp/from-file.db
addr: ":9000"
log_format: json
fetch_timeout: 5s
`), 0o644))

	t.Setenv("SHEET_ADDR", ":9100")
	t.Setenv("SHEET_TREE_BONUS_FORMULA", "floor(total / 5)")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-file.db", cfg.DBPath)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "floor(total / 5)", cfg.TreeBonusFormula)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SHEET_LOG_LEVEL", "loud")
	t.Setenv("SHEET_MAX_VALUE_BYTES", "-1")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorContains(t, err, "log_level")
	assert.ErrorContains(t, err, "max_value_bytes")
}

func TestLoadRejectsUnparsableEnv(t *testing.T) {
	t.Setenv("SHEET_FETCH_TIMEOUT", "soon")
	_, err := Load("")
	assert.ErrorContains(t, err, "parse env")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestRemoteImportDefaultsOff(t *testing.T) {
	assert.False(t, Default().RemoteImport)

	t.Setenv("SHEET_REMOTE_IMPORT", "true")
	cfg := Default()
	require.NoError(t, ParseEnv(&cfg))
	assert.True(t, cfg.RemoteImport)
}
