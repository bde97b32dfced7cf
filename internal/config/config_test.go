package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/archivist/internal/retry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archivist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
google:
  credentials_path: /etc/archivist/sa.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, DefaultSubject, cfg.Queue.Subject)
	assert.Equal(t, DefaultStream, cfg.Queue.Stream)
	assert.Equal(t, DefaultCharThreshold, cfg.Updater.CharThreshold)
	assert.Equal(t, DefaultMinChunk, cfg.Updater.MinChunk)
	assert.Equal(t, "info", cfg.Logging.Level)

	period, err := cfg.SyncPeriod()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, period)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_MissingCredentials(t *testing.T) {
	path := writeConfig(t, "store:\n  path: test.db\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials_path")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_CREDENTIALS_PATH", "/secrets/sa.json")
	t.Setenv("ARCHIVIST_NATS_URL", "nats://queue:4222")

	path := writeConfig(t, `
google:
  credentials_path: /etc/old.json
queue:
  url: nats://localhost:4222
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/secrets/sa.json", cfg.Google.CredentialsPath)
	assert.Equal(t, "nats://queue:4222", cfg.Queue.URL)
}

func TestLoad_ExpandsEnvInYAML(t *testing.T) {
	t.Setenv("TEST_FOLDER_ID", "folder-abc")

	path := writeConfig(t, `
google:
  credentials_path: /etc/sa.json
  drive_folder_id: ${TEST_FOLDER_ID}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "folder-abc", cfg.Google.DriveFolderID)
}

func TestLoad_InvalidSyncInterval(t *testing.T) {
	path := writeConfig(t, `
google:
  credentials_path: /etc/sa.json
updater:
  sync_interval: often
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync_interval")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
google:
  credentials_path: /etc/sa.json
logging:
  level: loud
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestRetryPolicy_Parsed(t *testing.T) {
	path := writeConfig(t, `
google:
  credentials_path: /etc/sa.json
retry:
  backoff_mode: exponential
  initial: 500ms
  max: 10s
  max_retries: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	p, err := cfg.RetryPolicy()
	require.NoError(t, err)
	assert.Equal(t, retry.BackoffExponential, p.Mode)
	assert.Equal(t, 500*time.Millisecond, p.Initial)
	assert.Equal(t, 10*time.Second, p.Max)
	assert.Equal(t, 4, p.MaxRetries)
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archivist.yaml")

	require.NoError(t, Init(path, false))
	err := Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, Init(path, true))
}
