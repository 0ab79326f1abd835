package calygo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigWritesDefaults(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "calygo", "calygo.conf")

	conf, err := LoadConfig(confFile)
	require.NoError(t, err)

	_, err = os.Stat(confFile)
	require.NoError(t, err, "default conf file should be created")

	assert.Equal(t, DefaultDatabaseURL, conf.DatabaseURL)
	assert.Equal(t, DefaultServerURL, conf.ServerURL)
	assert.Equal(t, 15*time.Second, conf.ProbeInterval)
	assert.Equal(t, 10*time.Second, conf.ReplayTimeout)
	assert.Zero(t, conf.PompierID)
}

func TestLoadConfigPrecedence(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "calygo.conf")
	require.NoError(t, os.WriteFile(confFile, []byte(
		"CALYGO_SERVER_URL=http://file:9000\nCALYGO_POMPIER_ID=7\nCALYGO_LOG_LEVEL=INFO\n",
	), 0o644))
	t.Setenv(KeyServerURL, "http://env:9001")

	conf, err := LoadConfig(confFile)
	require.NoError(t, err)

	assert.Equal(t, "http://env:9001", conf.ServerURL, "env wins over file")
	assert.Equal(t, 7, conf.PompierID, "file wins over default")
	assert.Equal(t, "INFO", conf.LogLevel)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	confFile := filepath.Join(t.TempDir(), "calygo.conf")
	require.NoError(t, os.WriteFile(confFile, []byte("CALYGO_POMPIER_ID=abc\n"), 0o644))

	_, err := LoadConfig(confFile)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(confFile, []byte("CALYGO_REPLAY_TIMEOUT=soon\n"), 0o644))
	_, err = LoadConfig(confFile)
	require.Error(t, err)
}

func TestOptimizedRoute(t *testing.T) {
	assert.Equal(t, "[3,1,2]", TourneeRecord{AddressIDs: []int{3, 1, 2}}.OptimizedRoute())
	assert.Equal(t, "[]", TourneeRecord{}.OptimizedRoute())
}
