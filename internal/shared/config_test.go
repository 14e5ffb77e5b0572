package shared

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultClientConfig(t *testing.T) {
	c := DefaultClientConfig()
	assert.Equal(t, "http://127.0.0.1:5000", c.ServerURL)
	assert.Equal(t, 20, c.TimeoutSeconds)
	assert.Equal(t, 3, c.Retries)
}

func TestClientConfigRoundTripAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctl.json")
	require.NoError(t, SaveClientConfig(path, &ClientConfig{ServerURL: "http://mon:5000", Retries: -4}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	c, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://mon:5000", c.ServerURL)
	assert.Equal(t, 20, c.TimeoutSeconds)
	assert.Equal(t, 0, c.Retries)
}

func TestLoadClientConfigMissing(t *testing.T) {
	_, err := LoadClientConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
