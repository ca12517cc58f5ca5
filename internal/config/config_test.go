package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/layersync/internal/config"
	"github.com/agentstation/layersync/pkg/constants"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load(config.Options{EnvFiles: []string{}})
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultPortalURL, cfg.PortalURL)
	assert.Equal(t, ",", cfg.Delimiter)
	assert.Equal(t, "last-write-wins", cfg.Strategy)
	assert.Equal(t, "reject", cfg.Policy)
	assert.Equal(t, constants.DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, constants.OverwriteTimeout, cfg.OverwriteTimeout)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoadPrecedence(t *testing.T) {
	isolate(t)

	file := filepath.Join(t.TempDir(), "layersync.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
portal_url: https://gis.example.com/portal
layer_id: from-file
key_column: id
username: file-user
poll_interval: 5s
s3_region: eu-west-1
`), 0o600))

	t.Setenv("LAYERSYNC_USERNAME", "env-user")
	t.Setenv("LAYERSYNC_S3_ACCESS_KEY_ID", "AKIA")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("layer-id", "", "")
	flags.String("key-column", "", "")
	require.NoError(t, flags.Parse([]string{"--layer-id", "from-flag"}))

	cfg, err := config.Load(config.Options{File: file, Flags: flags, EnvFiles: []string{}})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.LayerID, "flags win")
	assert.Equal(t, "id", cfg.KeyColumn, "unset flag falls through to the file")
	assert.Equal(t, "env-user", cfg.Username, "env beats file")
	assert.Equal(t, "https://gis.example.com/portal", cfg.PortalURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, file, cfg.ConfigFile)

	sc := cfg.Storage()
	assert.Equal(t, "eu-west-1", sc.S3.Region)
	assert.Equal(t, "AKIA", sc.S3.AccessKeyID)
	assert.Equal(t, "env-user", cfg.Credentials().Username)
}

func TestLoadEnvFile(t *testing.T) {
	isolate(t)

	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("LAYERSYNC_API_KEY=key-123\n"), 0o600))
	t.Setenv("LAYERSYNC_API_KEY", "")
	require.NoError(t, os.Unsetenv("LAYERSYNC_API_KEY"))

	cfg, err := config.Load(config.Options{EnvFiles: []string{env}})
	require.NoError(t, err)
	assert.Equal(t, "key-123", cfg.APIKey)
	assert.Equal(t, "api_key", cfg.Credentials().Method())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := config.Load(config.Options{File: filepath.Join(t.TempDir(), "missing.yaml"), EnvFiles: []string{}})
	assert.Error(t, err)
}
