package refresh_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/layersync/cmd/layersync/cmd/refresh"
	"github.com/agentstation/layersync/internal/appcontext"
	"github.com/agentstation/layersync/internal/config"
	"github.com/agentstation/layersync/pkg/constants"
)

func TestRefreshDryRun(t *testing.T) {
	dir := t.TempDir()
	b1 := filepath.Join(dir, "b1.csv")
	b2 := filepath.Join(dir, "b2.csv")
	require.NoError(t, os.WriteFile(b1, []byte("id,name\n1,a\n2,b\n"), 0o644))
	require.NoError(t, os.WriteFile(b2, []byte("id,name\n2,B\n"), 0o644))
	out := t.TempDir()

	app := &appcontext.Mock{
		SettingsValue: &config.Config{
			Delimiter:  ",",
			KeyColumn:  "id",
			OutputDir:  out,
			OutputName: "Cities.csv",
		},
		Format: "json",
	}

	cmd := refresh.NewCommand(app)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--dry-run", b1, b2})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var report map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	assert.Equal(t, true, report["dry_run"])
	assert.Equal(t, filepath.Join(out, "Cities.csv"), report["output_path"])

	data, err := os.ReadFile(filepath.Join(out, "Cities.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,a\n2,B\n", string(data))
}

func TestOffline(t *testing.T) {
	withCreds := &config.Config{LayerID: "layer1", Username: "alice", Password: "secret"}
	assert.False(t, refresh.Offline(withCreds, false))
	assert.False(t, refresh.Offline(withCreds, true))
	assert.True(t, refresh.Offline(&config.Config{LayerID: "layer1"}, true))
	assert.True(t, refresh.Offline(&config.Config{APIKey: "k"}, true))
}

func TestNewRequestAndTimeout(t *testing.T) {
	s := &config.Config{LayerID: "layer1", OutputDir: "out", OutputName: "a.csv", ArchiveURI: "s3://b/archive/"}
	req := refresh.NewRequest(s, []string{"b1.csv"}, true)
	assert.Equal(t, "layer1", req.LayerID)
	assert.Equal(t, "s3://b/archive/", req.ArchiveURI)
	assert.True(t, req.DryRun)

	assert.Equal(t, constants.OverwriteTimeout, refresh.Timeout(s))
}
