package config

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault_ProducesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, WriteDefault(path))

	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "30m", cfg.Supervisor.HardTimeout)
	assert.True(t, cfg.Adapters.Claude.Enabled)
	assert.Equal(t, 0.25, cfg.Scoring.Weights["build"])
}

func TestWriteDefault_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, WriteDefault(path))
	err := WriteDefault(path)
	assert.Error(t, err)
}

func TestDefault_KeysMatchViperDefaults(t *testing.T) {
	v := viper.New()
	l := &Loader{v: v, envPrefix: "HYDRA"}
	l.setDefaults()

	assert.Equal(t, v.GetString("log.level"), Default().Log.Level)
	assert.Equal(t, v.GetString("worktree.base_dir"), Default().Worktree.BaseDir)
}
