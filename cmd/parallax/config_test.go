package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/Parallax/internal/config"
)

func newTestCommand(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addConfigFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse(flags))
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(newTestCommand(t), []string{"req.txt"})
	require.NoError(t, err)

	want := config.DefaultConfig()
	assert.Equal(t, "req.txt", cfg.RequestFile)
	assert.Equal(t, want.SampleCount, cfg.SampleCount)
	assert.Equal(t, want.MaxCombinationSize, cfg.MaxCombinationSize)
	assert.Equal(t, want.Suppression, cfg.Suppression)
	assert.Equal(t, want.AttemptTimeout, cfg.AttemptTimeout)
	assert.Equal(t, want.DeadlineBuffer, cfg.DeadlineBuffer)
	assert.Equal(t, want.Concurrency, cfg.Concurrency)
	assert.Equal(t, want.ShutdownGrace, cfg.ShutdownGrace)
	assert.Equal(t, want.ReadLimit, cfg.ReadLimit)
	assert.Equal(t, want.OutputFormat, cfg.OutputFormat)
	assert.Empty(t, cfg.Mutations)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parallax.yaml")
	require.NoError(t, os.WriteFile(path, []byte("samples: 9\ntimeout: 2s\nmutations: [bare-lf, http10]\nformat: text\n"), 0o644))
	configFile = path
	t.Cleanup(func() { configFile = "" })
	t.Setenv("PARALLAX_CONCURRENCY", "3")
	t.Setenv("PARALLAX_MAX_COMBINATION", "4")

	cfg, err := loadConfig(newTestCommand(t, "--samples", "5", "-k", "1"), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.SampleCount)
	assert.Equal(t, 1, cfg.MaxCombinationSize)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, []string{"bare-lf", "http10"}, cfg.Mutations)
	assert.Equal(t, "text", cfg.OutputFormat)
}

func TestLoadConfigMissingFile(t *testing.T) {
	configFile = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() { configFile = "" })

	_, err := loadConfig(newTestCommand(t), nil)
	assert.Error(t, err)
}

func TestLoadCatalogue(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mutations = []string{"http10"}

	muts, err := loadCatalogue(cfg)
	require.NoError(t, err)
	require.Len(t, muts, 1)
	assert.Equal(t, "http10", muts[0].Describe())

	cfg.Mutations = []string{"nope"}
	_, err = loadCatalogue(cfg)
	assert.Error(t, err)
}
