package raidconfig

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestSaveThenLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raid.yaml")

	cfg := DefaultConfig()
	cfg.Host = "raid.example.com"
	cfg.Port = "4100"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "raid.example.com", loaded.Host)
	require.Equal(t, "4100", loaded.Port)
}

func TestValidate_RejectsMissingHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = ""
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	require.Error(t, Validate(cfg))
}
