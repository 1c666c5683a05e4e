package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.RPCAddress)
	require.Equal(t, "production", cfg.Environment)

	_, err = os.Stat(path)
	require.NoError(t, err)

	// A second load reads the file back identically.
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `RPCAddress = ":9999"
Environment = "development"
DefaultMinDeposit = "42"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.RPCAddress)
	require.Equal(t, "development", cfg.Environment)
	// Unset fields fall back to defaults.
	require.Equal(t, ":9095", cfg.MetricsAddress)

	min, err := cfg.MinDeposit()
	require.NoError(t, err)
	require.Zero(t, min.Cmp(big.NewInt(42)))
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`Environment = "staging"`), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`DefaultMinDeposit = "abc"`), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
