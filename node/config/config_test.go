package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	require := require.New(t)
	cfg, err := Load("")
	require.NoError(err)
	require.Equal(":8546", cfg.RPCAddr)
	require.Equal("data", cfg.DataDir)
	require.Equal(30*time.Second, cfg.SnapshotInterval.Std())
	require.Equal(uint64(100), cfg.FeeRate)
}

func TestLoadOverridesDefaults(t *testing.T) {
	require := require.New(t)
	path := writeConfig(t, `
rpc_addr: ":9000"
fee_rate: 30
snapshot_interval: 1m
tokens:
  - id: "0x00000000000000000000000000000000000000a1"
    name: Asset A
    symbol: ASTA
    decimals: 18
genesis:
  - address: "0x0000000000000000000000000000000000000001"
    amount: "1000000"
  - address: "0x0000000000000000000000000000000000000001"
    asset: "0x00000000000000000000000000000000000000a1"
    amount: "2000000"
`)
	cfg, err := Load(path)
	require.NoError(err)
	require.Equal(":9000", cfg.RPCAddr)
	require.Equal(uint64(30), cfg.FeeRate)
	require.Equal(time.Minute, cfg.SnapshotInterval.Std())
	// Untouched keys keep their defaults.
	require.Equal("data", cfg.DataDir)

	require.Len(cfg.Tokens, 1)
	require.Equal("ASTA", cfg.Tokens[0].Symbol)
	require.Len(cfg.Genesis, 2)
	require.Empty(cfg.Genesis[0].Asset)
	require.Equal("2000000", cfg.Genesis[1].Amount)
}

func TestLoadRejectsFeeOutOfRange(t *testing.T) {
	path := writeConfig(t, "fee_rate: 10000\n")
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "fee_rate")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "rpc_addr: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
}
