package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.DB.URL, "postgres://")
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 2, cfg.Workers.PerFamily)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Operator.Key)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WORKERS_PER_FAMILY", "7")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workers.PerFamily)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsZeroWorkers(t *testing.T) {
	t.Setenv("WORKERS_PER_FAMILY", "0")
	_, err := Load()
	assert.Error(t, err)
}

const registryYAML = `
networks:
  - id: ethereum
    name: Ethereum
    symbol: ETH
    decimals: 18
    vm: evm
    chain_id: 1
    rpc_url: https://eth.example/rpc
  - id: solana
    name: Solana
    symbol: SOL
    decimals: 9
    vm: solana
    rpc_url: https://sol.example/rpc
bridges:
  - id: wormhole
    name: Wormhole
    chains: [ethereum, solana]
    fee_basis_points: 30
    min_amount: "1000"
    settling_minutes: 15
`

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t, registryYAML))
	require.NoError(t, err)

	require.Len(t, reg.Networks, 2)
	assert.Equal(t, "ETH", reg.Networks[0].Symbol)
	assert.EqualValues(t, "evm", reg.Networks[0].VM)

	routes := reg.BridgeRoutes()
	require.Len(t, routes, 1)
	assert.Equal(t, "wormhole", routes[0].ID)
	assert.Equal(t, int64(30), routes[0].FeeBasisPoints)
	assert.Equal(t, 15*time.Minute, routes[0].EstimatedSettling)
	assert.True(t, routes[0].Connects("ethereum", "solana"))
}

func TestLoadRegistryValidation(t *testing.T) {
	cases := map[string]string{
		"no networks": `networks: []`,
		"bad vm": `
networks:
  - id: x
    vm: wasm
    rpc_url: https://x.example`,
		"missing rpc": `
networks:
  - id: x
    vm: evm`,
		"bridge unknown chain": `
networks:
  - id: ethereum
    vm: evm
    rpc_url: https://eth.example
bridges:
  - id: b
    chains: [ethereum, nope]`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRegistry(writeRegistry(t, body))
			assert.Error(t, err)
		})
	}
}
