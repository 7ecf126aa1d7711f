package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/txrace/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadConfigDefaults(t *testing.T) {
	cfg := &types.Config{}
	require.NoError(t, ReadConfig(cfg, ""))

	assert.Equal(t, "rpc", cfg.Execution.Backend)
	assert.Equal(t, "direct", cfg.Scan.DepthPolicy)
	assert.Equal(t, uint64(4000000), cfg.Scan.GasLimit)
	assert.Equal(t, 3, cfg.Scan.MaxUnreachableProbes)
	assert.Equal(t, uint64(20), cfg.Timing.BatchSize)
	assert.Equal(t, "flashblock_", cfg.Timing.BatchTagPrefix)
	assert.Equal(t, 5*time.Second, cfg.Timing.LookupTimeout)
	assert.Equal(t, 3*time.Second, cfg.Monitor.MinAge)
}

func TestReadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
execution:
  endpoint: "http://localhost:8545"
  backend: "cast"
  castPath: ""
scan:
  depthPolicy: "Recursive"
  probeTimeout: 0s
timing:
  batchSize: 10
  lookupTimeout: 750ms
`)
	t.Setenv("SCAN_GAS_LIMIT", "5000000")

	cfg := &types.Config{}
	require.NoError(t, ReadConfig(cfg, path))

	assert.Equal(t, "http://localhost:8545", cfg.Execution.Endpoint)
	assert.Equal(t, "cast", cfg.Execution.Backend)
	assert.Equal(t, "cast", cfg.Execution.CastPath)
	assert.Equal(t, "recursive", cfg.Scan.DepthPolicy)
	assert.Equal(t, uint64(5000000), cfg.Scan.GasLimit)
	assert.Equal(t, cfg.Execution.CallTimeout, cfg.Scan.ProbeTimeout)
	assert.Equal(t, uint64(10), cfg.Timing.BatchSize)
	assert.Equal(t, 750*time.Millisecond, cfg.Timing.LookupTimeout)
}

func TestReadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "backend", content: "execution:\n  backend: \"grpc\"\n", wantErr: "unknown execution backend"},
		{name: "target", content: "scan:\n  targetAddress: \"0x1234\"\n", wantErr: "invalid scan target address"},
		{name: "depth policy", content: "scan:\n  depthPolicy: \"deep\"\n", wantErr: "unknown scan depth policy"},
		{name: "endpoint", content: "execution:\n  endpoint: \"\"\n", wantErr: "missing execution endpoint"},
		{name: "yaml", content: "scan: [", wantErr: "error decoding config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &types.Config{}
			err := ReadConfig(cfg, writeConfig(t, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	assert.ErrorContains(t, ReadConfig(&types.Config{}, "/nonexistent/config.yml"), "error opening config file")
}
