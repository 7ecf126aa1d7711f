package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/txrace/config"
	"github.com/ethpandaops/txrace/types"
)

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	if err != nil {
		return fmt.Errorf("error decoding default config: %v", err)
	}

	err = readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	err = readConfigEnv(cfg)
	if err != nil {
		return err
	}

	return validateConfig(cfg)
}

func readConfigFile(cfg *types.Config, path string) error {
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %v", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %v", path, err)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}

func validateConfig(cfg *types.Config) error {
	if cfg.Execution.Endpoint == "" {
		return fmt.Errorf("missing execution endpoint")
	}

	switch cfg.Execution.Backend {
	case "", "rpc":
		cfg.Execution.Backend = "rpc"
	case "cast":
		if cfg.Execution.CastPath == "" {
			cfg.Execution.CastPath = "cast"
		}
	default:
		return fmt.Errorf("unknown execution backend: %v", cfg.Execution.Backend)
	}

	if cfg.Execution.CallTimeout == 0 {
		cfg.Execution.CallTimeout = 10 * time.Second
	}

	if !common.IsHexAddress(cfg.Scan.TargetAddress) {
		return fmt.Errorf("invalid scan target address: %q", cfg.Scan.TargetAddress)
	}

	switch strings.ToLower(cfg.Scan.DepthPolicy) {
	case "", "direct":
		cfg.Scan.DepthPolicy = "direct"
	case "recursive":
		cfg.Scan.DepthPolicy = "recursive"
	default:
		return fmt.Errorf("unknown scan depth policy: %v", cfg.Scan.DepthPolicy)
	}

	if cfg.Scan.GasLimit == 0 {
		cfg.Scan.GasLimit = 4000000
	}
	if cfg.Scan.ProbeTimeout == 0 {
		cfg.Scan.ProbeTimeout = cfg.Execution.CallTimeout
	}
	if cfg.Scan.ProbeBurst < 1 {
		cfg.Scan.ProbeBurst = 1
	}

	if cfg.Timing.BatchTagPrefix == "" {
		cfg.Timing.BatchTagPrefix = "flashblock_"
	}
	if cfg.Timing.LookupTimeout == 0 {
		cfg.Timing.LookupTimeout = 5 * time.Second
	}

	return nil
}
