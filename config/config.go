package config

import (
	_ "embed"
)

// txrace default config
//
//go:embed default.config.yml
var DefaultConfigYml string
