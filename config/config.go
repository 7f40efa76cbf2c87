// Package config loads cubyznet's runtime configuration, following the
// teacher's core/main.go loadConfig shape (a flat struct of user-facing
// settings with defaults baked in) but sourced from a YAML file overlaid
// with environment variables instead of hardcoded literals, since a
// client library's demo binary needs to point at an arbitrary server.
package config

import (
	"context"
	"os"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds cmd/democlient's user-facing settings. The protocol's own
// tunables (resend timeout, keep-alive interval, MTU, ...) are fixed in
// package protocol and are not configurable here — only where to connect,
// how to identify this client, and how verbosely to log.
type Config struct {
	ServerAddr  string `yaml:"server_addr" env:"CUBYZNET_SERVER_ADDR"`
	MetricsAddr string `yaml:"metrics_addr" env:"CUBYZNET_METRICS_ADDR"`
	LogLevel    string `yaml:"log_level" env:"CUBYZNET_LOG_LEVEL"`
	ClientName  string `yaml:"client_name" env:"CUBYZNET_CLIENT_NAME"`
}

// Default returns the configuration cmd/democlient starts from before any
// file or environment overlay is applied.
func Default() Config {
	return Config{
		ServerAddr:  "127.0.0.1:7777",
		MetricsAddr: "127.0.0.1:9109",
		LogLevel:    "info",
		ClientName:  "cubyznet-democlient",
	}
}

// LoadFile reads and unmarshals a YAML config file on top of cfg. A
// missing file is not an error — callers are expected to run against
// Default() plus environment variables alone in that case.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ApplyEnv overlays environment variables onto cfg, taking precedence
// over both Default() and any YAML file, matching the usual
// file-then-env config layering.
func ApplyEnv(ctx context.Context, cfg *Config) error {
	return envconfig.Process(ctx, cfg)
}
