package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kipa-net/kipa/internal/config"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
	keyDir     string
	bindAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "kipa-node",
	Short: "KIPA node — key-to-address lookup over a key-space graph",
	Long: `kipa-node runs (or talks to) a KIPA node: a peer that resolves a
public key to the address of the peer that owns it, by walking a
key-space-embedded neighbour graph rather than trusting a directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit JSON-formatted logs")
	rootCmd.PersistentFlags().StringVar(&keyDir, "key-dir", "", "directory holding the node's bolt-backed key store")
	rootCmd.PersistentFlags().StringVar(&bindAddr, "bind", "", "override the listen address (host:port)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listNeighboursCmd)
}

// loadConfig applies config-file values first, then any explicit flag
// overrides, so command-line flags always win over the config file.
func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = logJSON
	}
	if flags.Changed("key-dir") {
		cfg.KeyDir = keyDir
	}
	if flags.Changed("bind") {
		cfg.BindAddress = bindAddr
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("%w", err)
	}
	return cfg, nil
}
