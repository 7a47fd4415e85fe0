package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var listNeighboursCmd = &cobra.Command{
	Use:   "list-neighbours",
	Short: "Print the local node's current neighbour table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return configError(err)
		}

		keys, err := openKeyStore(cfg)
		if err != nil {
			return configError(fmt.Errorf("open key store: %w", err))
		}
		defer keys.Close()

		w, err := buildWorld(cfg, keys)
		if err != nil {
			return configError(err)
		}
		defer w.Stop()

		if err := bootstrap(context.Background(), w, cfg.BootstrapPeers, cfg.VerifyTimeout*4); err != nil {
			return err
		}

		for _, n := range w.ListNeighbours() {
			fmt.Printf("%s\t%s\n", n.Key.String(), n.Address)
		}
		return nil
	},
}
