package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the KIPA daemon: listen for inbound requests and sweep neighbours",
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

		if err := bootstrap(context.Background(), w, cfg.BootstrapPeers, cfg.VerifyTimeout*4); err != nil {
			fmt.Fprintf(os.Stderr, "warning: bootstrap incomplete: %v\n", err)
		}

		fmt.Printf("kipa-node listening on %s, key %s\n", w.Local().Address, w.Local().Key.String()[:16])

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		fmt.Println("shutting down")
		return w.Stop()
	},
}
