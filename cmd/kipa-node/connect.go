package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kipa-net/kipa/internal/message"
)

var (
	connectKeyID  string
	connectPeerID string
	connectAddr   string
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Verify and admit a known peer, then discover its neighbourhood",
	RunE: func(cmd *cobra.Command, args []string) error {
		if connectKeyID == "" && connectPeerID == "" {
			return configError(fmt.Errorf("connect: one of --key-id or --peer-id is required"))
		}
		if connectKeyID != "" && connectPeerID != "" {
			return configError(fmt.Errorf("connect: --key-id and --peer-id are mutually exclusive"))
		}
		if connectAddr == "" {
			return configError(fmt.Errorf("connect: --address is required"))
		}

		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return configError(err)
		}

		addr, err := message.ParseAddress(connectAddr)
		if err != nil {
			return configError(fmt.Errorf("connect: %w", err))
		}

		keys, err := openKeyStore(cfg)
		if err != nil {
			return configError(fmt.Errorf("open key store: %w", err))
		}
		defer keys.Close()

		var key message.PublicKey
		if connectKeyID != "" {
			key, err = parseKeyHex(connectKeyID)
		} else {
			key, err = lookupRememberedPeer(keys, connectPeerID)
		}
		if err != nil {
			return configError(err)
		}

		w, err := buildWorld(cfg, keys)
		if err != nil {
			return configError(err)
		}
		defer w.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.VerifyTimeout*4)
		defer cancel()

		if err := w.Connect(ctx, message.Node{Key: key, Address: addr}); err != nil {
			return protocolError(err)
		}

		fmt.Printf("connected: admitted %d neighbours\n", len(w.ListNeighbours()))
		return nil
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectKeyID, "key-id", "", "hex-encoded public key of the peer to connect to")
	connectCmd.Flags().StringVar(&connectPeerID, "peer-id", "", "hex-encoded NodeID of a previously import-key'd peer to connect to")
	connectCmd.Flags().StringVar(&connectAddr, "address", "", "host:port of the peer to connect to")
}
