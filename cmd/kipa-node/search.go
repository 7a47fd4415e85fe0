package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kipa-net/kipa/internal/message"
)

var (
	searchKeyID  string
	searchPeerID string
	searchPrint  string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Resolve a public key to the address of the peer that owns it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchKeyID == "" && searchPeerID == "" {
			return configError(fmt.Errorf("search: one of --key-id or --peer-id is required"))
		}
		if searchKeyID != "" && searchPeerID != "" {
			return configError(fmt.Errorf("search: --key-id and --peer-id are mutually exclusive"))
		}
		switch searchPrint {
		case "ip", "port", "both":
		default:
			return configError(fmt.Errorf("search: --print must be one of ip, port, both, got %q", searchPrint))
		}

		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return configError(err)
		}

		keys, err := openKeyStore(cfg)
		if err != nil {
			return configError(fmt.Errorf("open key store: %w", err))
		}
		defer keys.Close()

		var key message.PublicKey
		if searchKeyID != "" {
			key, err = parseKeyHex(searchKeyID)
		} else {
			key, err = lookupRememberedPeer(keys, searchPeerID)
		}
		if err != nil {
			return configError(err)
		}

		w, err := buildWorld(cfg, keys)
		if err != nil {
			return configError(err)
		}
		defer w.Stop()

		if err := bootstrap(context.Background(), w, cfg.BootstrapPeers, cfg.VerifyTimeout*4); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout*8)
		defer cancel()

		found, err := w.Search(ctx, key)
		if err != nil {
			return protocolError(err)
		}
		if found == nil {
			return notFound(fmt.Sprintf("search: no peer found for key %s", key))
		}

		printSearchResult(*found, searchPrint)
		return nil
	},
}

func printSearchResult(n message.Node, mode string) {
	switch mode {
	case "ip":
		fmt.Println(n.Address.Host)
	case "port":
		fmt.Println(strconv.Itoa(int(n.Address.Port)))
	default:
		fmt.Println(n.Address.String())
	}
}

func init() {
	searchCmd.Flags().StringVar(&searchKeyID, "key-id", "", "hex-encoded public key to resolve")
	searchCmd.Flags().StringVar(&searchPeerID, "peer-id", "", "hex-encoded NodeID of a previously import-key'd peer to resolve")
	searchCmd.Flags().StringVar(&searchPrint, "print", "both", "what to print: ip, port, or both")
}
