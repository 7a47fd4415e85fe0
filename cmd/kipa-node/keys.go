package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	importKeyFile string
	exportKeyID   string
	exportPeerID  string
	exportOutFile string
)

// importKeyCmd reads a GPG-armored public key (from a file or stdin),
// verifies its checksum, and remembers it under its NodeID so a later
// connect/search --peer-id can resolve it without the caller re-pasting
// the raw hex key on every invocation.
var importKeyCmd = &cobra.Command{
	Use:   "import-key",
	Short: "Import an armored peer public key and remember it by NodeID",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return configError(err)
		}

		armored, err := readArmorInput(importKeyFile)
		if err != nil {
			return configError(err)
		}

		keys, err := openKeyStore(cfg)
		if err != nil {
			return configError(fmt.Errorf("open key store: %w", err))
		}
		defer keys.Close()

		pub, err := keys.ImportPublicKey(armored)
		if err != nil {
			return configError(fmt.Errorf("import-key: %w", err))
		}
		if err := keys.RememberPeer(pub); err != nil {
			return configError(fmt.Errorf("import-key: %w", err))
		}

		fmt.Println(pub.ID().String())
		return nil
	},
}

// exportKeyCmd emits a GPG-armored export of either the local node's own
// public key or a previously remembered peer's, addressed by NodeID.
var exportKeyCmd = &cobra.Command{
	Use:   "export-key",
	Short: "Export the local node's or a remembered peer's public key, armored",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportKeyID != "" && exportPeerID != "" {
			return configError(fmt.Errorf("export-key: --key-id and --peer-id are mutually exclusive"))
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

		pub := keys.PublicKey()
		switch {
		case exportKeyID != "":
			pub, err = parseKeyHex(exportKeyID)
			if err != nil {
				return configError(err)
			}
		case exportPeerID != "":
			pub, err = lookupRememberedPeer(keys, exportPeerID)
			if err != nil {
				return configError(err)
			}
		}

		armored, err := keys.ExportPublicKey(pub)
		if err != nil {
			return configError(fmt.Errorf("export-key: %w", err))
		}

		return writeArmorOutput(exportOutFile, armored)
	},
}

func readArmorInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read armored key from stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read armored key from %s: %w", path, err)
	}
	return b, nil
}

func writeArmorOutput(path string, armored []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(armored)
		return err
	}
	return os.WriteFile(path, armored, 0o600)
}

func init() {
	importKeyCmd.Flags().StringVar(&importKeyFile, "in", "", "path to the armored key file (default stdin)")

	exportKeyCmd.Flags().StringVar(&exportKeyID, "key-id", "", "hex-encoded public key to export (default: the local node's own)")
	exportKeyCmd.Flags().StringVar(&exportPeerID, "peer-id", "", "hex-encoded NodeID of a previously imported peer to export")
	exportKeyCmd.Flags().StringVar(&exportOutFile, "out", "", "path to write the armored key (default stdout)")

	rootCmd.AddCommand(importKeyCmd)
	rootCmd.AddCommand(exportKeyCmd)
}
