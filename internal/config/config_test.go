package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxNeighbours != Default().MaxNeighbours {
		t.Fatalf("expected default MaxNeighbours, got %d", cfg.MaxNeighbours)
	}
}

func TestLoad_OverridesDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kipa.yaml")
	body := "max_neighbours: 16\nbind_address: \":9999\"\nbootstrap_peers:\n  - \"10.0.0.1:4884\"\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxNeighbours != 16 {
		t.Fatalf("expected max_neighbours=16, got %d", cfg.MaxNeighbours)
	}
	if cfg.BindAddress != ":9999" {
		t.Fatalf("expected overridden bind address, got %q", cfg.BindAddress)
	}
	if len(cfg.BootstrapPeers) != 1 || cfg.BootstrapPeers[0] != "10.0.0.1:4884" {
		t.Fatalf("expected one bootstrap peer, got %v", cfg.BootstrapPeers)
	}
	// Fields left unset in the file keep their default.
	if cfg.SearchK != Default().SearchK {
		t.Fatalf("expected default SearchK to survive a partial override, got %d", cfg.SearchK)
	}
}

func TestValidate_RejectsMissingKeyDir(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing key_dir")
	}
	cfg.KeyDir = "/tmp/kipa-keys"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a fully-defaulted config with key_dir set to validate, got %v", err)
	}
}

func TestValidate_RejectsNonPositiveDimensions(t *testing.T) {
	cfg := Default()
	cfg.KeyDir = "/tmp/kipa-keys"
	cfg.KeySpaceDimensions = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for zero key_space_dimensions")
	}
}
