package telemetry

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_DefaultsToInfoAndText(t *testing.T) {
	entry, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if entry.Logger.Level != logrus.InfoLevel {
		t.Fatalf("expected InfoLevel, got %v", entry.Logger.Level)
	}
	if _, ok := entry.Logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected TextFormatter, got %T", entry.Logger.Formatter)
	}
}

func TestNew_JSONAndExplicitLevel(t *testing.T) {
	entry, err := New(Config{Level: "debug", JSON: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if entry.Logger.Level != logrus.DebugLevel {
		t.Fatalf("expected DebugLevel, got %v", entry.Logger.Level)
	}
	if _, ok := entry.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSONFormatter, got %T", entry.Logger.Formatter)
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "not-a-level"}); err == nil {
		t.Fatal("expected an error for an invalid log level")
	}
}
