package extract

import (
	"errors"
	"testing"
	"time"

	"photocat/internal/catalog"
	"photocat/internal/config"
)

func TestNewExtractorFromConfig(t *testing.T) {
	timeout := config.Duration{Duration: 10 * time.Second}

	t.Run("command", func(t *testing.T) {
		e, err := NewExtractorFromConfig(config.ExtractorConfig{Type: "command", Command: "exiftool -j -", Timeout: timeout, MaxProcs: 2})
		if err != nil {
			t.Fatalf("NewExtractorFromConfig() error = %v", err)
		}
		ce, ok := e.(*CommandExtractor)
		if !ok {
			t.Fatalf("got %T, want *CommandExtractor", e)
		}
		if ce.Command() != "exiftool -j -" {
			t.Errorf("Command() = %q", ce.Command())
		}
		if ce.timeout != 10*time.Second {
			t.Errorf("timeout = %v, want 10s", ce.timeout)
		}
	})

	t.Run("empty command uses default", func(t *testing.T) {
		e, err := NewExtractorFromConfig(config.ExtractorConfig{})
		if err != nil {
			t.Fatalf("NewExtractorFromConfig() error = %v", err)
		}
		if got := e.(*CommandExtractor).Command(); got != DefaultCommand {
			t.Errorf("Command() = %q, want %q", got, DefaultCommand)
		}
	})

	t.Run("builtin command selects goexif", func(t *testing.T) {
		e, err := NewExtractorFromConfig(config.ExtractorConfig{Command: BuiltinCommand})
		if err != nil {
			t.Fatalf("NewExtractorFromConfig() error = %v", err)
		}
		if _, ok := e.(*ExifExtractor); !ok {
			t.Errorf("got %T, want *ExifExtractor", e)
		}
	})

	t.Run("goexif type", func(t *testing.T) {
		e, err := NewExtractorFromConfig(config.ExtractorConfig{Type: "goexif", Timeout: timeout})
		if err != nil {
			t.Fatalf("NewExtractorFromConfig() error = %v", err)
		}
		if e.(*ExifExtractor).timeout != 10*time.Second {
			t.Error("timeout not applied")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewExtractorFromConfig(config.ExtractorConfig{Type: "magic"})
		if !errors.Is(err, catalog.ErrConfig) {
			t.Errorf("error = %v, want ErrConfig", err)
		}
	})
}
