package voicegen

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Classification.ConfidenceThreshold != 70 || cfg.Classification.RelevanceThreshold != 60 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Classification)
	}
	if cfg.Generation.MaxChars != 3000 || cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected limits: max_chars=%d attempts=%d", cfg.Generation.MaxChars, cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Fatalf("base delay: got %v", cfg.Retry.BaseDelay)
	}
}

func TestLoadConfig_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	raw := "classification:\n  confidence_threshold: 80\nretry:\n  max_attempts: 5\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Classification.ConfidenceThreshold != 80 || cfg.Classification.RelevanceThreshold != 60 {
		t.Fatalf("overlay: %+v", cfg.Classification)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Generation.MaxChars != 3000 {
		t.Fatalf("overlay lost defaults: attempts=%d max_chars=%d", cfg.Retry.MaxAttempts, cfg.Generation.MaxChars)
	}
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte("retry:\n  max_attempts: 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error")
	}
}
