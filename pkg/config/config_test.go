package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fedicircle.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Weights.Boost != 1.3 || cfg.Weights.Reply != 1.1 || cfg.Weights.Reaction != 1.0 {
		t.Errorf("unexpected default weights: %+v", cfg.Weights)
	}
	if cfg.Bands.Inner != 8 || cfg.Bands.Middle != 15 || cfg.Bands.Outer != 26 {
		t.Errorf("unexpected default bands: %+v", cfg.Bands)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[weights]
boost = 2.0

[bands]
inner = 6
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Weights.Boost != 2.0 {
		t.Errorf("Boost = %v, want 2.0", cfg.Weights.Boost)
	}
	// Untouched values keep their defaults.
	if cfg.Weights.Reply != 1.1 {
		t.Errorf("Reply = %v, want default 1.1", cfg.Weights.Reply)
	}
	if cfg.Bands.Inner != 6 || cfg.Bands.Middle != 15 {
		t.Errorf("bands = %+v", cfg.Bands)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", "not toml ["},
		{"negative weight", "[weights]\nboost = -1.0\n"},
		{"zero band", "[bands]\ninner = 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
