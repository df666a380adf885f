package nodetracer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"minimal", Config{CaptureLevel: CaptureMinimal}, false},
		{"standard with limits", Config{CaptureLevel: CaptureStandard, MaxInputSize: 100, MaxOutputSize: 100}, false},
		{"empty level", Config{}, true},
		{"unknown level", Config{CaptureLevel: "debug"}, true},
		{"negative input size", Config{CaptureLevel: CaptureFull, MaxInputSize: -1}, true},
		{"negative output size", Config{CaptureLevel: CaptureFull, MaxOutputSize: -1}, true},
		{"bad redact pattern", Config{CaptureLevel: CaptureFull, RedactPatterns: []string{"["}}, true},
		{"good redact patterns", Config{CaptureLevel: CaptureFull, RedactPatterns: []string{"(?i)token", "key$"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("NODETRACER_CAPTURE_LEVEL", "standard")
	t.Setenv("NODETRACER_MAX_INPUT_SIZE", "2048")
	t.Setenv("NODETRACER_REDACT_PATTERNS", "(?i)api_key,password")

	cfg, err := ConfigFromEnv(context.Background())
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.CaptureLevel != CaptureStandard {
		t.Errorf("Expected standard, got %s", cfg.CaptureLevel)
	}
	if cfg.MaxInputSize != 2048 {
		t.Errorf("Expected 2048, got %d", cfg.MaxInputSize)
	}
	if len(cfg.RedactPatterns) != 2 {
		t.Errorf("Expected 2 redact patterns, got %v", cfg.RedactPatterns)
	}
}

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := ConfigFromEnv(context.Background())
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}
	if cfg.CaptureLevel != CaptureFull {
		t.Errorf("Expected full by default, got %s", cfg.CaptureLevel)
	}
}

func TestConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("NODETRACER_CAPTURE_LEVEL", "everything")
	if _, err := ConfigFromEnv(context.Background()); err == nil {
		t.Error("Expected error for invalid env config")
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodetracer.yaml")
	doc := `capture_level: minimal
max_input_size: 512
redact_patterns:
  - (?i)secret
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.CaptureLevel != CaptureMinimal {
		t.Errorf("Expected minimal, got %s", cfg.CaptureLevel)
	}
	if cfg.MaxInputSize != 512 {
		t.Errorf("Expected 512, got %d", cfg.MaxInputSize)
	}
	if len(cfg.RedactPatterns) != 1 {
		t.Errorf("Expected 1 redact pattern, got %v", cfg.RedactPatterns)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodetracer.yaml")
	if err := os.WriteFile(path, []byte("max_output_size: 99\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.CaptureLevel != CaptureFull {
		t.Errorf("Expected default level retained, got %s", cfg.CaptureLevel)
	}
	if cfg.MaxOutputSize != 99 {
		t.Errorf("Expected 99, got %d", cfg.MaxOutputSize)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("capture_level: [broken"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}
