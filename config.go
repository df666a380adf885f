package nodetracer

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// CaptureLevel controls how much payload data spans record.
type CaptureLevel string

const (
	// CaptureMinimal drops input/output payloads; structure, timing,
	// metadata and annotations are still captured.
	CaptureMinimal CaptureLevel = "minimal"
	// CaptureStandard records payloads subject to the configured limits.
	CaptureStandard CaptureLevel = "standard"
	// CaptureFull records payloads subject to the configured limits.
	CaptureFull CaptureLevel = "full"
)

// Config carries tracer construction options. The zero value is not
// usable; start from DefaultConfig, ConfigFromEnv, or LoadConfig.
type Config struct {
	CaptureLevel CaptureLevel `yaml:"capture_level" env:"NODETRACER_CAPTURE_LEVEL,default=full"`
	// MaxInputSize and MaxOutputSize cap individual recorded string
	// values in characters. Oversized values are truncated, never
	// rejected. Zero means unlimited.
	MaxInputSize   int      `yaml:"max_input_size" env:"NODETRACER_MAX_INPUT_SIZE,default=0"`
	MaxOutputSize  int      `yaml:"max_output_size" env:"NODETRACER_MAX_OUTPUT_SIZE,default=0"`
	RedactPatterns []string `yaml:"redact_patterns" env:"NODETRACER_REDACT_PATTERNS"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{CaptureLevel: CaptureFull}
}

// Validate reports malformed configuration. These are caller errors
// and fail Tracer construction immediately.
func (c Config) Validate() error {
	switch c.CaptureLevel {
	case CaptureMinimal, CaptureStandard, CaptureFull:
	default:
		return fmt.Errorf("nodetracer: unknown capture level %q", c.CaptureLevel)
	}
	if c.MaxInputSize < 0 {
		return fmt.Errorf("nodetracer: max input size must be >= 0, got %d", c.MaxInputSize)
	}
	if c.MaxOutputSize < 0 {
		return fmt.Errorf("nodetracer: max output size must be >= 0, got %d", c.MaxOutputSize)
	}
	if _, err := c.compileRedactPatterns(); err != nil {
		return err
	}
	return nil
}

func (c Config) compileRedactPatterns() ([]*regexp.Regexp, error) {
	if len(c.RedactPatterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(c.RedactPatterns))
	for _, p := range c.RedactPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("nodetracer: redact pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// ConfigFromEnv builds a Config from NODETRACER_* environment variables.
func ConfigFromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, fmt.Errorf("nodetracer: processing env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file. Fields absent from the file keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("nodetracer: read config %q: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("nodetracer: parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
