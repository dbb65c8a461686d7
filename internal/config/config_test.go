package config

import (
	"bytes"
	"errors"
	"flag"
	"log/slog"
	"strings"
	"testing"

	"icb-classifier-go/internal/failure"
)

func TestDefaultsMatchContract(t *testing.T) {
	cfg := ParseArgs(flag.NewFlagSet("test", flag.ContinueOnError), []string{})
	if cfg.TestFraction != 0.3 || cfg.Epochs != 50 || cfg.BatchSize != 8 || cfg.ValidationSplit != 0.1 {
		t.Errorf("Unexpected training defaults: %+v", cfg)
	}
	if cfg.BackgroundSize != 100 {
		t.Errorf("Expected background 100, got %d", cfg.BackgroundSize)
	}
	if cfg.LabelNames != [3]string{"PR", "SD", "PD"} {
		t.Errorf("Unexpected labels %v", cfg.LabelNames)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestParseArgs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := ParseArgs(fs, []string{"-seed", "7", "-labels", "R, S ,N", "-weights-from", "full", "-epochs", "3"})
	if cfg.Seed != 7 || cfg.Epochs != 3 || cfg.WeightsFrom != WeightsFromFull {
		t.Errorf("Flags not applied: %+v", cfg)
	}
	if cfg.LabelNames != [3]string{"R", "S", "N"} {
		t.Errorf("Expected trimmed labels, got %v", cfg.LabelNames)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"two labels", func(c *Config) { c.LabelNames = [3]string{"A", "B", ""} }},
		{"duplicate labels", func(c *Config) { c.LabelNames = [3]string{"A", "B", "A"} }},
		{"test fraction", func(c *Config) { c.TestFraction = 1 }},
		{"weights", func(c *Config) { c.WeightsFrom = "test" }},
		{"epochs", func(c *Config) { c.Epochs = 0 }},
		{"batch", func(c *Config) { c.BatchSize = 0 }},
		{"validation", func(c *Config) { c.ValidationSplit = 1 }},
		{"learning rate", func(c *Config) { c.LearningRate = 0 }},
		{"background", func(c *Config) { c.BackgroundSize = 0 }},
		{"coalitions", func(c *Config) { c.CoalitionSamples = -1 }},
	}
	for _, c := range cases {
		cfg := Default()
		c.mutate(cfg)
		var cfgErr *failure.ConfigurationError
		if err := cfg.Validate(); !errors.As(err, &cfgErr) {
			t.Errorf("%s: expected ConfigurationError, got %v", c.name, err)
		}
	}
}

func TestLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn")
	logger.Info("hidden")
	logger.Warn("shown", "epoch", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info record to be filtered, got %s", out)
	}
	if !strings.Contains(out, `"epoch":1`) {
		t.Errorf("Expected JSON attribute in %s", out)
	}
}
