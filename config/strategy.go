package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"MartingaleBot/internal/operations/backtest"

	"gopkg.in/yaml.v3"
)

// LoadStrategy reads backtest parameters from a YAML file. Keys left out
// keep their defaults. When tkm_percentage is absent it is derived from the
// margin ladder, an explicit value is validated against it.
func LoadStrategy(path string) (backtest.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("read strategy file: %w", err)
	}
	return ParseStrategy(data)
}

func ParseStrategy(data []byte) (backtest.Config, error) {
	cfg := backtest.NewConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return backtest.Config{}, fmt.Errorf("parse strategy: %w", err)
	}

	var probe struct {
		TKMPercentage *float64 `yaml:"tkm_percentage"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return backtest.Config{}, fmt.Errorf("parse strategy: %w", err)
	}
	if probe.TKMPercentage == nil {
		cfg.TKMPercentage = backtest.LadderTotal(cfg.EntryPercentage, cfg.MarginIncreaseLevels)
	}

	cfg.Direction = backtest.Direction(strings.ToUpper(strings.TrimSpace(string(cfg.Direction))))

	if err := cfg.Validate(); err != nil {
		return backtest.Config{}, err
	}
	return cfg, nil
}
