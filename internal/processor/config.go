package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the persisted form of a processor: enough to rebuild the
// processed data from the same original data with ImportConfig.
type Config struct {
	QueryName      string      `json:"query_name" yaml:"query_name"`
	OriginalCount  int         `json:"original_count" yaml:"original_count"`
	ProcessedCount int         `json:"processed_count" yaml:"processed_count"`
	Columns        []Column    `json:"columns" yaml:"columns"`
	Operations     []Operation `json:"operations" yaml:"operations"`
	Timestamp      time.Time   `json:"timestamp" yaml:"timestamp"`
}

// ParseConfig decodes a JSON config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ParseConfigYAML decodes a YAML config. JSON is valid YAML, so this also
// accepts JSON input.
func ParseConfigYAML(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}
	return cfg, nil
}

// EncodeJSON renders the config as indented JSON.
func (c Config) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// EncodeYAML renders the config as YAML.
func (c Config) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode yaml config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
