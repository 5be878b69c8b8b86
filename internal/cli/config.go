package cli

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the check command's flags. Explicit flags win over
// file values.
type FileConfig struct {
	BaseURL         string `yaml:"baseUrl,omitempty"`
	WSPath          string `yaml:"wsPath,omitempty"`
	ProtocolVersion uint64 `yaml:"protocolVersion,omitempty"`
	AuthToken       string `yaml:"authToken,omitempty"`
	WaitTimeoutMs   int64  `yaml:"waitTimeoutMs,omitempty"`
	ProbeTimeoutMs  int64  `yaml:"probeTimeoutMs,omitempty"`
	History         string `yaml:"history,omitempty"`
}

// LoadConfig reads and parses a YAML config file. Unknown fields are
// rejected so a typo fails loudly instead of silently using a default.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}
