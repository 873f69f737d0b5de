// Package watchlist loads the optional seed file that pre-registers
// subscribers and their search terms at startup.
package watchlist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of watchlist.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new watchlist loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the watchlist file
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist yaml: %w", err)
	}

	return &config, nil
}
