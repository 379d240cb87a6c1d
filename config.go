package lexsem

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/danharker/lexsem/obligation"
)

// Config holds all configuration for the lexsem engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.lexsem/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "lexsem". The file will be <DBName>.db inside the
	// storage directory (~/.lexsem/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.lexsem/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Extraction configures the obligation extractor bindings.
	Extraction obligation.ExtractionConfig `json:"extraction" yaml:"extraction"`

	// IncludeTokenLeaves adds per-token leaf nodes to exported logic
	// trees. Off by default; payloads grow considerably with it on.
	IncludeTokenLeaves bool `json:"include_token_leaves" yaml:"include_token_leaves"`

	// CrossDocument enables cross-document edge projection against the
	// other documents already in the store.
	CrossDocument bool `json:"cross_document" yaml:"cross_document"`
}

// DefaultConfig returns a Config with sensible defaults.
// Database is stored in ~/.lexsem/lexsem.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:        "lexsem",
		StorageDir:    "home",
		Extraction:    obligation.DefaultExtractionConfig(),
		CrossDocument: true,
	}
}

// LoadConfig reads a YAML config file and merges it over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "lexsem"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".lexsem")
		return filepath.Join(dir, name+".db")
	}
}
