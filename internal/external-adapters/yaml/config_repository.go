package yaml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// ErrConfigNotFound is returned when an explicitly requested config file does not exist
var ErrConfigNotFound = errors.New("config file not found")

// ConfigRepository implements repositories.ConfigRepository using YAML files
type ConfigRepository struct {
	homeDir string
	parser  *ConfigParser
}

// NewConfigRepository creates a new YAML-based config repository rooted at the user's home
func NewConfigRepository(homeDir string) *ConfigRepository {
	return &ConfigRepository{
		homeDir: homeDir,
		parser:  NewConfigParser(homeDir),
	}
}

// SearchPaths lists the default config locations in priority order
func (r *ConfigRepository) SearchPaths() []string {
	return []string{
		filepath.Join(r.homeDir, ".trustscan.yaml"),
		filepath.Join(r.homeDir, ".trustscan.yml"),
		filepath.Join(r.homeDir, ".config", "trustscan", "config.yaml"),
		filepath.Join(r.homeDir, ".config", "trustscan", "config.yml"),
	}
}

// Load reads the config at path. With an empty path the first existing default
// location is used, and defaults apply when none exists.
func (r *ConfigRepository) Load(path string) (*entities.Config, error) {
	if path != "" {
		path = ExpandHome(path, r.homeDir)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return r.parser.ParseFile(path)
	}

	for _, candidate := range r.SearchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return r.parser.ParseFile(candidate)
		}
	}

	cfg := entities.DefaultConfig()
	cfg.BaselineFile = ExpandHome(cfg.BaselineFile, r.homeDir)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default config: %w", err)
	}
	return cfg, nil
}
