package autoload

import (
	"fmt"
	"slices"
)

// DefaultExcludes contains patterns for common temporary/backup files that should be ignored
var DefaultExcludes = []string{
	"**/.#*",   // Emacs lock files
	"**/*~",    // Backup files
	"**/*.bak", // Backup files
	"**/*.swp", // Vim swap files
	"**/*.tmp", // Temporary files
	"**/._*",   // macOS resource forks
}

// Config selects the files of one definition directory
type Config struct {
	Include []string `json:"include"           mapstructure:"include"`
	Exclude []string `json:"exclude,omitempty" mapstructure:"exclude"`
}

// NewConfig creates a discovery config for the given include patterns
func NewConfig(include ...string) *Config {
	return &Config{
		Include: include,
		Exclude: []string{},
	}
}

// Validate validates the discovery configuration
func (c *Config) Validate() error {
	if len(c.Include) == 0 {
		return fmt.Errorf("at least one include pattern is required")
	}
	for _, pattern := range c.Include {
		if pattern == "" {
			return fmt.Errorf("empty include pattern is not allowed")
		}
	}
	for _, pattern := range c.Exclude {
		if pattern == "" {
			return fmt.Errorf("empty exclude pattern is not allowed")
		}
	}
	return nil
}

// GetAllExcludes returns the combined list of default and user-defined excludes
func (c *Config) GetAllExcludes() []string {
	return append(slices.Clone(DefaultExcludes), c.Exclude...)
}
