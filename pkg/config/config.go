package config

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultProfile is the usage profile applied when none is named
	DefaultProfile = "copilot"
	// RootEnvVar overrides the configuration root directory
	RootEnvVar = "OPENCODE_CONFIG_DIR"
)

// Config holds the settings of the opencode-config tool.
//
// Values are layered from built-in defaults, then environment variables,
// then command line flags.
type Config struct {
	Paths   PathsConfig   `koanf:"paths"   validate:"required"`
	Compose ComposeConfig `koanf:"compose"`
	Policy  PolicyConfig  `koanf:"policy"`
	Runtime RuntimeConfig `koanf:"runtime"`
}

// PathsConfig locates every file of the configuration tree.
// Relative entries are resolved against Root.
type PathsConfig struct {
	Root     string `koanf:"root"      validate:"required" env:"OPENCODE_CONFIG_DIR"`
	Machines string `koanf:"machines"  validate:"required" env:"OPENCODE_MACHINES_FILE"`
	Template string `koanf:"template"  validate:"required" env:"OPENCODE_TEMPLATE_FILE"`
	Base     string `koanf:"base"      validate:"required" env:"OPENCODE_BASE_FILE"`
	Profiles string `koanf:"profiles"  validate:"required" env:"OPENCODE_PROFILES_FILE"`
	MCPDir   string `koanf:"mcp_dir"   validate:"required" env:"OPENCODE_MCP_DIR"`
	AgentDir string `koanf:"agent_dir" validate:"required" env:"OPENCODE_AGENT_DIR"`
	Output   string `koanf:"output"    validate:"required" env:"OPENCODE_OUTPUT_FILE"`
}

// ComposeConfig tunes how service definitions are discovered and merged.
type ComposeConfig struct {
	DefaultProfile string   `koanf:"default_profile" validate:"required"              env:"OPENCODE_DEFAULT_PROFILE"`
	MCPWrapperKey  string   `koanf:"mcp_wrapper_key" validate:"required"              env:"OPENCODE_MCP_WRAPPER_KEY"`
	MCPInclude     []string `koanf:"mcp_include"     validate:"required,min=1,dive,required" env:"OPENCODE_MCP_INCLUDE"`
	MCPExclude     []string `koanf:"mcp_exclude"                                       env:"OPENCODE_MCP_EXCLUDE"`
}

// PolicyConfig holds the model provider allow-list and deny-list.
type PolicyConfig struct {
	AllowedProviders   []string `koanf:"allowed_providers"   validate:"dive,provider_id" env:"OPENCODE_ALLOWED_PROVIDERS"`
	ForbiddenProviders []string `koanf:"forbidden_providers" validate:"dive,provider_id" env:"OPENCODE_FORBIDDEN_PROVIDERS"`
}

// RuntimeConfig controls logging and output.
type RuntimeConfig struct {
	LogLevel  string `koanf:"log_level"  validate:"oneof=debug info warn error disabled" env:"OPENCODE_LOG_LEVEL"`
	LogJSON   bool   `koanf:"log_json"                                                    env:"OPENCODE_LOG_JSON"`
	LogSource bool   `koanf:"log_source"                                                  env:"OPENCODE_LOG_SOURCE"`
	Quiet     bool   `koanf:"quiet"                                                       env:"OPENCODE_QUIET"`
}

// Resolve joins a relative entry to the root directory
func (p *PathsConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Root, path)
}

func (p *PathsConfig) MachinesFile() string { return p.Resolve(p.Machines) }
func (p *PathsConfig) TemplateFile() string { return p.Resolve(p.Template) }
func (p *PathsConfig) BaseFile() string     { return p.Resolve(p.Base) }
func (p *PathsConfig) ProfilesFile() string { return p.Resolve(p.Profiles) }
func (p *PathsConfig) ServiceDir() string   { return p.Resolve(p.MCPDir) }
func (p *PathsConfig) AgentsDir() string    { return p.Resolve(p.AgentDir) }
func (p *PathsConfig) OutputFile() string   { return p.Resolve(p.Output) }

// Service defines the settings loading service.
type Service interface {
	// Load applies defaults, environment and the given sources, in that order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks struct tags and cross-field rules.
	Validate(config *Config) error
	// GetSource returns which source provided the value for key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config with every path relative to $HOME/.config/opencode.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:     defaultRoot(),
			Machines: "machines.json",
			Template: "opencode.template.json",
			Base:     "opencode.base.json",
			Profiles: "profiles.json",
			MCPDir:   "mcp-config",
			AgentDir: filepath.Join(".opencode", "agent"),
			Output:   "opencode.json",
		},
		Compose: ComposeConfig{
			DefaultProfile: DefaultProfile,
			MCPWrapperKey:  "mcp",
			MCPInclude:     []string{"*.json"},
			MCPExclude:     []string{},
		},
		Policy: PolicyConfig{
			AllowedProviders:   []string{"opencode", "google", "github-copilot"},
			ForbiddenProviders: []string{"openrouter"},
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
	}
}

func defaultRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".config", "opencode")
	}
	return filepath.Join(home, ".config", "opencode")
}
