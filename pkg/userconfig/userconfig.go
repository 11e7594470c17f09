// Package userconfig provides user-level configuration for plantchat.
// It is stored in ~/.config/plantchat/config.yaml and holds the inference
// endpoints, the request timeout and UI preferences.
package userconfig

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/agromind/plantchat/pkg/inference"
	"github.com/agromind/plantchat/pkg/paths"
)

// CurrentVersion is the current version of the user config format
const CurrentVersion = "v1"

const (
	DefaultTimeoutSeconds = 60

	EnvConverseURL = "PLANTCHAT_CONVERSE_URL"
	EnvDiagnoseURL = "PLANTCHAT_DIAGNOSE_URL"
	EnvTimeout     = "PLANTCHAT_TIMEOUT"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Endpoints are the two inference service URLs.
type Endpoints struct {
	Converse string `yaml:"converse,omitempty"`
	Diagnose string `yaml:"diagnose,omitempty"`
}

// Settings represents UI preferences
type Settings struct {
	// RenderMarkdown renders bot replies as markdown in the TUI. Nil means true.
	RenderMarkdown *bool `yaml:"render_markdown,omitempty"`
	// ExportDir is where ctrl+s writes transcripts. Empty means ~/.plantchat/exports.
	ExportDir string `yaml:"export_dir,omitempty"`
}

// Config represents the user-level plantchat configuration
type Config struct {
	Version        string    `yaml:"version,omitempty"`
	Endpoints      Endpoints `yaml:"endpoints,omitempty"`
	TimeoutSeconds int       `yaml:"timeout_seconds,omitempty"`
	Settings       *Settings `yaml:"settings,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Endpoints: Endpoints{
			Converse: inference.DefaultConverseURL,
			Diagnose: inference.DefaultDiagnoseURL,
		},
		TimeoutSeconds: DefaultTimeoutSeconds,
	}
}

// Path returns the path to the config file
func Path() string {
	return filepath.Join(paths.GetConfigDir(), "config.yaml")
}

// Load reads the config file and applies environment overrides.
func Load() (*Config, error) {
	cfg, err := loadFrom(Path())
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFrom reads the config file, returning defaults if it doesn't exist.
// Fields left empty in the file keep their default values.
func loadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Endpoints.Converse == "" {
		c.Endpoints.Converse = def.Endpoints.Converse
	}
	if c.Endpoints.Diagnose == "" {
		c.Endpoints.Diagnose = def.Endpoints.Diagnose
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = def.TimeoutSeconds
	}
}

// ApplyEnv overrides endpoints and timeout from PLANTCHAT_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvConverseURL); ok && strings.TrimSpace(v) != "" {
		c.Endpoints.Converse = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvDiagnoseURL); ok && strings.TrimSpace(v) != "" {
		c.Endpoints.Diagnose = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvTimeout); ok && strings.TrimSpace(v) != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number of seconds", ErrInvalid, EnvTimeout, v)
		}
		c.TimeoutSeconds = secs
	}
	return nil
}

// Validate checks the endpoints are http(s) URLs and the timeout is positive.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"converse": c.Endpoints.Converse,
		"diagnose": c.Endpoints.Diagnose,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s endpoint %q must be an http or https URL", ErrInvalid, name, raw)
		}
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeout_seconds must be positive, got %d", ErrInvalid, c.TimeoutSeconds)
	}
	return nil
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GetSettings returns the settings, or an empty Settings if not set
func (c *Config) GetSettings() *Settings {
	if c.Settings == nil {
		return &Settings{}
	}
	return c.Settings
}

// MarkdownEnabled reports whether bot replies should be rendered as markdown.
func (s *Settings) MarkdownEnabled() bool {
	return s.RenderMarkdown == nil || *s.RenderMarkdown
}

// ResolvedExportDir returns the export directory with "~/" expanded.
func (s *Settings) ResolvedExportDir() string {
	if strings.TrimSpace(s.ExportDir) == "" {
		return paths.GetExportDir()
	}
	return paths.ExpandHome(s.ExportDir)
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save saves the configuration to the config file
func (c *Config) Save() error {
	return c.saveTo(Path())
}

func (c *Config) saveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	c.Version = CurrentVersion

	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}
