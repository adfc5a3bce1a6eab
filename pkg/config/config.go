// Package config provides configuration management for srcmirror.
// It handles loading, validating and saving the YAML configuration file that
// names the mirror to follow and the local directories archives and unpacked
// sources are kept in.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/fsutil"
	"github.com/glorpus-work/srcmirror/pkg/index"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

// Config represents the application configuration.
type Config struct {
	// Mirror configuration
	Mirror MirrorConfig `yaml:"mirror"`

	// General settings
	Settings Settings `yaml:"settings"`

	// Hook scripts
	Hooks HooksConfig `yaml:"hooks,omitempty"`
}

// MirrorConfig names the archive and the part of it to follow.
type MirrorConfig struct {
	BaseURL    string   `yaml:"base_url"`
	Dist       string   `yaml:"dist"`
	Components []string `yaml:"components"`
	// Variant selects the file-list block: md5, sha1, sha256 or none.
	Variant string `yaml:"variant,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Layout
	OutDir     string `yaml:"out_dir,omitempty"`
	ExtractDir string `yaml:"extract_dir,omitempty"`

	// Pipeline behaviour
	VerifyChecksum     *bool  `yaml:"verify_checksum,omitempty"`
	DeleteAfterExtract bool   `yaml:"delete_after_extract"`
	PackageSource      string `yaml:"package_source"` // index, filename
	LatestOnly         bool   `yaml:"latest_only"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	UserAgent   string        `yaml:"user_agent,omitempty"`

	// Output settings
	LogLevel string `yaml:"log_level"` // panic, fatal, error, warn, info, debug, trace
}

// HooksConfig points at Tengo scripts run during a sync. Scripts found in
// Dir as <hook-type>.tengo are loaded first; PostExtract and PostSync
// override them.
type HooksConfig struct {
	Dir         string `yaml:"dir,omitempty"`
	PostExtract string `yaml:"post_extract,omitempty"`
	PostSync    string `yaml:"post_sync,omitempty"`
}

// Default configuration values.
const (
	// DefaultBaseURL is the Ubuntu primary archive.
	DefaultBaseURL = "http://archive.ubuntu.com/ubuntu"

	// DefaultDist is the distribution followed when none is configured.
	DefaultDist = "noble"

	// DefaultHTTPTimeout bounds a single request, body included. Source
	// archives can be large.
	DefaultHTTPTimeout = 30 * time.Minute

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultComponents are followed when none are configured.
var DefaultComponents = []string{"main"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	outDir, err := fsutil.GetArchiveDir()
	if err != nil {
		// Fallback to current directory if we can't determine user data dir
		outDir = "archives"
	}
	extractDir, err := fsutil.GetExtractDir()
	if err != nil {
		extractDir = "sources"
	}

	verify := true
	return &Config{
		Mirror: MirrorConfig{
			BaseURL:    DefaultBaseURL,
			Dist:       DefaultDist,
			Components: append([]string(nil), DefaultComponents...),
			Variant:    index.VariantMD5.Name,
		},
		Settings: Settings{
			OutDir:         outDir,
			ExtractDir:     extractDir,
			VerifyChecksum: &verify,
			PackageSource:  string(model.PackageFromIndex),
			HTTPTimeout:    DefaultHTTPTimeout,
			LogLevel:       "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	// Validate the config file path
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	// Ensure the path is clean and absolute
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	// Check if file exists and is accessible
	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	// Apply defaults and validate
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves configuration to a file.
func (c *Config) SaveConfig(path string) error {
	// Validate the config file path
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	// Ensure the path is clean and absolute
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	// Write YAML data
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	// Atomically replace the config file
	if err := os.Rename(tempPath, absPath); err != nil {
		// Clean up temp file if rename fails
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}

	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateMirror(c.Mirror); err != nil {
		return errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	if err := validateSettings(c.Settings); err != nil {
		return errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	return nil
}

func validateMirror(m MirrorConfig) error {
	u, err := url.Parse(m.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("mirror base_url %q must be an absolute URL", m.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("mirror base_url %q must use http or https", m.BaseURL)
	}
	if strings.TrimSpace(m.Dist) == "" {
		return fmt.Errorf("mirror dist cannot be empty")
	}
	if len(m.Components) == 0 {
		return fmt.Errorf("mirror needs at least one component")
	}
	for i, comp := range m.Components {
		if strings.TrimSpace(comp) == "" {
			return fmt.Errorf("mirror component %d is empty", i)
		}
	}
	if _, err := index.VariantByName(m.Variant); err != nil {
		return err
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative")
	}
	if s.OutDir == "" || s.ExtractDir == "" {
		return fmt.Errorf("out_dir and extract_dir must be set")
	}
	if _, err := model.ParsePackageSource(s.PackageSource); err != nil {
		return err
	}
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("invalid log level %q", s.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// IndexVariant returns the parsed index variant.
func (c *Config) IndexVariant() index.Variant {
	v, err := index.VariantByName(c.Mirror.Variant)
	if err != nil {
		return index.VariantMD5
	}
	return v
}

// GetPackageSource returns the parsed package source setting.
func (c *Config) GetPackageSource() model.PackageSource {
	src, err := model.ParsePackageSource(c.Settings.PackageSource)
	if err != nil {
		return model.PackageFromIndex
	}
	return src
}

// VerifyChecksums reports whether local archives are re-hashed during
// reconciliation. Unset means true.
func (c *Config) VerifyChecksums() bool {
	return c.Settings.VerifyChecksum == nil || *c.Settings.VerifyChecksum
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Mirror.BaseURL == "" {
		c.Mirror.BaseURL = defaults.Mirror.BaseURL
	}
	if c.Mirror.Dist == "" {
		c.Mirror.Dist = defaults.Mirror.Dist
	}
	if len(c.Mirror.Components) == 0 {
		c.Mirror.Components = defaults.Mirror.Components
	}
	if c.Mirror.Variant == "" {
		c.Mirror.Variant = defaults.Mirror.Variant
	}
	if c.Settings.OutDir == "" {
		c.Settings.OutDir = defaults.Settings.OutDir
	}
	if c.Settings.ExtractDir == "" {
		c.Settings.ExtractDir = defaults.Settings.ExtractDir
	}
	if c.Settings.VerifyChecksum == nil {
		c.Settings.VerifyChecksum = defaults.Settings.VerifyChecksum
	}
	if c.Settings.PackageSource == "" {
		c.Settings.PackageSource = defaults.Settings.PackageSource
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
