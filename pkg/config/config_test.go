package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/srcmirror/pkg/errors"
	"github.com/glorpus-work/srcmirror/pkg/fsutil"
	"github.com/glorpus-work/srcmirror/pkg/index"
	"github.com/glorpus-work/srcmirror/pkg/model"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.Equal(t, DefaultBaseURL, cfg.Mirror.BaseURL)
	assert.Equal(t, []string{"main"}, cfg.Mirror.Components)
	assert.True(t, cfg.VerifyChecksums())
	assert.False(t, cfg.Settings.DeleteAfterExtract)
	assert.Equal(t, model.PackageFromIndex, cfg.GetPackageSource())
	assert.Equal(t, index.VariantMD5, cfg.IndexVariant())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `mirror:
  base_url: https://mirror.example.org/debian
  dist: bookworm
  components: [main, contrib]
  variant: sha256
settings:
  out_dir: /srv/archives
  extract_dir: /srv/sources
  verify_checksum: false
  delete_after_extract: true
  package_source: filename
  log_level: debug
  http_timeout: 90s
hooks:
  dir: /etc/srcmirror/hooks
  post_extract: /etc/srcmirror/post-extract.tengo`

	err := os.WriteFile(configPath, []byte(configContent), fsutil.FileModeDefault)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "bookworm", cfg.Mirror.Dist)
	assert.Equal(t, []string{"main", "contrib"}, cfg.Mirror.Components)
	assert.Equal(t, index.VariantSHA256, cfg.IndexVariant())
	assert.Equal(t, "/srv/archives", cfg.Settings.OutDir)
	assert.False(t, cfg.VerifyChecksums())
	assert.True(t, cfg.Settings.DeleteAfterExtract)
	assert.Equal(t, model.PackageFromFilenameSource, cfg.GetPackageSource())
	assert.Equal(t, 90*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, "/etc/srcmirror/post-extract.tengo", cfg.Hooks.PostExtract)
	assert.Equal(t, "/etc/srcmirror/hooks", cfg.Hooks.Dir)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("partial file", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader("mirror:\n  dist: jammy\n"))
		require.NoError(t, err)
		assert.Equal(t, "jammy", cfg.Mirror.Dist)
		assert.Equal(t, DefaultBaseURL, cfg.Mirror.BaseURL)
		assert.True(t, cfg.VerifyChecksums())
		assert.NotEmpty(t, cfg.Settings.OutDir)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := LoadConfig("")
		assert.ErrorIs(t, err, errors.ErrEmptyConfigPath)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader("mirror: [unterminated"))
		assert.ErrorIs(t, err, errors.ErrConfigParse)
	})
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.LogLevel = "debug"
	cfg.Mirror.Components = []string{"main", "universe"}

	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.SaveConfig(configPath))
	assert.NoFileExists(t, configPath+".tmp")

	loadedCfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loadedCfg)

	assert.ErrorIs(t, cfg.SaveConfig(""), errors.ErrEmptyConfigPath)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"relative base url", func(c *Config) { c.Mirror.BaseURL = "archive.ubuntu.com" }, "absolute URL"},
		{"ftp base url", func(c *Config) { c.Mirror.BaseURL = "ftp://archive.ubuntu.com" }, "http or https"},
		{"empty dist", func(c *Config) { c.Mirror.Dist = " " }, "dist"},
		{"no components", func(c *Config) { c.Mirror.Components = nil }, "component"},
		{"blank component", func(c *Config) { c.Mirror.Components = []string{"main", ""} }, "component 1"},
		{"unknown variant", func(c *Config) { c.Mirror.Variant = "crc32" }, "unknown index variant"},
		{"bad package source", func(c *Config) { c.Settings.PackageSource = "guess" }, "package source"},
		{"negative timeout", func(c *Config) { c.Settings.HTTPTimeout = -time.Second }, "http_timeout"},
		{"bad log level", func(c *Config) { c.Settings.LogLevel = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrConfigValidation)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honoured on Linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	path, err := GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg-config", fsutil.AppName, "config.yaml"), path)
}

func TestSetAndGetValue(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.SetValue("mirror.components", "main, restricted ,,universe"))
	assert.Equal(t, []string{"main", "restricted", "universe"}, cfg.Mirror.Components)

	require.NoError(t, cfg.SetValue("verify_checksum", "false"))
	assert.False(t, cfg.VerifyChecksums())

	require.NoError(t, cfg.SetValue("http_timeout", "5m"))
	v, err := cfg.GetValue("http_timeout")
	require.NoError(t, err)
	assert.Equal(t, "5m0s", v)

	require.NoError(t, cfg.SetValue("hooks.dir", "/etc/srcmirror/hooks"))
	v, err = cfg.GetValue("hooks.dir")
	require.NoError(t, err)
	assert.Equal(t, "/etc/srcmirror/hooks", v)

	assert.Error(t, cfg.SetValue("latest_only", "maybe"))
	assert.Error(t, cfg.SetValue("http_timeout", "soon"))
	assert.Error(t, cfg.SetValue("nope", "x"))
	_, err = cfg.GetValue("nope")
	assert.Error(t, err)

	m := cfg.ToMap()
	assert.Len(t, m, len(Keys))
	assert.Equal(t, "main,restricted,universe", m["mirror.components"])
}
