package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/glorpus-work/srcmirror/pkg/archive"
	"github.com/glorpus-work/srcmirror/pkg/config"
	"github.com/glorpus-work/srcmirror/pkg/download"
	"github.com/glorpus-work/srcmirror/pkg/hooks"
	"github.com/glorpus-work/srcmirror/pkg/logger"
	"github.com/glorpus-work/srcmirror/pkg/orchestrator"
	"github.com/glorpus-work/srcmirror/pkg/repository"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	NoColor    *bool
)

// loadConfig loads the configuration named by --config, or the default one,
// and initializes logging from it.
func loadConfig() (*config.Config, error) {
	path := getConfigPath()
	if path == "" {
		return nil, fmt.Errorf("no configuration path available, use --config")
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.InitLogger(level, NoColor != nil && *NoColor)
	logger.Debug("Loaded configuration", logger.Fields{"path": path})

	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// loadDownloadManager builds the HTTP client used for indexes and archives.
func loadDownloadManager(cfg *config.Config) *download.ManagerImpl {
	return download.NewManager(cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent)
}

// loadHookManager registers the hook scripts of the configuration: the hooks
// directory first, then the explicitly named files. Types listed in skip are
// dropped again.
func loadHookManager(cfg *config.Config, skip []string) (*hooks.DefaultHookManager, error) {
	manager := hooks.NewHookManager()
	if cfg.Hooks.Dir != "" {
		if err := hooks.LoadHooksFromDir(manager, cfg.Hooks.Dir); err != nil {
			return nil, err
		}
	}
	if err := hooks.LoadHookFile(manager, hooks.PostExtract, cfg.Hooks.PostExtract); err != nil {
		return nil, err
	}
	if err := hooks.LoadHookFile(manager, hooks.PostSync, cfg.Hooks.PostSync); err != nil {
		return nil, err
	}

	for _, name := range skip {
		hookType := hooks.HookType(name)
		if !hookType.Valid() {
			return nil, hooks.ErrUnsupportedHookType(name)
		}
		if err := manager.RemoveHook(hookType); err != nil {
			return nil, err
		}
		logger.Debug("Hook disabled", logger.Fields{"hook": name})
	}
	return manager, nil
}

// newOrchestrator wires the real index client, downloader, extractor and
// hooks together.
func newOrchestrator(cfg *config.Config, skipHooks []string) (*orchestrator.Orchestrator, error) {
	dl := loadDownloadManager(cfg)
	hookManager, err := loadHookManager(cfg, skipHooks)
	if err != nil {
		return nil, err
	}
	return &orchestrator.Orchestrator{
		Index:     repository.NewClient(dl),
		DL:        dl,
		Extractor: archive.NewManager(),
		Scripts:   hookManager,
	}, nil
}

func sourceFromConfig(cfg *config.Config) orchestrator.Source {
	return orchestrator.Source{
		BaseURL:    cfg.Mirror.BaseURL,
		Dist:       cfg.Mirror.Dist,
		Components: cfg.Mirror.Components,
		Variant:    cfg.IndexVariant(),
		LatestOnly: cfg.Settings.LatestOnly,
	}
}

func optionsFromConfig(cfg *config.Config) orchestrator.Options {
	return orchestrator.Options{
		OutDir:             cfg.Settings.OutDir,
		ExtractDir:         cfg.Settings.ExtractDir,
		VerifyChecksum:     cfg.VerifyChecksums(),
		DeleteAfterExtract: cfg.Settings.DeleteAfterExtract,
		PackageSource:      cfg.GetPackageSource(),
	}
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything but y or yes, including EOF, declines.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
