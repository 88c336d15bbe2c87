package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds release index endpoints and local path overrides used by the
// bootstrapper. All fields have defaults; a missing config file is fine.
type Config struct {
	// IndexURL is the base URL of the release index holding latest.version
	// markers and installer binaries.
	IndexURL string `yaml:"index_url"`
	// CDNURL is the base URL serving the per-version productVersion.txt
	// auxiliary resources.
	CDNURL string `yaml:"cdn_url"`
	// VCRedistBaseURL is the base URL serving the VC++ redistributable
	// installers required by the runtime installer.
	VCRedistBaseURL string `yaml:"vc_redist_url"`
	// InstallRoot overrides the architecture-derived dotnet installation
	// root. Empty means derive from the Program Files environment.
	InstallRoot string `yaml:"install_root"`
	// SystemDir overrides the architecture-derived system directory checked
	// for the VC++ runtime library. Empty means derive.
	SystemDir string `yaml:"system_dir"`
	// Timeout bounds each HTTP request. Zero keeps the transport default,
	// which places no bound on a hung upstream.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for bootstrapper settings.
	DefaultConfigFilename = "dotnet-bootstrap-settings.yaml"

	// DefaultIndexURL is the public release index.
	DefaultIndexURL = "https://dotnetcli.blob.core.windows.net/dotnet"

	// DefaultCDNURL is the CDN mirror serving auxiliary version resources.
	DefaultCDNURL = "https://dotnetcli.azureedge.net/dotnet"

	// DefaultVCRedistBaseURL serves the VC++ redistributable installers.
	DefaultVCRedistBaseURL = "https://aka.ms/vs/17/release"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errIndexURLRequired is returned when the index URL is missing.
	errIndexURLRequired = errors.New("index URL must be provided")
)

// Default returns a configuration pointing at the public release index.
func Default() *Config {
	return &Config{
		IndexURL:        DefaultIndexURL,
		CDNURL:          DefaultCDNURL,
		VCRedistBaseURL: DefaultVCRedistBaseURL,
	}
}

// Load reads configuration from the provided path and validates it.
// When no path is given and the default file does not exist, the defaults
// are returned without error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling omitted endpoints with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.IndexURL == "" {
		return errIndexURLRequired
	}

	if cfg.CDNURL == "" {
		cfg.CDNURL = DefaultCDNURL
	}

	if cfg.VCRedistBaseURL == "" {
		cfg.VCRedistBaseURL = DefaultVCRedistBaseURL
	}

	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}

	for _, endpoint := range []string{cfg.IndexURL, cfg.CDNURL, cfg.VCRedistBaseURL} {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid endpoint URL: %w", err)
		}
	}

	return nil
}
