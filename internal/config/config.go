package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/relsync/internal/domain/release"
	"github.com/oshokin/relsync/internal/logger"
)

// Config holds the settings shared by relsync commands.
type Config struct {
	// ManifestURL is the release feed index.
	ManifestURL string `yaml:"manifest_url"`
	// Timeout bounds each manifest and descriptor request.
	Timeout time.Duration `yaml:"timeout"`
	// DownloadTimeout bounds the artifact download, body included.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// Channel selects the "latest" pointer used when no version is requested.
	Channel string `yaml:"channel"`
	// Artifact is the descriptor download to sync ("server", "client").
	Artifact string `yaml:"artifact"`
	// LogLevel is used when neither --verbose nor --quiet is given.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for relsync settings.
	DefaultConfigFilename = "relsync-settings.yaml"

	// DefaultEnvFilename is the optional dotenv file read before the process environment.
	DefaultEnvFilename = ".env"

	// DefaultManifestURL is the Minecraft launcher version manifest.
	DefaultManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadTimeout is the default bound for an artifact download.
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	envPrefix = "RELSYNC_"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errManifestURLRequired is returned when the manifest URL is missing.
	errManifestURLRequired = errors.New("manifest url must be provided")
	// errUnsupportedScheme is returned for manifest URLs that are not http(s).
	errUnsupportedScheme = errors.New("manifest url must use http or https")
	// errUnknownLogLevel is returned for an unparsable log level.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Default returns a validated configuration with built-in values.
func Default() *Config {
	return &Config{
		ManifestURL:     DefaultManifestURL,
		Timeout:         DefaultTimeout,
		DownloadTimeout: DefaultDownloadTimeout,
		Channel:         string(release.ChannelRelease),
		Artifact:        release.DefaultArtifact,
		LogLevel:        DefaultLogLevel,
	}
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
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

// LoadOrDefault behaves like Load but returns Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes Config to the provided path.
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

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings from RELSYNC_* variables.
// Values in envFile are used first and the process environment wins over them.
// A missing envFile is not an error.
func ApplyEnv(cfg *Config, envFile string) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	values := make(map[string]string)

	if envFile != "" {
		fromFile, err := godotenv.Read(filepath.Clean(envFile))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read env file: %w", err)
		}

		for k, v := range fromFile {
			values[k] = v
		}
	}

	for _, key := range []string{"MANIFEST_URL", "TIMEOUT", "DOWNLOAD_TIMEOUT", "CHANNEL", "ARTIFACT", "LOG_LEVEL"} {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			values[envPrefix+key] = v
		}
	}

	if v := values[envPrefix+"MANIFEST_URL"]; v != "" {
		cfg.ManifestURL = v
	}

	for key, field := range map[string]*time.Duration{
		"TIMEOUT":          &cfg.Timeout,
		"DOWNLOAD_TIMEOUT": &cfg.DownloadTimeout,
	} {
		v := values[envPrefix+key]
		if v == "" {
			continue
		}

		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
		}

		*field = timeout
	}

	if v := values[envPrefix+"CHANNEL"]; v != "" {
		cfg.Channel = v
	}

	if v := values[envPrefix+"ARTIFACT"]; v != "" {
		cfg.Artifact = v
	}

	if v := values[envPrefix+"LOG_LEVEL"]; v != "" {
		cfg.LogLevel = v
	}

	return Validate(cfg)
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for optional ones.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ManifestURL == "" {
		return errManifestURLRequired
	}

	parsed, err := url.ParseRequestURI(settings.ManifestURL)
	if err != nil {
		return fmt.Errorf("invalid manifest url: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: %w", settings.ManifestURL, errUnsupportedScheme)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.DownloadTimeout <= 0 {
		settings.DownloadTimeout = DefaultDownloadTimeout
	}

	channel, err := release.ParseChannel(settings.Channel)
	if err != nil {
		return err
	}

	settings.Channel = string(channel)

	settings.Artifact = strings.TrimSpace(settings.Artifact)
	if settings.Artifact == "" {
		settings.Artifact = release.DefaultArtifact
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%q: %w", settings.LogLevel, errUnknownLogLevel)
	}

	return nil
}
