package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/relsync/internal/config"
	"github.com/oshokin/relsync/internal/logger"
)

// sharedFlags are persistent flags available to every subcommand, plus the
// sync-only overrides that feed into the same settings.
type sharedFlags struct {
	configPath      string
	envFile         string
	manifestURL     string
	channel         string
	artifact        string
	timeout         time.Duration
	downloadTimeout time.Duration
	verbosity       verbosity
}

func newSharedFlags() *sharedFlags {
	return new(sharedFlags)
}

// register attaches the persistent flags to root.
func (s *sharedFlags) register(root *cobra.Command) {
	flags := root.PersistentFlags()

	flags.StringVarP(&s.configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVar(&s.envFile, "env-file", config.DefaultEnvFilename, "dotenv file with RELSYNC_* overrides")
	flags.StringVar(&s.manifestURL, "manifest-url", "", "release manifest URL")
	flags.StringVar(&s.channel, "channel", "", "latest pointer to follow (release, snapshot)")
	flags.DurationVar(&s.timeout, "timeout", 0, "timeout for manifest and descriptor requests")

	// Both switches write the same value, so the one parsed last wins.
	verbose := flags.VarPF(s.verbosity.switchTo(zapcore.DebugLevel), "verbose", "v", "verbose output")
	verbose.NoOptDefVal = "true"

	quiet := flags.VarPF(s.verbosity.switchTo(zapcore.WarnLevel), "quiet", "q", "only output warnings and errors")
	quiet.NoOptDefVal = "true"
}

// settings loads the configuration file, applies environment overrides and then flags.
// A missing file is only an error when --config was given explicitly.
func (s *sharedFlags) settings(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(s.configPath)
	} else {
		cfg, err = config.LoadOrDefault(s.configPath)
	}

	if err != nil {
		return nil, err
	}

	if err = config.ApplyEnv(cfg, s.envFile); err != nil {
		return nil, err
	}

	s.applyOverrides(cfg)

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	return cfg, nil
}

func (s *sharedFlags) applyOverrides(cfg *config.Config) {
	if s.manifestURL != "" {
		cfg.ManifestURL = s.manifestURL
	}

	if s.channel != "" {
		cfg.Channel = s.channel
	}

	if s.artifact != "" {
		cfg.Artifact = s.artifact
	}

	if s.timeout > 0 {
		cfg.Timeout = s.timeout
	}

	if s.downloadTimeout > 0 {
		cfg.DownloadTimeout = s.downloadTimeout
	}
}

// loggerContext builds the run logger and stores it in the command context.
// The verbosity switches win over the configured log level.
func (s *sharedFlags) loggerContext(cmd *cobra.Command, settings *config.Config) context.Context {
	level, _ := logger.ParseLogLevel(settings.LogLevel)
	if s.verbosity.set {
		level = s.verbosity.level
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return logger.ToContext(ctx, logger.NewWithWriter(cmd.ErrOrStderr(), level))
}

// verbosity is the level chosen by --verbose/--quiet.
type verbosity struct {
	level zapcore.Level
	set   bool
	// owner is the switch that chose level.
	owner *verbositySwitch
}

// switchTo returns a boolean flag value that selects level when enabled.
func (v *verbosity) switchTo(level zapcore.Level) pflag.Value {
	return &verbositySwitch{target: v, level: level}
}

type verbositySwitch struct {
	target  *verbosity
	level   zapcore.Level
	enabled bool
}

func (s *verbositySwitch) String() string {
	return strconv.FormatBool(s.enabled)
}

func (s *verbositySwitch) Set(value string) error {
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}

	s.enabled = enabled

	switch {
	case enabled:
		s.target.level = s.level
		s.target.set = true
		s.target.owner = s
	case s.target.owner == s:
		*s.target = verbosity{}
	}

	return nil
}

func (s *verbositySwitch) Type() string {
	return "bool"
}
