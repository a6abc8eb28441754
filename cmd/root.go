package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/observability"
)

const (
	envPrefix      = "UXPROBE"
	configBaseName = "uxprobe"
)

// ExitError carries a specific process exit status, e.g. a failed quality
// gate.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// rootOptions is the state shared by every subcommand of one root command.
type rootOptions struct {
	cfgFile  string
	logLevel string
	v        *viper.Viper
	cfg      *config.Config
	logger   *zap.Logger
}

// NewRootCommand builds a fresh command tree. Each call gets its own viper
// instance so tests and repeated executions never share state.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultLauncherFactory)
}

func newRootCommand(newLauncher launcherFactory) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "uxprobe",
		Short:         "uxprobe audits a web page for UX, UI and accessibility problems.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initialize(cmd)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./uxprobe.yaml or ~/.config/uxprobe/uxprobe.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(
		newAuditCmd(opts, newLauncher),
		newReportCmd(opts),
		newGateCmd(opts),
		newIssuesCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the CLI with ctx, which main wires to SIGINT and SIGTERM.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var exitErr *ExitError
		switch {
		case errors.As(err, &exitErr):
			fmt.Fprintln(os.Stderr, exitErr.Err)
		case errors.Is(err, context.Canceled):
			observability.GetLogger().Warn("Command aborted.")
		default:
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	observability.Sync()
	return err
}

// initialize loads the configuration (defaults, file, environment, then
// flags) and sets up the global logger.
func (o *rootOptions) initialize(cmd *cobra.Command) error {
	o.v = viper.New()
	config.SetDefaults(o.v)

	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		o.v.AddConfigPath(".")
		o.v.AddConfigPath("$HOME/.config/uxprobe")
		o.v.SetConfigName(configBaseName)
		o.v.SetConfigType("yaml")
	}

	o.v.SetEnvPrefix(envPrefix)
	o.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	o.v.AutomaticEnv()

	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if o.logLevel != "" {
		o.v.Set("logger.level", o.logLevel)
	}

	// Flags of the running command override everything else. Each command
	// names its flags after the config key they map to.
	if bind, ok := flagBindings[cmd.Name()]; ok {
		for flag, key := range bind {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := o.v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("failed to bind flag --%s: %w", flag, err)
				}
			}
		}
	}

	cfg, err := config.NewConfigFromViper(o.v)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "uxprobe"})
		return err
	}
	o.cfg = cfg

	observability.InitializeLogger(cfg.Logger())
	o.logger = observability.GetLogger()
	if used := o.v.ConfigFileUsed(); used != "" {
		o.logger.Debug("Loaded configuration file.", zap.String("path", used))
	}
	return nil
}

// flagBindings maps command name -> flag name -> config key.
var flagBindings = map[string]map[string]string{
	"audit": {
		"output-dir":  "output.dir",
		"format":      "output.formats",
		"headless":    "browser.headless",
		"timeout":     "audit.navigation_timeout",
		"concurrency": "responsive.concurrency",
		"engine-path": "accessibility.engine_path",
		"slow-mo":     "audit.slow_mo",
	},
	"report": {
		"output-dir": "output.dir",
	},
	"gate": {
		"min-score": "thresholds.min_overall_score",
	},
	"issues": {
		"owner": "github.owner",
		"repo":  "github.repo",
	},
}
