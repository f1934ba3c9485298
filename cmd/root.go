// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/observability"
	"github.com/xkilldash9x/uiprobe/internal/orchestrator"
)

const (
	envPrefix         = "UIPROBE"
	defaultConfigName = "uiprobe"
)

// NewRootCommand builds the uiprobe command tree. Each call returns a fresh
// tree so flag state never leaks between executions.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "uiprobe <mode>",
		Short: "uiprobe audits a web application for UI quality and accessibility.",
		Long: `uiprobe drives a headless browser over the configured routes and viewports,
audits every page for accessibility, layout and runtime problems, and writes
a master report with a health score and an improvement plan.

Modes:
  full           every phase, including reference design benchmarking
  quick          UI analysis, accessibility and reporting
  errors         runtime error capture and reporting
  accessibility  accessibility audit, reporting and the improvement plan`,
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Usage()
			}
			mode, ok := orchestrator.ParseMode(args[0])
			if !ok {
				// An unknown mode is not an error, the user just gets help.
				cmd.PrintErrf("unknown mode %q\n\n", args[0])
				return cmd.Usage()
			}

			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			logger := observability.GetLogger()
			logger.Info("Starting uiprobe", zap.String("version", Version), zap.String("mode", string(mode)))

			return runMode(cmd.Context(), cmd, cfg, mode)
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./uiprobe.yaml)")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newAuditFileCmd(&cfgFile))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command tree with a signal-aware context.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		observability.GetLogger().Warn("Run aborted by signal.", zap.Error(err))
		return err
	}
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		root.PrintErrln(cfgErr.Error())
		return err
	}
	observability.GetLogger().Error("Command execution failed", zap.Error(err))
	root.PrintErrln("Error:", err)
	return err
}

// loadConfig reads the config file and UIPROBE_* environment overrides on
// top of the defaults and validates the result.
func loadConfig(cfgFile string) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)
	if err := initializeConfig(v, cfgFile); err != nil {
		return nil, err
	}
	return config.NewConfigFromViper(v)
}

func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment only.
	}
	return nil
}
