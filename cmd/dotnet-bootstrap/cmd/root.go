package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/dotnet-bootstrap/internal/dotnet"
	"github.com/oshokin/dotnet-bootstrap/internal/logger"
	"github.com/oshokin/dotnet-bootstrap/internal/service/installer"
	"github.com/oshokin/dotnet-bootstrap/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string

	// versionSpec is the requested runtime version, possibly partial.
	versionSpec string

	// runtimeName selects the runtime channel to install.
	runtimeName string

	// archName selects the installer architecture.
	archName string

	// logLevelName controls log verbosity.
	logLevelName string

	// rootCmd represents the base command that ensures a runtime is installed.
	rootCmd = &cobra.Command{
		Use:   "dotnet-bootstrap",
		Short: "Ensure a .NET runtime is installed, downloading its installer when it is not",
		Long: "dotnet-bootstrap resolves a possibly-partial runtime version " +
			"against the official release index, checks whether a matching " +
			"version is already installed, and otherwise downloads and " +
			"silently launches the platform installer.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Usage output is unhelpful for runtime failures.
			cmd.SilenceUsage = true

			if level, ok := logger.ParseLogLevel(logLevelName); ok {
				logger.SetLevel(level)
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &installer.Options{
				ConfigPath: configPath,
				Version:    versionSpec,
				Runtime:    runtimeName,
				Arch:       archName,
			}

			return installer.Run(ctx, options)
		},
	}
)

// Execute runs the dotnet-bootstrap CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&versionSpec, "version", "v", "",
		"runtime version to install, major[.minor[.patch]]")
	rootCmd.Flags().StringVarP(&runtimeName, "runtime", "r", "",
		fmt.Sprintf("runtime channel (%s)", strings.Join(dotnet.ChannelNames(), "|")))
	rootCmd.Flags().StringVarP(&archName, "arch", "a", dotnet.ArchX64.String(),
		fmt.Sprintf("installer architecture (%s)", strings.Join(dotnet.ArchitectureNames(), "|")))
	rootCmd.Flags().StringVarP(&logLevelName, "log-level", "l", logger.Level().String(),
		"logging level (debug|info|warn|error|fatal)")

	_ = rootCmd.MarkFlagRequired("version")
	_ = rootCmd.MarkFlagRequired("runtime")
}
