package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gpbraun/mdfluids/internal/config"
	"github.com/gpbraun/mdfluids/internal/logging"
	"github.com/gpbraun/mdfluids/internal/persistence"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app is the state shared by subcommands after the root pre-run.
type app struct {
	configPath string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.Configure(cfg.Log)
	if err != nil {
		return err
	}
	if cfg.Backend.Path != "" {
		if err := config.ApplyBackendPath(cfg.Backend.Path); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = logger
	if a.noColor {
		color.NoColor = true
	}
	return nil
}

// openArchive opens the configured table archive.
func (a *app) openArchive(ctx context.Context) (*persistence.Persistence, error) {
	store := a.cfg.ArchiveStore()
	p, err := persistence.Open(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("open %s archive: %w", store.Driver, err)
	}
	a.logger.Debug("archive_opened", zap.String("driver", store.Driver))
	return p, nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mdfluids",
		Short: "Fluid property engine tooling",
		Long: color.CyanString(`mdfluids - thermodynamic and transport properties of fluids

Inspect the property and phase registries, check property strings and
manage the archive of computed property tables.

Property strings:
  • T, P, D, VIS       plain properties
  • X(1)               one element of a vector property
  • VIS*               value divided by the normalizing fluid's value`),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./mdfluids.yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newPropsCommand(a))
	rootCmd.AddCommand(newPhasesCommand(a))
	rootCmd.AddCommand(newParseCommand(a))
	rootCmd.AddCommand(newTablesCommand(a))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "mdfluids version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)
			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
