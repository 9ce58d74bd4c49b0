// SPDX-License-Identifier: MPL-2.0

// Package cli contains all CLI commands for venvoy.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"venvoy/internal/config"
	"venvoy/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// cfg is the loaded user configuration, populated by initRootConfig
	// before any RunE handler executes.
	cfg *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "venvoy",
		Short: "Portable computational environments for reproducible science",
		Long: TitleStyle.Render("venvoy") + SubtitleStyle.Render(" - Portable computational environments") + `

venvoy runs Python and R environments inside containers using whichever
runtime is available on the machine: Docker, Podman, Apptainer, or
Singularity. The same environment works on a laptop, a workstation, and
an HPC login node without asking the user to care which engine is
installed.

Environment state lives under ~/.venvoy and package snapshots are written
as conda-style environment.yml files under ~/venvoy-projects, so a
colleague can reproduce your setup years later from a single file.

` + SubtitleStyle.Render("Quick Start:") + `
  1. venvoy init --name myproject
  2. venvoy run --name myproject
  3. venvoy export --name myproject

` + SubtitleStyle.Render("Examples:") + `
  venvoy init --runtime python --python-version 3.11
  venvoy run --name myproject --command "python train.py"
  venvoy export --name myproject --format tarball
  venvoy history --name myproject
  venvoy status              Show the selected container runtime`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.venvoy/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(freezeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// initRootConfig reads in config file and ENV variables if set.
func initRootConfig() {
	loaded, err := config.NewProvider().Load(context.Background(), config.LoadOptions{
		ConfigFilePath: cfgFile,
	})
	if err != nil {
		// Always surface config loading errors; the defaults still let
		// every command work.
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		loaded = config.DefaultConfig()
	}
	cfg = loaded

	// Apply verbose from config if not set via flag
	if !verbose {
		verbose = cfg.UI.Verbose
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
