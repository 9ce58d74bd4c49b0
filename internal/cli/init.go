// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"venvoy/internal/env"
	"venvoy/pkg/types"

	"github.com/spf13/cobra"
)

var (
	initName          string
	initKind          string
	initPythonVersion string
	initRVersion      string
	initForce         bool
	initRestore       string

	// initCmd creates a new environment
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a new portable environment",
		Long: `Create a new portable environment backed by a container image.

The environment's Dockerfile, requirements files, and metadata are written
under ~/.venvoy/environments/<name>. Package snapshots will land in
~/venvoy-projects/<name> so they survive environment rebuilds.`,
		RunE: runInitCmd,
	}
)

func init() {
	initCmd.Flags().StringVarP(&initName, "name", "n", "venvoy-env", "environment name")
	initCmd.Flags().StringVarP(&initKind, "runtime", "r", "python", "environment language (python, r)")
	initCmd.Flags().StringVar(&initPythonVersion, "python-version", "", "python version (default from config)")
	initCmd.Flags().StringVar(&initRVersion, "r-version", "", "R version (default from config)")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "reinitialize an existing environment")
	initCmd.Flags().StringVar(&initRestore, "restore", "", "restore packages from a prior export timestamp (YYYYMMDD_HHMMSS)")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	name := types.EnvironmentName(initName)
	if err := name.Validate(); err != nil {
		return err
	}
	kind := env.Kind(initKind)
	version := initPythonVersion
	if kind == env.KindR {
		version = initRVersion
	}

	svc, _, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}

	meta, err := svc.Init(cmd.Context(), env.InitOptions{
		Name:             name,
		Kind:             kind,
		Version:          version,
		Force:            initForce,
		RestoreTimestamp: initRestore,
	})
	if err != nil {
		reportIssue(err)
		return err
	}

	fmt.Printf("%s Environment %s ready (%s %s)\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(string(meta.Name)), meta.Kind, meta.Version)
	if meta.RestoredFrom != "" {
		fmt.Printf("  restored packages from export %s\n", meta.RestoredFrom)
	}
	fmt.Println()
	fmt.Println(SubtitleStyle.Render("Next steps:"))
	fmt.Printf("  1. Run '%s' to start a session\n", CmdStyle.Render("venvoy run --name "+string(meta.Name)))
	fmt.Printf("  2. Install packages inside the session; snapshots are saved automatically\n")
	fmt.Printf("  3. Run '%s' to share the environment\n", CmdStyle.Render("venvoy export --name "+string(meta.Name)))

	return nil
}
