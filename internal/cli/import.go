// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	importForce bool

	// importCmd loads an environment from a tarball export
	importCmd = &cobra.Command{
		Use:   "import <archive>",
		Short: "Import an environment from a tarball export",
		Long: `Import an environment from a tarball export.

Restores the environment directory from an archive produced by
'venvoy export --format tarball' and registers it locally.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportCmd,
	}
)

func init() {
	importCmd.Flags().BoolVarP(&importForce, "force", "f", false, "overwrite an existing environment with the same name")
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	svc, _, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}

	name, err := svc.Import(cmd.Context(), args[0], importForce)
	if err != nil {
		reportIssue(err)
		return err
	}

	fmt.Printf("%s Imported environment %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(string(name)))
	fmt.Printf("  start it with '%s'\n", CmdStyle.Render("venvoy run --name "+string(name)))
	return nil
}
