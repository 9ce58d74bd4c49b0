// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"venvoy/pkg/types"

	"github.com/spf13/cobra"
)

var (
	exportName   string
	exportFormat string
	exportOutput string

	// exportCmd writes a shareable artifact for an environment
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export an environment for sharing or archival",
		Long: `Export an environment for sharing or archival.

Formats:
  yaml        conda-style environment.yml with the current package state
  dockerfile  the environment's generated Dockerfile
  tarball     full environment directory as a .tar.gz archive
  compose     best-effort docker-compose service definition`,
		RunE: runExportCmd,
	}
)

func init() {
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "venvoy-env", "environment name")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "F", "yaml", "export format (yaml, dockerfile, tarball, compose)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default depends on format)")
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	name := types.EnvironmentName(exportName)
	if err := name.Validate(); err != nil {
		return err
	}

	svc, _, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}

	path, err := svc.Export(cmd.Context(), name, exportFormat, exportOutput)
	if err != nil {
		reportIssue(err)
		return err
	}

	fmt.Printf("%s Exported %s to %s\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(string(name)), path)
	if exportFormat == "tarball" {
		fmt.Printf("  a colleague can load it with '%s'\n", CmdStyle.Render("venvoy import "+path))
	}
	return nil
}
