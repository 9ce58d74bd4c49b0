// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"venvoy/pkg/types"

	"github.com/spf13/cobra"
)

var (
	restoreName      string
	restoreTimestamp string

	// restoreCmd rewrites the requirements files from a past snapshot
	restoreCmd = &cobra.Command{
		Use:   "restore",
		Short: "Restore an environment's packages from a snapshot",
		Long: `Restore an environment's packages from a snapshot.

Rewrites the environment's requirements files from the export identified
by --timestamp. The packages take effect the next time the environment's
image is rebuilt or a session installs from the requirements files.`,
		RunE: runRestoreCmd,
	}
)

func init() {
	restoreCmd.Flags().StringVarP(&restoreName, "name", "n", "venvoy-env", "environment name")
	restoreCmd.Flags().StringVarP(&restoreTimestamp, "timestamp", "t", "", "snapshot timestamp (YYYYMMDD_HHMMSS, see 'venvoy history')")
	_ = restoreCmd.MarkFlagRequired("timestamp")
}

func runRestoreCmd(cmd *cobra.Command, args []string) error {
	name := types.EnvironmentName(restoreName)
	if err := name.Validate(); err != nil {
		return err
	}

	svc, _, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}

	if err := svc.Restore(name, restoreTimestamp); err != nil {
		reportIssue(err)
		return err
	}

	fmt.Printf("%s Restored %s to snapshot %s\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(string(name)), restoreTimestamp)
	fmt.Printf("  apply it with '%s'\n",
		CmdStyle.Render(fmt.Sprintf("venvoy init --name %s --force", name)))
	return nil
}
