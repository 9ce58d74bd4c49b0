// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"venvoy/pkg/types"

	"github.com/spf13/cobra"
)

var (
	freezeName       string
	freezeIncludeDev bool

	// freezeCmd vendors wheels for fully offline reproduction
	freezeCmd = &cobra.Command{
		Use:   "freeze",
		Short: "Vendor package archives for offline reproduction",
		Long: `Vendor package archives for offline reproduction.

Downloads every pinned package into the environment's vendor/ directory
inside the container, so the environment can be rebuilt on an air-gapped
machine. Python environments only.`,
		RunE: runFreezeCmd,
	}
)

func init() {
	freezeCmd.Flags().StringVarP(&freezeName, "name", "n", "venvoy-env", "environment name")
	freezeCmd.Flags().BoolVar(&freezeIncludeDev, "include-dev", false, "also vendor development requirements")
}

func runFreezeCmd(cmd *cobra.Command, args []string) error {
	name := types.EnvironmentName(freezeName)
	if err := name.Validate(); err != nil {
		return err
	}

	svc, _, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}

	snapshot, err := svc.Freeze(cmd.Context(), name, freezeIncludeDev)
	if err != nil {
		reportIssue(err)
		return err
	}

	fmt.Printf("%s Environment frozen\n", SuccessStyle.Render("✓"))
	fmt.Printf("  snapshot: %s\n", snapshot)
	return nil
}
