// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"venvoy/pkg/types"

	"github.com/spf13/cobra"
)

var (
	stopName string

	// stopCmd stops a background session container
	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop an environment's background session",
		RunE:  runStopCmd,
	}
)

func init() {
	stopCmd.Flags().StringVarP(&stopName, "name", "n", "venvoy-env", "environment name")
}

func runStopCmd(cmd *cobra.Command, args []string) error {
	name := types.EnvironmentName(stopName)
	if err := name.Validate(); err != nil {
		return err
	}

	svc, _, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}

	if err := svc.Stop(cmd.Context(), name); err != nil {
		reportIssue(err)
		return err
	}

	fmt.Printf("%s Stopped %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(string(name)))
	return nil
}
