// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"venvoy/pkg/types"

	"github.com/spf13/cobra"
)

var (
	historyName string

	// historyCmd lists the saved package snapshots for an environment
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show the snapshot history of an environment",
		Long: `Show the snapshot history of an environment.

Every automatic or explicit export leaves a timestamped environment.yml
under ~/venvoy-projects/<name>. Any of these timestamps can be fed to
'venvoy restore' or 'venvoy init --restore'.`,
		RunE: runHistoryCmd,
	}
)

func init() {
	historyCmd.Flags().StringVarP(&historyName, "name", "n", "venvoy-env", "environment name")
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	name := types.EnvironmentName(historyName)
	if err := name.Validate(); err != nil {
		return err
	}

	svc, _, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}

	entries, err := svc.History(name)
	if err != nil {
		reportIssue(err)
		return err
	}

	if len(entries) == 0 {
		fmt.Println(SubtitleStyle.Render("No snapshots yet."))
		fmt.Printf("Run a session with '%s' and install something.\n",
			CmdStyle.Render("venvoy run --name "+string(name)))
		return nil
	}

	header := fmt.Sprintf("%-22s %-8s %-8s %s", "TIMESTAMP", "CONDA", "PIP", "EXPORTED")
	fmt.Println(TitleStyle.Render(header))
	for i, entry := range entries {
		ts := entry.Timestamp.Format("20060102_150405")
		line := fmt.Sprintf("%-22s %-8d %-8d %s",
			ts, entry.CondaPackages, entry.PipPackages, entry.Exported)
		if i == 0 {
			line += SuccessStyle.Render("  (latest)")
		}
		fmt.Println(line)
	}
	fmt.Println()
	fmt.Printf("Restore any snapshot with '%s'\n",
		CmdStyle.Render(fmt.Sprintf("venvoy restore --name %s --timestamp <TIMESTAMP>", name)))
	return nil
}
