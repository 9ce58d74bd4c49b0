// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// listCmd shows every registered environment
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered environments",
	RunE:  runListCmd,
}

func runListCmd(cmd *cobra.Command, args []string) error {
	svc, _, err := newEnvService(cmd.Context())
	if err != nil {
		return err
	}

	infos, err := svc.List(cmd.Context())
	if err != nil {
		reportIssue(err)
		return err
	}

	if len(infos) == 0 {
		fmt.Println(SubtitleStyle.Render("No environments yet."))
		fmt.Printf("Create one with '%s'\n", CmdStyle.Render("venvoy init --name <name>"))
		return nil
	}

	header := fmt.Sprintf("%-24s %-8s %-10s %-12s %s", "NAME", "KIND", "VERSION", "CREATED", "STATUS")
	fmt.Println(TitleStyle.Render(header))
	for _, info := range infos {
		status := info.Status
		if strings.Contains(strings.ToLower(status), "up") || strings.EqualFold(status, "running") {
			status = SuccessStyle.Render(status)
		} else {
			status = SubtitleStyle.Render(status)
		}
		fmt.Printf("%-24s %-8s %-10s %-12s %s\n",
			info.Name, info.Kind, info.Version, info.Created.Format("2006-01-02"), status)
	}
	return nil
}
