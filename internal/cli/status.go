// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statusCmd reports which container runtime venvoy selected and why
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the selected container runtime and host context",
	RunE:  runStatusCmd,
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	mgr, err := newManager(cmd.Context())
	if err != nil {
		reportIssue(err)
		return err
	}

	info := mgr.GetRuntimeInfo(cmd.Context())
	execCtx := mgr.Context()

	fmt.Println(TitleStyle.Render("venvoy status"))
	fmt.Printf("  runtime:   %s\n", CmdStyle.Render(info.Runtime.String()))
	fmt.Printf("  version:   %s\n", info.Version)
	if info.HPC {
		fmt.Printf("  context:   %s\n", WarningStyle.Render("HPC environment detected"))
	} else {
		fmt.Printf("  context:   workstation\n")
	}
	if execCtx.InsideContainer {
		fmt.Printf("  nested:    %s\n", SubtitleStyle.Render("already inside a container"))
	}
	if execCtx.HostRuntimeHint != "" {
		fmt.Printf("  hint:      VENVOY_HOST_RUNTIME=%s\n", execCtx.HostRuntimeHint)
	}
	if cfg != nil {
		fmt.Println()
		fmt.Println(SubtitleStyle.Render("defaults"))
		fmt.Printf("  python:    %s\n", cfg.PythonVersion)
		fmt.Printf("  r:         %s\n", cfg.RVersion)
		fmt.Printf("  auto-save: %v (poll every %ds)\n", cfg.AutoSave.Enabled, cfg.AutoSave.IntervalSeconds)
	}
	return nil
}
